package platform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/silt/pkg/adapters/file"
	"github.com/aretw0/silt/pkg/adapters/memory"
	"github.com/aretw0/silt/pkg/adapters/mongo"
	"github.com/aretw0/silt/pkg/core"
)

// MemoryTarget selects the in-memory adapter.
const MemoryTarget = ":memory:"

// Init resolves the target into a configured store and runs its
// initialization. The target is adapter-specific: a directory path for
// "file", a connection string for "mongo", or MemoryTarget.
func Init(ctx context.Context, target string, opts ...Option) (core.Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	// 1. Injected store wins.
	if o.store != nil {
		return initialize(ctx, o.store)
	}

	// 2. Build based on adapter.
	store, err := buildStore(target, o)
	if err != nil {
		return nil, err
	}

	return initialize(ctx, store)
}

// initialize runs the store's Init when it declares one.
func initialize(ctx context.Context, store core.Store) (core.Store, error) {
	if init, ok := store.(core.Initializer); ok {
		if err := init.Init(ctx); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func buildStore(target string, o *options) (core.Store, error) {
	switch resolveAdapter(target, o.adapter) {
	case "memory":
		return initMemory(o)
	case "mongo":
		return initMongo(target, o)
	case "file":
		return initFile(target, o)
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
}

// resolveAdapter infers the adapter from the target unless one was forced.
func resolveAdapter(target, forced string) string {
	if forced != "" {
		return forced
	}
	switch {
	case target == MemoryTarget:
		return "memory"
	case strings.HasPrefix(target, "mongodb://"), strings.HasPrefix(target, "mongodb+srv://"):
		return "mongo"
	default:
		return "file"
	}
}

func initMemory(o *options) (core.Store, error) {
	clock, _ := o.config["clock"].(func() time.Time)
	return memory.NewStore(memory.Config{
		Logger: o.logger,
		Clock:  clock,
	}), nil
}

func initMongo(uri string, o *options) (core.Store, error) {
	database, _ := o.config["database"].(string)
	return mongo.NewStore(mongo.Config{
		URI:      uri,
		Database: database,
		Logger:   o.logger,
	})
}

func initFile(path string, o *options) (core.Store, error) {
	autoInit := true
	if v, ok := o.config["auto_init"].(bool); ok {
		autoInit = v
	}
	mustExist, _ := o.config["must_exist"].(bool)
	systemDir, _ := o.config["system_dir"].(string)
	concurrency, _ := o.config["concurrency"].(int)
	debounce, _ := o.config["watch_debounce"].(time.Duration)
	watchBuffer, _ := o.config["watch_buffer"].(int)
	ignore, _ := o.config["ignore_patterns"].([]string)
	errorHandler, _ := o.config["watcher_error_handler"].(func(error))
	clock, _ := o.config["clock"].(func() time.Time)

	return file.NewStore(file.Config{
		Path:           path,
		MustExist:      mustExist || !autoInit,
		SystemDir:      systemDir,
		Logger:         o.logger,
		Clock:          clock,
		Concurrency:    concurrency,
		WatchDebounce:  debounce,
		WatchBuffer:    watchBuffer,
		IgnorePatterns: ignore,
		ErrorHandler:   errorHandler,
	})
}
