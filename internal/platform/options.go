package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/silt/pkg/core"
)

// options holds the internal configuration assembled from Option values.
type options struct {
	store   core.Store
	logger  *slog.Logger
	adapter string
	config  map[string]interface{}
}

// Option defines a functional option for configuring an engine.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		store:   nil,
		logger:  nil,
		adapter: "",
		config:  make(map[string]interface{}),
	}
}

// WithLogger sets the logger for the engine and its store.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStore injects a custom store adapter (e.g. a mock or an external
// driver). When provided, target resolution is skipped entirely.
func WithStore(store core.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithAdapter forces a storage adapter by name ("file", "memory" or
// "mongo") instead of inferring it from the target string.
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithDatabase sets the database name for the mongo adapter. Required when
// the connection string does not imply one.
func WithDatabase(name string) Option {
	return func(o *options) {
		o.config["database"] = name
	}
}

// WithAutoInit controls whether the file adapter provisions a missing store
// directory. Enabled by default.
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.config["auto_init"] = auto
	}
}

// WithMustExist requires the file store directory to already exist.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.config["must_exist"] = must
	}
}

// WithSystemDir overrides the file adapter's bookkeeping directory name
// (default ".silt").
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.config["system_dir"] = name
	}
}

// WithIDGenerator replaces the planner's identifier generator.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		o.config["id_generator"] = fn
	}
}

// WithClock replaces the planner's clock, used for creation and
// modification stamps.
func WithClock(fn func() time.Time) Option {
	return func(o *options) {
		o.config["clock"] = fn
	}
}

// WithConcurrency bounds the file adapter's parallel bulk writes.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.config["concurrency"] = n
	}
}

// WithWatchDebounce sets how long the file watcher lets changes settle
// before emitting an event.
func WithWatchDebounce(d time.Duration) Option {
	return func(o *options) {
		o.config["watch_debounce"] = d
	}
}

// WithWatchBuffer sizes the file watcher's event channel.
func WithWatchBuffer(n int) Option {
	return func(o *options) {
		o.config["watch_buffer"] = n
	}
}

// WithIgnorePatterns excludes paths matching the given doublestar globs
// (relative to the store root) from listing and watching.
func WithIgnorePatterns(patterns ...string) Option {
	return func(o *options) {
		o.config["ignore_patterns"] = patterns
	}
}

// WithWatcherErrorHandler registers a callback for errors occurring inside
// the watch loop, which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.config["watcher_error_handler"] = fn
	}
}
