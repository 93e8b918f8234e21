// Package file implements the silt store contract on a plain directory
// tree: one JSON document per file, one directory per collection. It is the
// development backend: inspectable with any text editor, diffable, and
// semantically aligned with the mongo adapter through a shared extended
// JSON codec.
//
// Layout:
//
//	<root>/<collection>/<id>.json
//	<root>/.silt/manifest.yaml
//	<root>/.silt/index.yaml
package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/silt/pkg/core"
)

const defaultSystemDir = ".silt"

// Store implements core.Store over a directory tree.
type Store struct {
	Path   string
	config Config
	index  *index
	lock   *dirLock
	logger *slog.Logger
	clock  func() time.Time

	mu            sync.RWMutex
	watcherActive bool

	// writeMu serializes in-process read-modify-write sequences; the lock
	// file extends the same guarantee across processes.
	writeMu sync.Mutex
}

// Config holds the configuration for the file store.
type Config struct {
	// Path is the store root directory.
	Path string

	// MustExist refuses to create the root directory on Init.
	MustExist bool

	// SystemDir is the bookkeeping directory name, default ".silt".
	SystemDir string

	Logger *slog.Logger

	// Clock resolves server-time directives, defaulting to time.Now.
	Clock func() time.Time

	// Concurrency bounds parallel writes in BulkUpsert, default 8.
	Concurrency int

	// WatchDebounce coalesces rapid filesystem events, default 50ms.
	WatchDebounce time.Duration

	// WatchBuffer sizes the event channel, default 16.
	WatchBuffer int

	// IgnorePatterns are doublestar globs (relative to the root) excluded
	// from listing and watching. The system directory and atomic-write
	// temp files are always covered by the defaults.
	IgnorePatterns []string

	// ErrorHandler receives asynchronous watcher failures.
	ErrorHandler func(error)
}

// NewStore creates a file-backed store rooted at config.Path. Call Init
// before first use to provision the directory and load the index.
func NewStore(config Config) (*Store, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("file store requires a path")
	}
	if config.SystemDir == "" {
		config.SystemDir = defaultSystemDir
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 8
	}
	if config.WatchDebounce <= 0 {
		config.WatchDebounce = 50 * time.Millisecond
	}
	if config.WatchBuffer <= 0 {
		config.WatchBuffer = 16
	}
	config.IgnorePatterns = append(config.IgnorePatterns,
		config.SystemDir+"/**",
		"**/"+tempFilePrefix+"*",
	)

	return &Store{
		Path:   config.Path,
		config: config,
		index:  newIndex(config.Path, config.SystemDir),
		lock:   &dirLock{path: filepath.Join(config.Path, config.SystemDir, "lock")},
		logger: config.Logger,
		clock:  config.Clock,
	}, nil
}

// Init implements core.Initializer: it provisions the root and system
// directories, writes the manifest on first use and loads the index.
func (s *Store) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &core.StoreError{Op: "init", Collection: "", Err: err}
	}

	if s.config.MustExist {
		info, err := os.Stat(s.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("store path does not exist: %s", s.Path)
		}
		if err != nil {
			return fmt.Errorf("failed to stat store path: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("store path is not a directory: %s", s.Path)
		}
	} else if err := os.MkdirAll(s.Path, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	if err := os.MkdirAll(filepath.Join(s.Path, s.config.SystemDir), 0755); err != nil {
		return fmt.Errorf("failed to create system directory: %w", err)
	}
	if err := ensureManifest(s.Path, s.config.SystemDir); err != nil {
		return err
	}
	if err := s.index.Load(); err != nil {
		return err
	}

	s.logger.Debug("file store ready", "path", s.Path, "indexed", s.index.Len())
	return nil
}

// Close implements core.Closer by flushing the index.
func (s *Store) Close(ctx context.Context) error {
	return s.index.Save()
}

// ReplaceUpsert implements core.Store.
func (s *Store) ReplaceUpsert(ctx context.Context, collection string, doc core.Document) (core.WriteResult, error) {
	if err := ctx.Err(); err != nil {
		return core.WriteResult{}, &core.StoreError{Op: "replace", Collection: collection, Err: err}
	}
	if err := validateName(collection); err != nil {
		return core.WriteResult{}, &core.StoreError{Op: "replace", Collection: collection, Err: err}
	}
	if err := validateName(doc.ID); err != nil {
		return core.WriteResult{}, &core.StoreError{Op: "replace", Collection: collection, Err: err}
	}

	data, err := encodeDocument(doc)
	if err != nil {
		return core.WriteResult{}, &core.StoreError{Op: "replace", Collection: collection, Err: err}
	}

	if err := os.MkdirAll(filepath.Join(s.Path, collection), 0755); err != nil {
		return core.WriteResult{}, &core.StoreError{Op: "replace", Collection: collection, Err: err}
	}

	path := s.docPath(collection, doc.ID)
	_, statErr := os.Stat(path)
	existed := statErr == nil

	if err := writeFileAtomic(path, data, 0644); err != nil {
		return core.WriteResult{}, &core.StoreError{Op: "replace", Collection: collection, Err: err}
	}

	s.index.Set(relPath(collection, doc.ID), collection, doc.ID, s.clock().UTC())
	s.saveIndex()

	if existed {
		return core.WriteResult{Matched: 1, Modified: 1}, nil
	}
	return core.WriteResult{Upserted: 1}, nil
}

// BulkUpsert implements core.Store. Writes fan out over a bounded worker
// group; one element's failure never stops the others.
func (s *Store) BulkUpsert(ctx context.Context, collection string, docs []core.Document) (core.BulkResult, error) {
	if len(docs) == 0 {
		return core.BulkResult{}, nil
	}
	if err := validateName(collection); err != nil {
		return core.BulkResult{}, &core.StoreError{Op: "bulk", Collection: collection, Err: err}
	}

	var (
		mu  sync.Mutex
		res core.BulkResult
	)

	var g errgroup.Group
	g.SetLimit(s.config.Concurrency)
	for i, doc := range docs {
		g.Go(func() error {
			one, err := s.ReplaceUpsert(ctx, collection, doc)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Errors = append(res.Errors, core.ItemError{Index: i, ID: doc.ID, Err: err})
				return nil
			}
			res.Matched += one.Matched
			res.Modified += one.Modified
			res.Upserted += one.Upserted
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(res.Errors, func(a, b int) bool { return res.Errors[a].Index < res.Errors[b].Index })
	return res, nil
}

// UpdateFields implements core.Store with a locked read-modify-write of the
// document file.
func (s *Store) UpdateFields(ctx context.Context, collection string, id string, fields []core.FieldUpdate) (core.WriteResult, error) {
	if err := ctx.Err(); err != nil {
		return core.WriteResult{}, &core.StoreError{Op: "update", Collection: collection, Err: err}
	}
	if err := validateName(collection); err != nil {
		return core.WriteResult{}, &core.StoreError{Op: "update", Collection: collection, Err: err}
	}
	if err := validateName(id); err != nil {
		return core.WriteResult{}, &core.StoreError{Op: "update", Collection: collection, Err: err}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	release, err := s.lock.acquire(ctx)
	if err != nil {
		return core.WriteResult{}, &core.StoreError{Op: "update", Collection: collection, Err: err}
	}
	defer release()

	path := s.docPath(collection, id)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return core.WriteResult{}, nil
	}
	if err != nil {
		return core.WriteResult{}, &core.StoreError{Op: "update", Collection: collection, Err: err}
	}

	m, err := decodeDocument(data)
	if err != nil {
		return core.WriteResult{}, &core.StoreError{Op: "update", Collection: collection, Err: err}
	}

	for _, f := range fields {
		if f.ServerTime {
			m[f.Name] = s.clock().UTC()
			continue
		}
		m[f.Name] = f.Value
	}
	m["_id"] = id

	out, err := encodeRaw(m)
	if err != nil {
		return core.WriteResult{}, &core.StoreError{Op: "update", Collection: collection, Err: err}
	}
	if err := writeFileAtomic(path, out, 0644); err != nil {
		return core.WriteResult{}, &core.StoreError{Op: "update", Collection: collection, Err: err}
	}

	s.index.Set(relPath(collection, id), collection, id, s.clock().UTC())
	s.saveIndex()

	return core.WriteResult{Matched: 1, Modified: 1}, nil
}

// Find implements core.Finder.
func (s *Store) Find(ctx context.Context, collection string, id string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, &core.StoreError{Op: "find", Collection: collection, Err: err}
	}
	if err := validateName(collection); err != nil {
		return nil, &core.StoreError{Op: "find", Collection: collection, Err: err}
	}
	if err := validateName(id); err != nil {
		return nil, &core.StoreError{Op: "find", Collection: collection, Err: err}
	}

	data, err := os.ReadFile(s.docPath(collection, id))
	if os.IsNotExist(err) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, &core.StoreError{Op: "find", Collection: collection, Err: err}
	}

	m, err := decodeDocument(data)
	if err != nil {
		return nil, &core.StoreError{Op: "find", Collection: collection, Err: err}
	}
	return m, nil
}

// List implements core.Lister by reading the collection directory. The
// index is refreshed opportunistically along the way.
func (s *Store) List(ctx context.Context, collection string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, &core.StoreError{Op: "list", Collection: collection, Err: err}
	}
	if err := validateName(collection); err != nil {
		return nil, &core.StoreError{Op: "list", Collection: collection, Err: err}
	}

	entries, err := os.ReadDir(filepath.Join(s.Path, collection))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &core.StoreError{Op: "list", Collection: collection, Err: err}
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		rel := relPath(collection, strings.TrimSuffix(entry.Name(), ".json"))
		if s.ignored(rel) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		ids = append(ids, id)

		if info, err := entry.Info(); err == nil {
			s.index.Set(rel, collection, id, info.ModTime())
		}
	}
	sort.Strings(ids)
	s.saveIndex()
	return ids, nil
}

// docPath resolves the absolute file path for a document.
func (s *Store) docPath(collection, id string) string {
	return filepath.Join(s.Path, collection, id+".json")
}

// relPath is the index/watch key for a document.
func relPath(collection, id string) string {
	return collection + "/" + id + ".json"
}

// ignored reports whether a relative path matches any ignore pattern.
func (s *Store) ignored(rel string) bool {
	for _, pattern := range s.config.IgnorePatterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// saveIndex persists the index, logging instead of failing: the directory
// tree is the source of truth and the index self-heals on next load.
func (s *Store) saveIndex() {
	if err := s.index.Save(); err != nil {
		s.logger.Warn("failed to persist index", "error", err)
	}
}

// validateName rejects identifiers and collection names that would escape
// the store directory or collide with bookkeeping files.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if name == "." || name == ".." {
		return fmt.Errorf("invalid name %q", name)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("name %q must not contain path separators", name)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("name %q must not be hidden", name)
	}
	return nil
}

var (
	_ core.Store       = (*Store)(nil)
	_ core.Finder      = (*Store)(nil)
	_ core.Lister      = (*Store)(nil)
	_ core.Initializer = (*Store)(nil)
	_ core.Closer      = (*Store)(nil)
)
