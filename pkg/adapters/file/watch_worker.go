package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/silt/pkg/core"
)

// Watch implements core.Watcher. A background worker tails the directory
// tree and emits an event once changes to a document settle for the
// configured debounce window. The channel closes when ctx is cancelled.
// An empty collection watches every collection.
func (s *Store) Watch(ctx context.Context, collection string) (<-chan core.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, &core.StoreError{Op: "watch", Collection: collection, Err: err}
	}
	if collection != "" {
		if err := validateName(collection); err != nil {
			return nil, &core.StoreError{Op: "watch", Collection: collection, Err: err}
		}
	}

	events := make(chan core.Event, s.config.WatchBuffer)
	w := newWatchWorker(s, collection, events)
	if err := w.Start(ctx); err != nil {
		return nil, &core.StoreError{Op: "watch", Collection: collection, Err: err}
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.Stop(stopCtx); err != nil {
			s.logger.Warn("watch worker stop", "error", err)
		}
		close(events)
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		s.logger.Error("watch supervisor panic", "error", err)
	}))

	return events, nil
}

type watchWorker struct {
	*worker.BaseWorker
	store      *Store
	collection string
	events     chan<- core.Event
	watcher    *fsnotify.Watcher
	debouncer  *debouncer
	cancel     context.CancelFunc
}

func newWatchWorker(store *Store, collection string, events chan<- core.Event) *watchWorker {
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("file-watcher"),
		store:      store,
		collection: collection,
		events:     events,
	}
}

func (w *watchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := w.addRoots(watcher); err != nil {
		_ = watcher.Close()
		return err
	}

	w.watcher = watcher
	w.debouncer = newDebouncer(w.store.config.WatchDebounce)
	w.store.setWatcherActive(true)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *watchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}

	return w.BaseWorker.Stop(ctx)
}

func (w *watchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
		}
	})
}

// addRoots registers the store root and every existing collection
// directory. The root stays watched even when a single collection is
// requested so that late-created collection directories are picked up.
func (w *watchWorker) addRoots(watcher *fsnotify.Watcher) error {
	if err := watcher.Add(w.store.Path); err != nil {
		return fmt.Errorf("failed to watch store root: %w", err)
	}

	entries, err := os.ReadDir(w.store.Path)
	if err != nil {
		return fmt.Errorf("failed to scan store root: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == w.store.config.SystemDir {
			continue
		}
		if w.collection != "" && entry.Name() != w.collection {
			continue
		}
		if err := watcher.Add(filepath.Join(w.store.Path, entry.Name())); err != nil {
			w.store.logger.Warn("failed to watch collection", "collection", entry.Name(), "error", err)
		}
	}
	return nil
}

// resolveDocument maps an absolute event path to its collection and ID.
// Paths outside the tree, ignored paths and non-document files resolve to
// ok=false.
func (w *watchWorker) resolveDocument(name string) (collection, id string, ok bool) {
	rel, err := filepath.Rel(w.store.Path, name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", "", false
	}
	rel = filepath.ToSlash(rel)
	if w.store.ignored(rel) {
		return "", "", false
	}

	dir, base := path.Split(rel)
	collection = strings.Trim(dir, "/")
	if collection == "" || strings.Contains(collection, "/") {
		return "", "", false
	}
	if !strings.HasSuffix(base, ".json") {
		return "", "", false
	}
	id = strings.TrimSuffix(base, ".json")
	if validateName(collection) != nil || validateName(id) != nil {
		return "", "", false
	}
	return collection, id, true
}

func mapEventType(event fsnotify.Event) core.EventType {
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		return core.EventPut
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return core.EventDelete
	default:
		return ""
	}
}

// processFilesystemEvent filters, maps and debounces one fsnotify event.
// Returns true if the event was accepted for emission.
func (w *watchWorker) processFilesystemEvent(ctx context.Context, event fsnotify.Event) bool {
	w.store.logger.Debug("event received", "name", event.Name, "op", event.Op.String())

	// A freshly created directory is a new collection: start watching it.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if base := filepath.Base(event.Name); base != w.store.config.SystemDir {
				if w.collection == "" || base == w.collection {
					_ = w.watcher.Add(event.Name)
				}
			}
			return false
		}
	}

	collection, id, ok := w.resolveDocument(event.Name)
	if !ok {
		return false
	}
	if w.collection != "" && collection != w.collection {
		return false
	}

	eType := mapEventType(event)
	if eType == "" {
		return false
	}

	// Keep the index in step with external edits while the watcher runs.
	switch eType {
	case core.EventDelete:
		w.store.index.Delete(relPath(collection, id))
	case core.EventPut:
		if info, err := os.Stat(event.Name); err == nil {
			w.store.index.Set(relPath(collection, id), collection, id, info.ModTime())
		}
	}

	w.sendEvent(ctx, core.Event{
		Type:       eType,
		Collection: collection,
		ID:         id,
	})
	return true
}

// sendEvent enqueues an event via the debouncer, keyed by document so a
// burst of writes to one file collapses into a single notification.
func (w *watchWorker) sendEvent(ctx context.Context, event core.Event) {
	w.debouncer.add(relPath(event.Collection, event.ID), event, func(e core.Event) {
		defer func() {
			// The channel may close while a timer is firing during shutdown.
			_ = recover()
		}()
		select {
		case w.events <- e:
		case <-ctx.Done():
		}
	})
}

func (w *watchWorker) handleWatcherError(err error) {
	w.store.logger.Error("fsnotify error", "error", err)
	if w.store.config.ErrorHandler != nil {
		w.store.config.ErrorHandler(err)
	}
}

// run is the main event loop for the watcher worker.
func (w *watchWorker) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			panicErr := fmt.Errorf("watcher panic: %v", recovered)

			var stack string
			if w.store.logger.Enabled(ctx, slog.LevelDebug) {
				stack = string(debug.Stack())
			}

			if stack != "" {
				w.store.logger.Error("watcher panic", "error", panicErr, "stack", stack)
			} else {
				w.store.logger.Error("watcher panic", "error", panicErr)
			}
		}
	}()
	defer w.store.setWatcherActive(false)
	defer w.watcher.Close()

	err = w.mainEventLoop(ctx)

	// Drain before the cleanup goroutine closes the events channel.
	w.debouncer.stopAndWait(5 * time.Second)

	return err
}

func (w *watchWorker) mainEventLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.processFilesystemEvent(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.handleWatcherError(wErr)
		}
	}
}

var _ core.Watcher = (*Store)(nil)
