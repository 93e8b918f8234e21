package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// indexEntry is the cached shape of one stored document file.
type indexEntry struct {
	ID         string    `yaml:"id"`
	Collection string    `yaml:"collection"`
	ModTime    time.Time `yaml:"mod_time"`
}

// indexFile is the persisted cache state.
type indexFile struct {
	Version int                    `yaml:"version"`
	Entries map[string]*indexEntry `yaml:"entries"` // keyed by relative path, e.g. "books/b1.json"
}

// index tracks known document files so List, Watch and State avoid
// re-walking the tree. It persists lazily: mutations flip a dirty bit and
// Save writes only when needed.
type index struct {
	path  string
	mu    sync.RWMutex
	data  indexFile
	dirty bool
}

func newIndex(root, systemDir string) *index {
	return &index{
		path: filepath.Join(root, systemDir, "index.yaml"),
		data: indexFile{
			Version: 1,
			Entries: make(map[string]*indexEntry),
		},
	}
}

// Load reads the index from disk. A missing or corrupted file starts fresh;
// the directory tree is the source of truth and the index self-heals.
func (ix *index) Load() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	data, err := os.ReadFile(ix.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	var parsed indexFile
	if err := yaml.Unmarshal(data, &parsed); err != nil || parsed.Entries == nil {
		ix.data.Entries = make(map[string]*indexEntry)
		return nil
	}

	ix.data = parsed
	ix.dirty = false
	return nil
}

// Save persists the index if it changed since the last save.
func (ix *index) Save() error {
	ix.mu.RLock()
	if !ix.dirty {
		ix.mu.RUnlock()
		return nil
	}
	data, err := yaml.Marshal(ix.data)
	ix.mu.RUnlock()

	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(ix.path), 0755); err != nil {
		return err
	}
	if err := writeFileAtomic(ix.path, data, 0644); err != nil {
		return err
	}

	ix.mu.Lock()
	ix.dirty = false
	ix.mu.Unlock()
	return nil
}

// Set records a document file.
func (ix *index) Set(relPath, collection, id string, modTime time.Time) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.data.Entries[relPath] = &indexEntry{
		ID:         id,
		Collection: collection,
		ModTime:    modTime,
	}
	ix.dirty = true
}

// Delete forgets a document file.
func (ix *index) Delete(relPath string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.data.Entries[relPath]; ok {
		delete(ix.data.Entries, relPath)
		ix.dirty = true
	}
}

// Get returns the entry for a relative path.
func (ix *index) Get(relPath string) (*indexEntry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.data.Entries[relPath]
	return e, ok
}

// Len reports the number of indexed documents.
func (ix *index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.data.Entries)
}

// Collections reports per-collection document counts.
func (ix *index) Collections() map[string]int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	counts := make(map[string]int)
	for _, e := range ix.data.Entries {
		counts[e.Collection]++
	}
	return counts
}
