package file

import (
	"fmt"
	"os"
	"path/filepath"
)

// tempFilePrefix marks in-flight atomic writes; the ignore patterns and the
// collection listing both skip files carrying it.
const tempFilePrefix = "silt-tmp-"

// writeFileAtomic stages data in a temp file next to the target and renames
// it into place, so readers never observe a partial document.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)

	tmp, err := os.CreateTemp(dir, tempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to stage write in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	published := false
	defer func() {
		if !published {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write staged document: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod staged document: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync staged document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close staged document: %w", err)
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return fmt.Errorf("failed to move staged document to %s: %w", filename, err)
	}
	published = true

	fsyncDir(dir)
	return nil
}

// fsyncDir flushes the directory entry so a rename survives a crash. Best
// effort: not every platform can sync a directory handle.
func fsyncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	d.Close()
}
