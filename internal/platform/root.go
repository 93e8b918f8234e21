package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// rootMarker is the bookkeeping directory every provisioned file store
// carries; its presence identifies a store root.
const rootMarker = ".silt"

// FindRoot walks from startDir towards the filesystem root and returns the
// first directory containing a store marker.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, rootMarker)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no store found in %s or any parent directory", startDir)
		}
		dir = parent
	}
}
