package file

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const manifestVersion = 1

// manifest marks a directory as a silt store and records its format
// version, so future layout changes can be detected instead of guessed.
type manifest struct {
	Version   int       `yaml:"version"`
	CreatedAt time.Time `yaml:"created_at"`
}

// ensureManifest writes the manifest on first init and validates the
// version on every subsequent open.
func ensureManifest(root, systemDir string) error {
	path := filepath.Join(root, systemDir, "manifest.yaml")

	data, err := os.ReadFile(path)
	if err == nil {
		var m manifest
		if err := yaml.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("failed to parse store manifest: %w", err)
		}
		if m.Version > manifestVersion {
			return fmt.Errorf("store format version %d is newer than supported %d", m.Version, manifestVersion)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read store manifest: %w", err)
	}

	m := manifest{Version: manifestVersion, CreatedAt: time.Now().UTC()}
	out, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return writeFileAtomic(path, out, 0644)
}
