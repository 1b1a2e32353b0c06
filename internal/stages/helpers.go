package stages

import (
	"os"
	"path/filepath"
)

// writeText writes content to name under dir and returns the path, used by
// stages that receive in-memory content (a fetched subtitle track, a
// summary document) that the bundle store expects to find on disk before
// internal/bundle.Store.AddArtifact can hash and register it.
func writeText(dir, name, content string) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
