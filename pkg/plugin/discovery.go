package plugin

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar"
	"gopkg.in/yaml.v3"
)

// DiscoverManifests walks dir for "**/manifest.yaml" files (spec §4.7's
// plugin bundle layout: one directory per plugin, a manifest at its
// root) and parses each into a Manifest. It does not register or
// construct anything — pairing a discovered manifest with a
// Constructor is left to the caller, since Go has no safe way to turn
// a directory into running code on its own.
func DiscoverManifests(dir string) ([]Manifest, error) {
	pattern := filepath.Join(dir, "**", "manifest.yaml")
	matches, err := doublestar.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("globbing plugin bundles in %s: %w", dir, err)
	}

	manifests := make([]Manifest, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading manifest %s: %w", path, err)
		}
		var m Manifest
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
		}
		if m.ID == "" {
			return nil, fmt.Errorf("manifest %s missing required id field", path)
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}
