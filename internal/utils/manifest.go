package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/menta2k/parallel-crop/pkg/types"
)

// ManifestEntry pairs a source image with its crop request
type ManifestEntry struct {
	Path string `json:"path"`
	types.CropRequest
}

// LoadManifest reads a JSON array of manifest entries. Relative paths are
// resolved against the manifest's directory.
func LoadManifest(filename string) ([]ManifestEntry, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var entries []ManifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	base := filepath.Dir(filename)
	for i := range entries {
		if entries[i].Path == "" {
			return nil, fmt.Errorf("manifest entry %d has no path", i)
		}
		if !filepath.IsAbs(entries[i].Path) {
			entries[i].Path = filepath.Join(base, entries[i].Path)
		}
	}
	return entries, nil
}

// SplitManifest separates entries into parallel path and request slices
func SplitManifest(entries []ManifestEntry) ([]string, []types.CropRequest) {
	paths := make([]string, len(entries))
	reqs := make([]types.CropRequest, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
		reqs[i] = e.CropRequest
	}
	return paths, reqs
}
