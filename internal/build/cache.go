package build

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// State directory layout:
//
//	<workdir>/parts/<part>/state/
//	  .lock          # held while the part is being built
//	  .cache.json    # fingerprint and manifest of the last successful build
const (
	cacheFile = ".cache.json"
	lockFile  = ".lock"
)

// buildCache records the last successful build of a part.
type buildCache struct {
	Fingerprint string      `json:"fingerprint"`
	Manifest    []FileEntry `json:"manifest"`
	BuildTime   time.Time   `json:"build_time"`
}

func loadBuildCache(path string) (*buildCache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cache buildCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, err
	}
	return &cache, nil
}

func saveBuildCache(path string, cache *buildCache) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
