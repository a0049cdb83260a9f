package build

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoadBuildCache(t *testing.T) {
	tmpDir := t.TempDir()
	cacheFilePath := filepath.Join(tmpDir, "state", cacheFile)

	now := time.Now().Truncate(time.Second)
	cache := &buildCache{
		Fingerprint: "abc",
		Manifest:    []FileEntry{{Path: "bin/notes", Size: 3, Mode: 0o755, Digest: "ff"}},
		BuildTime:   now,
	}

	if err := saveBuildCache(cacheFilePath, cache); err != nil {
		t.Fatalf("saveBuildCache failed: %v", err)
	}

	loaded, err := loadBuildCache(cacheFilePath)
	if err != nil {
		t.Fatalf("loadBuildCache failed: %v", err)
	}

	if loaded.Fingerprint != cache.Fingerprint {
		t.Errorf("Fingerprint mismatch: got %q, want %q", loaded.Fingerprint, cache.Fingerprint)
	}
	if len(loaded.Manifest) != 1 || loaded.Manifest[0] != cache.Manifest[0] {
		t.Errorf("Manifest mismatch: got %+v, want %+v", loaded.Manifest, cache.Manifest)
	}
	if !loaded.BuildTime.Truncate(time.Second).Equal(now) {
		t.Errorf("BuildTime mismatch: got %v, want %v", loaded.BuildTime, now)
	}
	if _, err := os.Stat(cacheFilePath + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary cache file left behind: %v", err)
	}
}

func TestLoadBuildCache_NotExist(t *testing.T) {
	tmpDir := t.TempDir()
	cacheFilePath := filepath.Join(tmpDir, "not_exist.json")

	_, err := loadBuildCache(cacheFilePath)
	if err == nil {
		t.Fatal("expected error for non-existent file, got nil")
	}
}

func TestLoadBuildCache_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	cacheFilePath := filepath.Join(tmpDir, cacheFile)

	if err := os.WriteFile(cacheFilePath, []byte("invalid json"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	_, err := loadBuildCache(cacheFilePath)
	if err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}
