package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Init writes a starter parts file for the qmake project in dir. The part is
// named after the first .pro file found there, or after dir itself.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("parts file already exists: %s (use --force to overwrite)", path)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return err
	}
	name := filepath.Base(dir)
	if matches, _ := filepath.Glob(filepath.Join(dir, "*.pro")); len(matches) > 0 {
		name = strings.TrimSuffix(filepath.Base(matches[0]), ".pro")
	}

	example := Project{
		Name: strings.ToLower(name),
		Parts: []Part{{
			Name:        name,
			Plugin:      "qmake",
			Source:      ".",
			ProjectFile: name + ".pro",
			Options:     []string{"CONFIG+=release"},
		}},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&example); err != nil {
		return fmt.Errorf("failed to marshal parts file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
