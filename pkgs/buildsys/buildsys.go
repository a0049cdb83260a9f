package buildsys

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// BuildSystem captures shared capabilities of build helpers (qmake, make, etc).
// It keeps the common lifecycle and dependency/env setup; implementations add their own extras.
type BuildSystem interface {
	// Use exposes an already installed dependency rooted at root.
	Use(root string)

	// Basic paths.
	Source(dir string)
	InstallDir(dir string)

	// Environment helper.
	Env(key, val string)

	// Lifecycle.
	Configure(ctx context.Context, args ...string) error
	Build(ctx context.Context, args ...string) error
	Install(ctx context.Context, args ...string) error

	// Where artifacts land.
	OutputDir() string
}

var (
	ErrEmptyPath   = errors.New("buildsys: empty path")
	ErrInPlace     = errors.New("buildsys: build and install dirs must differ from the source dir")
	ErrParallel    = errors.New("buildsys: parallel build count must be at least 1")
	ErrProjectFile = errors.New("buildsys: project file must be a bare .pro file name")
)

// BuildContext describes one build of one project. It is built once from the
// caller's configuration and passed by value; nothing in this module mutates it.
type BuildContext struct {
	SourceDir   string
	BuildDir    string
	InstallDir  string
	ProjectFile string // e.g. "Notes.pro", resolved against BuildDir
	Parallel    int
}

// Validate checks the invariants every build step relies on.
func (bc BuildContext) Validate() error {
	for _, p := range []struct{ name, path string }{
		{"source", bc.SourceDir},
		{"build", bc.BuildDir},
		{"install", bc.InstallDir},
	} {
		if p.path == "" {
			return fmt.Errorf("%w: %s dir", ErrEmptyPath, p.name)
		}
	}
	src, err := filepath.Abs(bc.SourceDir)
	if err != nil {
		return err
	}
	for _, dir := range []string{bc.BuildDir, bc.InstallDir} {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		if abs == src {
			return fmt.Errorf("%w: %s", ErrInPlace, dir)
		}
	}
	if bc.Parallel < 1 {
		return fmt.Errorf("%w: got %d", ErrParallel, bc.Parallel)
	}
	pf := bc.ProjectFile
	if pf == "" || filepath.Base(pf) != pf || strings.ContainsAny(pf, `/\`) || filepath.Ext(pf) != ".pro" {
		return fmt.Errorf("%w: %q", ErrProjectFile, pf)
	}
	return nil
}

// ProjectPath returns the project file inside the build directory.
func (bc BuildContext) ProjectPath() string {
	return filepath.Join(bc.BuildDir, bc.ProjectFile)
}

// Makefile returns the Makefile path qmake is asked to generate.
func (bc BuildContext) Makefile() string {
	return filepath.Join(bc.BuildDir, "Makefile")
}
