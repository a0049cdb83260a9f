package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/nuttyartist/notes/internal/env"
	"github.com/nuttyartist/notes/pkgs/buildsys"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the parts file looked up when none is given.
const DefaultFile = "qmk.yaml"

var (
	ErrNoParts       = errors.New("config: no parts defined")
	ErrUnknownPlugin = errors.New("config: unknown plugin")
	ErrUnknownPart   = errors.New("config: unknown part")
)

// Project is a parsed parts file.
type Project struct {
	Name     string `yaml:"name"`
	Parallel int    `yaml:"parallel-build-count,omitempty"` // defaults to the number of CPUs
	Parts    []Part `yaml:"parts"`

	// Dir is the directory holding the parts file; relative sources resolve against it.
	Dir string `yaml:"-"`
	// WorkDir holds every part's build, install and state directories.
	WorkDir string `yaml:"-"`
}

// Part is one qmake project to build.
type Part struct {
	Name        string            `yaml:"name"`
	Plugin      string            `yaml:"plugin"`
	Source      string            `yaml:"source,omitempty"`
	ProjectFile string            `yaml:"project-file,omitempty"`
	QtVersion   string            `yaml:"qt-version,omitempty"` // minimum Qt, e.g. "5.12"
	Options     []string          `yaml:"options,omitempty"`    // extra qmake arguments
	Environment map[string]string `yaml:"environment,omitempty"`
	Use         []string          `yaml:"use,omitempty"` // earlier parts whose install dirs are exposed
}

// Load reads the parts file at path. Environment variables in the file are expanded.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("parts file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read parts file: %w", err)
	}
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	return Parse(data, dir)
}

// Parse decodes a parts file whose sources are relative to dir.
func Parse(data []byte, dir string) (*Project, error) {
	var p Project
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal parts file: %w", err)
	}
	p.Dir = dir
	if err := p.applyDefaults(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Project) applyDefaults() error {
	if p.Parallel == 0 {
		p.Parallel = runtime.NumCPU()
	}
	if p.WorkDir == "" {
		wd, err := env.WorkDir(p.Dir)
		if err != nil {
			return err
		}
		p.WorkDir = wd
	}
	for i := range p.Parts {
		part := &p.Parts[i]
		if part.Plugin == "" {
			part.Plugin = "qmake"
		}
		if part.Source == "" {
			part.Source = "."
		}
		if !filepath.IsAbs(part.Source) {
			part.Source = filepath.Join(p.Dir, part.Source)
		}
		if part.ProjectFile == "" {
			part.ProjectFile = part.Name + ".pro"
		}
	}
	return nil
}

// Validate checks the project as a whole. use entries may only name parts
// declared earlier in the file.
func (p *Project) Validate() error {
	if len(p.Parts) == 0 {
		return ErrNoParts
	}
	if p.Parallel < 1 {
		return fmt.Errorf("%w: parallel-build-count %d", buildsys.ErrParallel, p.Parallel)
	}
	seen := make(map[string]bool, len(p.Parts))
	for _, part := range p.Parts {
		if part.Name == "" {
			return errors.New("config: part without a name")
		}
		if strings.ContainsAny(part.Name, `/\`) || part.Name == "." || part.Name == ".." {
			return fmt.Errorf("config: invalid part name %q", part.Name)
		}
		if seen[part.Name] {
			return fmt.Errorf("config: duplicate part %q", part.Name)
		}
		if part.Plugin != "qmake" {
			return fmt.Errorf("%w %q in part %q", ErrUnknownPlugin, part.Plugin, part.Name)
		}
		for _, dep := range part.Use {
			if !seen[dep] {
				return fmt.Errorf("%w %q used by %q (parts may only use parts declared before them)", ErrUnknownPart, dep, part.Name)
			}
		}
		seen[part.Name] = true
	}
	return nil
}

// Select returns the named parts in file order, or all parts when names is empty.
func (p *Project) Select(names []string) ([]Part, error) {
	if len(names) == 0 {
		return slices.Clone(p.Parts), nil
	}
	for _, name := range names {
		if !slices.ContainsFunc(p.Parts, func(part Part) bool { return part.Name == name }) {
			return nil, fmt.Errorf("%w %q", ErrUnknownPart, name)
		}
	}
	var out []Part
	for _, part := range p.Parts {
		if slices.Contains(names, part.Name) {
			out = append(out, part)
		}
	}
	return out, nil
}

// Layout returns the directory layout under the work directory.
func (p *Project) Layout() env.Layout {
	return env.Layout{Root: p.WorkDir}
}

// BuildContext turns a part into the context a build step runs with.
func (p *Project) BuildContext(part Part) buildsys.BuildContext {
	l := p.Layout()
	return buildsys.BuildContext{
		SourceDir:   part.Source,
		BuildDir:    l.BuildDir(part.Name),
		InstallDir:  l.InstallDir(part.Name),
		ProjectFile: part.ProjectFile,
		Parallel:    p.Parallel,
	}
}

// UseDirs returns the install directories of the parts part uses.
func (p *Project) UseDirs(part Part) []string {
	dirs := make([]string, 0, len(part.Use))
	for _, dep := range part.Use {
		dirs = append(dirs, p.Layout().InstallDir(dep))
	}
	return dirs
}
