package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nuttyartist/notes/internal/config"
	"github.com/nuttyartist/notes/internal/lockedfile"
	"github.com/nuttyartist/notes/pkgs/buildsys"
	"github.com/nuttyartist/notes/pkgs/buildsys/qmake"
	"github.com/nuttyartist/notes/pkgs/buildsys/stage"
	"github.com/qiniu/x/log"
)

// ErrNotBuilt is returned when a part uses a part that has no install dir yet.
var ErrNotBuilt = errors.New("build: used part has not been built")

// Options configures a Builder.
type Options struct {
	Project *config.Project
	Runner  buildsys.Runner // defaults to an ExecRunner on os.Stdout/os.Stderr
	Stage   qmake.StageFunc // defaults to a stage.Copier that skips the work dir
	Force   bool            // rebuild even when the cache is fresh
}

// Builder builds the parts of a project one after another.
type Builder struct {
	proj   *config.Project
	runner buildsys.Runner
	stage  qmake.StageFunc
	force  bool
}

// Result describes one built (or cached) part.
type Result struct {
	Part      string
	OutputDir string
	Cached    bool
	Manifest  []FileEntry
	BuildTime time.Time
}

func NewBuilder(opts Options) (*Builder, error) {
	if opts.Project == nil {
		return nil, errors.New("build: no project")
	}
	b := &Builder{
		proj:   opts.Project,
		runner: opts.Runner,
		stage:  opts.Stage,
		force:  opts.Force,
	}
	if b.runner == nil {
		b.runner = &buildsys.ExecRunner{}
	}
	if b.stage == nil {
		b.stage = stage.Copier{
			Exclude: stage.DefaultExclude,
			Skip:    []string{opts.Project.WorkDir},
		}.Stage
	}
	return b, nil
}

// Build builds parts in the given order and stops at the first failure.
// Results of the parts built before the failure are returned with the error.
func (b *Builder) Build(ctx context.Context, parts []config.Part) ([]Result, error) {
	results := make([]Result, 0, len(parts))
	for _, part := range parts {
		res, err := b.buildPart(ctx, part)
		if err != nil {
			return results, fmt.Errorf("part %s: %w", part.Name, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (b *Builder) buildPart(ctx context.Context, part config.Part) (Result, error) {
	bc := b.proj.BuildContext(part)
	if err := bc.Validate(); err != nil {
		return Result{}, err
	}
	l := b.proj.Layout()
	uses := b.proj.UseDirs(part)
	used := make([]usedPart, len(uses))
	for i, dir := range uses {
		if _, err := os.Stat(dir); err != nil {
			return Result{}, fmt.Errorf("%w: %s", ErrNotBuilt, part.Use[i])
		}
		cache, err := loadBuildCache(filepath.Join(l.StateDir(part.Use[i]), cacheFile))
		if err != nil {
			return Result{}, fmt.Errorf("%w: %s", ErrNotBuilt, part.Use[i])
		}
		used[i] = usedPart{InstallDir: dir, Fingerprint: cache.Fingerprint}
	}

	stateDir := l.StateDir(part.Name)
	unlock, err := lockedfile.MutexAt(filepath.Join(stateDir, lockFile)).Lock()
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	fp, err := fingerprint(part, bc, used, b.proj.WorkDir)
	if err != nil {
		return Result{}, fmt.Errorf("fingerprint: %w", err)
	}
	cachePath := filepath.Join(stateDir, cacheFile)

	// Check the cache only after taking the lock; another process may have just built it.
	if !b.force {
		if cache, err := loadBuildCache(cachePath); err == nil && cache.Fingerprint == fp {
			if _, err := os.Stat(bc.InstallDir); err == nil {
				log.Infof("build: %s is up to date", part.Name)
				return Result{
					Part:      part.Name,
					OutputDir: bc.InstallDir,
					Cached:    true,
					Manifest:  cache.Manifest,
					BuildTime: cache.BuildTime,
				}, nil
			}
		}
	}

	if part.QtVersion != "" {
		if err := qmake.CheckQtVersion(ctx, b.runner, part.QtVersion); err != nil {
			return Result{}, err
		}
	}

	step := &qmake.Step{
		Runner:  b.runner,
		Stage:   b.stage,
		Options: part.Options,
		Env:     part.Environment,
		Uses:    uses,
	}
	log.Debugf("build: %s: %+v", part.Name, bc)
	if err := step.Execute(ctx, bc); err != nil {
		return Result{}, err
	}

	manifest, err := Manifest(bc.InstallDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Result{}, fmt.Errorf("manifest: %w", err)
	}
	cache := buildCache{
		Fingerprint: fp,
		Manifest:    manifest,
		BuildTime:   time.Now(),
	}
	if err := saveBuildCache(cachePath, &cache); err != nil {
		return Result{}, err
	}
	log.Infof("build: %s done, %d files installed", part.Name, len(manifest))

	return Result{
		Part:      part.Name,
		OutputDir: bc.InstallDir,
		Manifest:  manifest,
		BuildTime: cache.BuildTime,
	}, nil
}

// Clean removes the build, install and state directories of parts.
func (b *Builder) Clean(parts []config.Part) error {
	l := b.proj.Layout()
	for _, part := range parts {
		unlock, err := lockedfile.MutexAt(filepath.Join(l.StateDir(part.Name), lockFile)).Lock()
		if err != nil {
			return err
		}
		for _, dir := range []string{l.BuildDir(part.Name), l.InstallDir(part.Name)} {
			if err := os.RemoveAll(dir); err != nil {
				unlock()
				return err
			}
		}
		if err := os.Remove(filepath.Join(l.StateDir(part.Name), cacheFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
			unlock()
			return err
		}
		unlock()
		log.Infof("clean: %s", part.Name)
	}
	return nil
}
