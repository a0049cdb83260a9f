package qmake

import (
	"context"
	"fmt"

	"github.com/nuttyartist/notes/pkgs/buildsys"
	"github.com/nuttyartist/notes/pkgs/buildsys/stage"
	"github.com/qiniu/x/log"
)

// StageFunc copies a source tree into a build directory.
type StageFunc func(ctx context.Context, src, dst string) error

// Step builds one qmake project: stage the sources, run qmake, make and
// make install. The first failure aborts the rest; nothing is retried or
// cleaned up.
type Step struct {
	Runner  buildsys.Runner // defaults to an ExecRunner
	Stage   StageFunc       // defaults to stage.Copy
	Options []string        // extra qmake arguments
	Env     map[string]string
	Uses    []string // install roots of parts built earlier
}

// Execute runs the whole sequence for bc.
func (s *Step) Execute(ctx context.Context, bc buildsys.BuildContext) error {
	if err := bc.Validate(); err != nil {
		return err
	}

	stageFn := s.Stage
	if stageFn == nil {
		stageFn = stage.Copy
	}
	log.Infof("qmake: staging %s into %s", bc.SourceDir, bc.BuildDir)
	if err := stageFn(ctx, bc.SourceDir, bc.BuildDir); err != nil {
		return fmt.Errorf("stage: %w", err)
	}

	q := s.helper(bc)
	for _, phase := range []struct {
		name string
		run  func(context.Context, ...string) error
	}{
		{"configure", q.Configure},
		{"build", q.Build},
		{"install", q.Install},
	} {
		log.Infof("qmake: %s %s", phase.name, bc.ProjectFile)
		if err := phase.run(ctx); err != nil {
			log.Warnf("qmake: %s failed: %v", phase.name, err)
			return err
		}
	}
	log.Infof("qmake: installed %s into %s", bc.ProjectFile, bc.InstallDir)
	return nil
}

// Plan returns the commands Execute would run for bc, in order.
func (s *Step) Plan(bc buildsys.BuildContext) ([]buildsys.Command, error) {
	if err := bc.Validate(); err != nil {
		return nil, err
	}
	q := s.helper(bc)
	return []buildsys.Command{
		q.ConfigureCommand(),
		q.BuildCommand(),
		q.InstallCommand(),
	}, nil
}

func (s *Step) helper(bc buildsys.BuildContext) *QMake {
	q := New(bc.SourceDir, bc.BuildDir, bc.InstallDir).
		ProjectFile(bc.ProjectFile).
		Jobs(bc.Parallel).
		Option(s.Options...)
	if s.Runner != nil {
		q.Runner(s.Runner)
	}
	for k, v := range s.Env {
		q.Env(k, v)
	}
	for _, root := range s.Uses {
		q.Use(root)
	}
	return q
}
