// Package qmake drives qmake-based builds: qmake writes a Makefile, make builds
// and installs it.
package qmake

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/nuttyartist/notes/pkgs/buildsys"
)

// QMake wraps the qmake, make, make install sequence with chainable configuration.
type QMake struct {
	runner      buildsys.Runner
	sourceDir   string
	buildDir    string
	installDir  string
	projectFile string
	jobs        int
	options     []string
	useArgs     []string
	env         map[string]string
}

var _ buildsys.BuildSystem = (*QMake)(nil)

// New returns a ready-to-use QMake that runs tools as child processes.
func New(sourceDir, buildDir, installDir string) *QMake {
	return &QMake{
		runner:     &buildsys.ExecRunner{},
		sourceDir:  sourceDir,
		buildDir:   buildDir,
		installDir: installDir,
	}
}

// Runner replaces the process runner.
func (q *QMake) Runner(r buildsys.Runner) *QMake {
	q.runner = r
	return q
}

// Source overrides the source directory.
func (q *QMake) Source(dir string) { q.sourceDir = dir }

// InstallDir overrides the install prefix.
func (q *QMake) InstallDir(dir string) { q.installDir = dir }

// ProjectFile sets the .pro file name looked up in the build directory.
func (q *QMake) ProjectFile(name string) *QMake {
	q.projectFile = name
	return q
}

// Jobs sets the -j value passed to make. Zero leaves it to make.
func (q *QMake) Jobs(n int) *QMake {
	q.jobs = n
	return q
}

// Option appends extra qmake arguments, e.g. "CONFIG+=release".
func (q *QMake) Option(args ...string) *QMake {
	q.options = append(q.options, args...)
	return q
}

// Env sets key=value for every command spawned later.
func (q *QMake) Env(key, value string) {
	if q.env == nil {
		q.env = make(map[string]string)
	}
	q.env[key] = value
}

// Use makes headers, libraries and pkg-config files installed under root
// visible to the commands spawned later. Include and library dirs reach the
// generated Makefile as INCLUDEPATH and LIBS assignments, since qmake does
// not read CPPFLAGS or LDFLAGS.
func (q *QMake) Use(root string) {
	includeDir := filepath.Join(root, "include")
	libDir := filepath.Join(root, "lib")
	pkgconfigDir := filepath.Join(libDir, "pkgconfig")

	if _, err := os.Stat(pkgconfigDir); err == nil {
		q.prependPath("PKG_CONFIG_PATH", pkgconfigDir)
	}
	q.prependPath("CMAKE_PREFIX_PATH", root)

	if _, err := os.Stat(includeDir); err == nil {
		q.useArgs = append(q.useArgs, "INCLUDEPATH+="+quote(includeDir))
		if runtime.GOOS == "windows" {
			q.prependPath("INCLUDE", includeDir)
		}
	}
	if _, err := os.Stat(libDir); err == nil {
		q.useArgs = append(q.useArgs, "LIBS+=-L"+quote(libDir))
		if runtime.GOOS == "windows" {
			q.prependPath("LIB", libDir)
		}
	}
}

// Configure runs "qmake PREFIX=<install> <build>/<project> -o <build>/Makefile".
// Assignments from Use, options and extra args follow in that order.
func (q *QMake) Configure(ctx context.Context, args ...string) error {
	if q.buildDir != "" {
		if err := os.MkdirAll(q.buildDir, 0o755); err != nil {
			return err
		}
	}
	return q.run(ctx, "configure", q.ConfigureCommand(args...))
}

// Build runs "make -j<jobs>" in the build directory.
func (q *QMake) Build(ctx context.Context, args ...string) error {
	return q.run(ctx, "build", q.BuildCommand(args...))
}

// Install runs "make install" in the build directory.
func (q *QMake) Install(ctx context.Context, args ...string) error {
	return q.run(ctx, "install", q.InstallCommand(args...))
}

// OutputDir returns installDir if set, otherwise buildDir.
func (q *QMake) OutputDir() string {
	if q.installDir != "" {
		return q.installDir
	}
	return q.buildDir
}

// ConfigureCommand returns the qmake invocation without running it.
func (q *QMake) ConfigureCommand(args ...string) buildsys.Command {
	qargs := make([]string, 0, 4+len(q.useArgs)+len(q.options)+len(args))
	if q.installDir != "" {
		qargs = append(qargs, "PREFIX="+q.installDir)
	}
	qargs = append(qargs, filepath.Join(q.buildDir, q.project()), "-o", filepath.Join(q.buildDir, "Makefile"))
	qargs = append(qargs, q.useArgs...)
	qargs = append(qargs, q.options...)
	qargs = append(qargs, args...)
	return q.command("qmake", qargs)
}

// BuildCommand returns the make invocation without running it.
func (q *QMake) BuildCommand(args ...string) buildsys.Command {
	margs := make([]string, 0, 1+len(args))
	if q.jobs > 0 {
		margs = append(margs, "-j"+strconv.Itoa(q.jobs))
	}
	return q.command("make", append(margs, args...))
}

// InstallCommand returns the make install invocation without running it.
func (q *QMake) InstallCommand(args ...string) buildsys.Command {
	return q.command("make", append([]string{"install"}, args...))
}

// project defaults to "<source dir name>.pro", which is what qmake itself
// looks for when it is given a directory.
func (q *QMake) project() string {
	if q.projectFile != "" {
		return q.projectFile
	}
	return filepath.Base(q.sourceDir) + ".pro"
}

func (q *QMake) command(name string, args []string) buildsys.Command {
	cmd := buildsys.Command{Name: name, Args: args, Dir: q.buildDir}
	if len(q.env) > 0 {
		cmd.Env = make(map[string]string, len(q.env))
		for k, v := range q.env {
			cmd.Env[k] = v
		}
	}
	return cmd
}

func (q *QMake) run(ctx context.Context, phase string, cmd buildsys.Command) error {
	if err := q.runner.Run(ctx, cmd); err != nil {
		return buildsys.NewToolError(cmd.Name, phase, err)
	}
	return nil
}

// getenv reads key from the pending overrides first, then the process.
func (q *QMake) getenv(key string) string {
	if v, ok := q.env[key]; ok {
		return v
	}
	return os.Getenv(key)
}

// prependPath prepends value to a PATH-style env var.
func (q *QMake) prependPath(key, value string) {
	sep := string(os.PathListSeparator)
	if cur := q.getenv(key); cur != "" {
		value += sep + cur
	}
	q.Env(key, value)
}

// quote wraps paths containing blanks so qmake keeps them as one value.
func quote(path string) string {
	if strings.ContainsAny(path, " \t") {
		return `"` + path + `"`
	}
	return path
}
