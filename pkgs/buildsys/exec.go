package buildsys

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// Command is one external tool invocation.
type Command struct {
	Name string
	Args []string
	Dir  string            // working directory, empty means the current one
	Env  map[string]string // overrides on top of the process environment

	Stdout io.Writer // replaces the runner's stdout when set
}

// String renders the command line the way a shell user would type it.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Runner starts a command and waits for it to finish.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands as child processes. Nil writers fall back to
// os.Stdout and os.Stderr.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (r *ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdout = c.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = r.Stdout
	}
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if len(c.Env) > 0 {
		cmd.Env = mergeEnv(os.Environ(), c.Env)
	}
	return cmd.Run()
}

// ToolError reports a failed external tool invocation.
type ToolError struct {
	Tool     string
	Phase    string
	ExitCode int // -1 when the tool could not be started or was killed
	Err      error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Tool, e.Phase, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// NewToolError wraps err, picking the exit code from an *exec.ExitError when present.
func NewToolError(tool, phase string, err error) *ToolError {
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &ToolError{Tool: tool, Phase: phase, ExitCode: code, Err: err}
}

// mergeEnv returns base with every key in overrides replaced or appended.
// Appended keys are sorted so the resulting environment is stable.
func mergeEnv(base []string, overrides map[string]string) []string {
	out := make([]string, len(base), len(base)+len(overrides))
	copy(out, base)
	idx := make(map[string]int, len(out))
	for i, kv := range out {
		if k, _, ok := strings.Cut(kv, "="); ok {
			idx[k] = i
		}
	}
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if i, ok := idx[k]; ok {
			out[i] = k + "=" + overrides[k]
		} else {
			out = append(out, k+"="+overrides[k])
		}
	}
	return out
}
