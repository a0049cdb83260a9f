// Package testutil holds test doubles shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/nuttyartist/notes/pkgs/buildsys"
)

// Runner records every command instead of running it.
type Runner struct {
	mu    sync.Mutex
	cmds  []buildsys.Command
	fail  map[int]error
	Reply map[string]string // command line -> text written to its Stdout
	Hook  func(cmd buildsys.Command) error
}

// FailAt makes the n-th command (0-based) return err.
func (r *Runner) FailAt(n int, err error) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail == nil {
		r.fail = make(map[int]error)
	}
	r.fail[n] = err
	return r
}

func (r *Runner) Run(ctx context.Context, cmd buildsys.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	n := len(r.cmds)
	r.cmds = append(r.cmds, cmd)
	err := r.fail[n]
	reply, ok := r.Reply[cmd.String()]
	r.mu.Unlock()

	if err != nil {
		return err
	}
	if r.Hook != nil {
		if err := r.Hook(cmd); err != nil {
			return err
		}
	}
	if ok && cmd.Stdout != nil {
		if _, err := io.WriteString(cmd.Stdout, reply); err != nil {
			return fmt.Errorf("testutil: write reply: %w", err)
		}
	}
	return nil
}

// Commands returns the recorded commands in call order.
func (r *Runner) Commands() []buildsys.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]buildsys.Command(nil), r.cmds...)
}

// Lines returns the recorded commands rendered as command lines.
func (r *Runner) Lines() []string {
	cmds := r.Commands()
	lines := make([]string, len(cmds))
	for i, c := range cmds {
		lines[i] = c.String()
	}
	return lines
}
