// Package interp walks the syntax tree produced by the syntax package and
// runs it: it owns variable scopes, function definitions, background
// jobs, and the builtin/external command dispatch.
package interp

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"bellos/expand"
	"bellos/syntax"
)

// Runner executes a parsed [syntax.File]. Build one with [New], which
// applies a list of [Option] values, then call [Runner.Run].
type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Dir  string
	Exec ExecHandlerFunc

	// Interactive records whether the runner reads from a terminal. It is
	// copied into pipeline-stage forks; the runner's own behavior does not
	// depend on it.
	Interactive bool

	global *scope
	cur    *scope
	funcs  map[string]*syntax.FuncDecl

	params     []string
	lastStatus int
	pid        int

	// jobs is a pointer, not embedded fields, so a pipeline-stage fork (see
	// forkForStage) can share it with the Runner it was copied from instead
	// of starting its own disconnected table.
	jobs *jobTable

	ifs    string
	noGlob bool
}

// Option configures a [Runner] built by [New].
type Option func(*Runner) error

// StdIO sets the three standard streams. A nil argument leaves the
// corresponding default (nothing for Stdin, io.Discard for Stdout/Stderr)
// in place.
func StdIO(in io.Reader, out, err io.Writer) Option {
	return func(r *Runner) error {
		if in != nil {
			r.Stdin = in
		}
		if out != nil {
			r.Stdout = out
		}
		if err != nil {
			r.Stderr = err
		}
		return nil
	}
}

// Dir sets the runner's initial working directory. It must be an
// absolute, existing directory.
func Dir(path string) Option {
	return func(r *Runner) error {
		if path == "" {
			return nil
		}
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("dir: %q is not a directory", path)
		}
		r.Dir = path
		return nil
	}
}

// Env seeds the global scope from a slice of "NAME=value" strings (the
// same shape as [os.Environ]), marking every entry exported.
func Env(environ []string) Option {
	return func(r *Runner) error {
		for _, kv := range environ {
			name, value, ok := strings.Cut(kv, "=")
			if !ok {
				continue
			}
			r.global.vars[name] = expand.Variable{Value: value, Set: true, Exported: true}
		}
		return nil
	}
}

// Params sets the initial positional parameters ($1, $2, ...).
func Params(args []string) Option {
	return func(r *Runner) error {
		r.params = append([]string(nil), args...)
		return nil
	}
}

// IFS overrides the default field separator (space, tab, newline).
func IFS(ifs string) Option {
	return func(r *Runner) error {
		r.ifs = ifs
		return nil
	}
}

// New builds a Runner, applying opts in order.
func New(opts ...Option) (*Runner, error) {
	r := &Runner{
		Stdout: io.Discard,
		Stderr: io.Discard,
		Exec:   DefaultExecHandler,
		funcs:  make(map[string]*syntax.FuncDecl),
		pid:    os.Getpid(),
		jobs:   newJobTable(),
	}
	r.global = newScope(nil)
	r.cur = r.global
	if wd, err := os.Getwd(); err == nil {
		r.Dir = wd
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Exit returns the exit status of the most recently run top-level
// statement, in the same sense as $?.
func (r *Runner) Exit() int { return r.lastStatus }

// Run executes every top-level statement in f in sequence, under ctx.
// It returns a non-nil error only for a fatal condition such as ctx being
// cancelled. `exit` stops the run with a nil error and sets r.Exit() to its
// status; ordinary command failures are likewise reflected in r.Exit(),
// not in the returned error.
func (r *Runner) Run(ctx context.Context, f *syntax.File) error {
	streams := ioStreams{Stdin: r.Stdin, Stdout: r.Stdout, Stderr: r.Stderr}
	err := r.runStmts(ctx, f.Stmts, streams)
	if ee, ok := err.(errExit); ok {
		r.lastStatus = int(ee)
		return nil
	}
	return err
}

// parseScript parses data as a bellos script named name, for `.`/`source`.
func parseScript(data []byte, name string) (*syntax.File, error) {
	return syntax.ParseBytes(data, name)
}
