package interp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"bellos/expand"
	"bellos/syntax"
)

// ioStreams is threaded explicitly through execution instead of living on
// Runner, so that a pipeline's concurrent stages and a background job's
// detached goroutine each see their own streams without racing on a
// shared field.
type ioStreams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// errExit unwinds execution up to Run for the `exit` builtin.
type errExit int

func (e errExit) Error() string { return fmt.Sprintf("exit %d", int(e)) }

// errReturn unwinds execution up to the enclosing function call.
type errReturn int

func (e errReturn) Error() string { return fmt.Sprintf("return %d", int(e)) }

// errBreak and errContinue unwind up to the innermost enclosing loop. The
// builtins always carry a count of 1, and loops do not look at it.
type errBreak int

func (e errBreak) Error() string { return "break" }

type errContinue int

func (e errContinue) Error() string { return "continue" }

func (r *Runner) expandConfig(strm ioStreams) *expand.Config {
	return &expand.Config{
		Env:        envAdapter{r},
		Dir:        r.Dir,
		IFS:        r.ifs,
		NoGlob:     r.noGlob,
		Params:     r.params,
		LastStatus: r.lastStatus,
		PID:        r.pid,
		LastBgPID:  r.jobs.lastBgPID(),
		CmdSubst: func(ctx context.Context, raw string) (string, error) {
			return r.runCmdSubst(ctx, raw, strm)
		},
	}
}

func (r *Runner) runCmdSubst(ctx context.Context, raw string, parent ioStreams) (string, error) {
	file, err := syntax.ParseBytes([]byte(raw), "<command substitution>")
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	sub := ioStreams{Stdin: parent.Stdin, Stdout: &buf, Stderr: parent.Stderr}

	saved := r.cur
	r.cur = newScope(r.global)
	defer func() { r.cur = saved }()

	if err := r.runStmts(ctx, file.Stmts, sub); err != nil {
		if _, ok := err.(errExit); !ok {
			return "", err
		}
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func (r *Runner) runStmts(ctx context.Context, stmts []*syntax.Stmt, strm ioStreams) error {
	for _, st := range stmts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.runStmt(ctx, st, strm); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runStmt(ctx context.Context, st *syntax.Stmt, parent ioStreams) error {
	for _, a := range st.Assigns {
		val, err := expand.ExpandLiteral(ctx, r.expandConfig(parent), a.Value)
		if err != nil {
			return r.reportExpand(err, parent)
		}
		r.cur.set(a.Name, expand.Variable{Value: val, Set: true})
	}

	if st.Cmd == nil {
		r.lastStatus = 0
		return nil
	}

	strm := parent
	var closers []io.Closer
	if len(st.Redirs) > 0 {
		var err error
		strm, closers, err = r.applyRedirs(ctx, st.Redirs, parent)
		defer func() {
			for _, c := range closers {
				c.Close()
			}
		}()
		if err != nil {
			return r.reportExpand(err, parent)
		}
	}

	run := func() error { return r.runCommand(ctx, st.Cmd, strm) }

	if st.Background {
		r.spawnBg(func() int {
			if err := run(); err != nil {
				if ee, ok := err.(errExit); ok {
					return int(ee)
				}
				return 1
			}
			return r.lastStatus
		})
		r.lastStatus = 0
		return nil
	}

	err := run()
	if st.Negated {
		switch err.(type) {
		case errExit, errReturn, errBreak, errContinue:
			return err
		default:
			r.lastStatus = boolToStatus(r.lastStatus != 0)
			return nil
		}
	}
	return err
}

func boolToStatus(failed bool) int {
	if failed {
		return 0
	}
	return 1
}

// reportExpand turns an expansion-time error (bad arithmetic, ${x:?msg},
// a failed redirection, ...) into the usual "print to stderr, set
// $?=1, keep going" shell behavior rather than aborting the whole script.
func (r *Runner) reportExpand(err error, strm ioStreams) error {
	fmt.Fprintf(strm.Stderr, "bellos: %s\n", err)
	r.lastStatus = 1
	return nil
}

func (r *Runner) runCommand(ctx context.Context, cmd syntax.Command, strm ioStreams) error {
	switch c := cmd.(type) {
	case *syntax.Simple:
		return r.runSimple(ctx, c, strm)
	case *syntax.Pipeline:
		return r.runPipeline(ctx, c, strm)
	case *syntax.BinaryList:
		return r.runBinaryList(ctx, c, strm)
	case *syntax.If:
		return r.runIf(ctx, c, strm)
	case *syntax.While:
		return r.runWhile(ctx, c, strm)
	case *syntax.For:
		return r.runFor(ctx, c, strm)
	case *syntax.Case:
		return r.runCase(ctx, c, strm)
	case *syntax.Group:
		return r.runStmts(ctx, c.Body, strm)
	case *syntax.Subshell:
		return r.runSubshell(ctx, c, strm)
	case *syntax.FuncDecl:
		r.funcs[c.Name] = c
		r.lastStatus = 0
		return nil
	}
	return fmt.Errorf("bellos: unsupported command %T", cmd)
}

func (r *Runner) runBinaryList(ctx context.Context, b *syntax.BinaryList, strm ioStreams) error {
	if err := r.runStmt(ctx, b.X, strm); err != nil {
		return err
	}
	switch b.Op {
	case syntax.AndList:
		if r.lastStatus != 0 {
			return nil
		}
	case syntax.OrList:
		if r.lastStatus == 0 {
			return nil
		}
	}
	return r.runStmt(ctx, b.Y, strm)
}

// forkForStage returns an independent Runner for one concurrent pipeline
// stage: its own deep-cloned scope chain and function table so assignments,
// `cd`, and function (re)definitions inside the stage never touch the
// caller's state, while still sharing the same background-job table so a
// `cmd &` started inside a stage is reaped along with every other job. This
// mirrors the teacher's per-stage Runner copy, adapted to bellos's simpler
// scope-chain model in place of its overlay environment.
func (r *Runner) forkForStage() *Runner {
	cur := cloneScopeChain(r.cur)
	global := cur
	for global.parent != nil {
		global = global.parent
	}
	funcs := make(map[string]*syntax.FuncDecl, len(r.funcs))
	for name, fn := range r.funcs {
		funcs[name] = fn
	}
	return &Runner{
		Stdout:      r.Stdout,
		Stderr:      r.Stderr,
		Dir:         r.Dir,
		Exec:        r.Exec,
		Interactive: r.Interactive,
		global:      global,
		cur:         cur,
		funcs:       funcs,
		params:      append([]string(nil), r.params...),
		lastStatus:  r.lastStatus,
		pid:         r.pid,
		jobs:        r.jobs,
		ifs:         r.ifs,
		noGlob:      r.noGlob,
	}
}

func (r *Runner) runPipeline(ctx context.Context, p *syntax.Pipeline, parent ioStreams) error {
	n := len(p.Stages)
	if n == 0 {
		return nil
	}
	if n == 1 {
		err := r.runStmt(ctx, p.Stages[0], parent)
		if p.Negated {
			r.lastStatus = boolToStatus(r.lastStatus != 0)
		}
		return err
	}

	readers := make([]*io.PipeReader, n-1)
	writers := make([]*io.PipeWriter, n-1)
	for i := range readers {
		readers[i], writers[i] = io.Pipe()
	}

	g, gctx := errgroup.WithContext(ctx)
	statuses := make([]int, n)
	for i := 0; i < n; i++ {
		i := i
		st := p.Stages[i]
		stageIO := parent
		if i > 0 {
			stageIO.Stdin = readers[i-1]
		}
		if i < n-1 {
			stageIO.Stdout = writers[i]
		}
		// Every stage, including the last, runs against its own forked
		// Runner so concurrent stages never race on or mutate the shared
		// scope, last status, or function table: an assignment or `cd`
		// inside any stage stays local to that stage, matching a forked
		// subshell. r.lastStatus is set once, synchronously, from the last
		// stage's snapshot after every goroutine has finished.
		stageRunner := r.forkForStage()
		g.Go(func() error {
			err := stageRunner.runStmt(gctx, st, stageIO)
			if i > 0 {
				readers[i-1].Close()
			}
			if i < n-1 {
				writers[i].Close()
			}
			statuses[i] = stageRunner.lastStatus
			if err != nil {
				if ee, ok := err.(errExit); ok {
					statuses[i] = int(ee)
					return err
				}
				return err
			}
			return nil
		})
	}
	err := g.Wait()
	r.lastStatus = statuses[n-1]
	if p.Negated {
		r.lastStatus = boolToStatus(r.lastStatus != 0)
	}
	return err
}

func (r *Runner) runIf(ctx context.Context, ic *syntax.If, strm ioStreams) error {
	if err := r.runStmts(ctx, ic.Cond, strm); err != nil {
		return err
	}
	if r.lastStatus == 0 {
		return r.runStmts(ctx, ic.Then, strm)
	}
	for _, elif := range ic.Elifs {
		if err := r.runStmts(ctx, elif.Cond, strm); err != nil {
			return err
		}
		if r.lastStatus == 0 {
			return r.runStmts(ctx, elif.Then, strm)
		}
	}
	if ic.Else != nil {
		return r.runStmts(ctx, ic.Else, strm)
	}
	r.lastStatus = 0
	return nil
}

func (r *Runner) runWhile(ctx context.Context, w *syntax.While, strm ioStreams) error {
	for {
		if err := r.runStmts(ctx, w.Cond, strm); err != nil {
			return err
		}
		cont := r.lastStatus == 0
		if w.Until {
			cont = !cont
		}
		if !cont {
			r.lastStatus = 0
			return nil
		}
		if err := r.runStmts(ctx, w.Body, strm); err != nil {
			if _, ok := err.(errBreak); ok {
				r.lastStatus = 0
				return nil
			}
			if _, ok := err.(errContinue); ok {
				continue
			}
			return err
		}
	}
}

func (r *Runner) runFor(ctx context.Context, f *syntax.For, strm ioStreams) error {
	var words []string
	if f.HasWords {
		var err error
		words, err = expand.Fields(ctx, r.expandConfig(strm), f.Words)
		if err != nil {
			return r.reportExpand(err, strm)
		}
	} else {
		words = r.params
	}
	for _, w := range words {
		r.cur.set(f.Name, expand.Variable{Value: w, Set: true})
		if err := r.runStmts(ctx, f.Body, strm); err != nil {
			if _, ok := err.(errBreak); ok {
				break
			}
			if _, ok := err.(errContinue); ok {
				continue
			}
			return err
		}
	}
	r.lastStatus = 0
	return nil
}

func (r *Runner) runCase(ctx context.Context, c *syntax.Case, strm ioStreams) error {
	word, err := expand.ExpandLiteral(ctx, r.expandConfig(strm), c.Word)
	if err != nil {
		return r.reportExpand(err, strm)
	}
	for _, arm := range c.Arms {
		for _, patWord := range arm.Patterns {
			pat, err := expand.ExpandLiteral(ctx, r.expandConfig(strm), patWord)
			if err != nil {
				return r.reportExpand(err, strm)
			}
			if expand.MatchPattern(pat, word) {
				return r.runStmts(ctx, arm.Body, strm)
			}
		}
	}
	r.lastStatus = 0
	return nil
}

func (r *Runner) runSubshell(ctx context.Context, s *syntax.Subshell, strm ioStreams) error {
	savedScope, savedDir := r.cur, r.Dir
	r.cur = newScope(r.global)
	defer func() {
		r.cur = savedScope
		r.Dir = savedDir
	}()
	return r.runStmts(ctx, s.Body, strm)
}

func (r *Runner) runSimple(ctx context.Context, s *syntax.Simple, strm ioStreams) error {
	fields, err := expand.Fields(ctx, r.expandConfig(strm), s.Words)
	if err != nil {
		return r.reportExpand(err, strm)
	}
	if len(fields) == 0 {
		r.lastStatus = 0
		return nil
	}
	name, args := fields[0], fields[1:]

	if fn, ok := r.funcs[name]; ok {
		return r.callFunc(ctx, fn, args, strm)
	}
	if bi, ok := builtins[name]; ok {
		status, err := bi(ctx, r, strm, args)
		if err != nil {
			return err
		}
		r.lastStatus = status
		return nil
	}

	hc := HandlerContext{
		Dir:    r.Dir,
		Env:    r.exportedEnviron(),
		Stdin:  strm.Stdin,
		Stdout: strm.Stdout,
		Stderr: strm.Stderr,
	}
	if hc.Stdin == nil {
		hc.Stdin = os.Stdin
	}
	err = r.Exec(ctx, hc, fields)
	if err == nil {
		r.lastStatus = 0
		return nil
	}
	if es, ok := err.(ExitStatus); ok {
		r.lastStatus = int(es)
		return nil
	}
	return err
}

func (r *Runner) callFunc(ctx context.Context, fn *syntax.FuncDecl, args []string, strm ioStreams) error {
	savedScope, savedParams := r.cur, r.params
	r.cur = newScope(r.global)
	r.params = args
	defer func() {
		r.cur = savedScope
		r.params = savedParams
	}()

	err := r.runStmt(ctx, fn.Body, strm)
	if re, ok := err.(errReturn); ok {
		r.lastStatus = int(re)
		return nil
	}
	return err
}
