package interp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"

	"bellos/expand"
)

// builtinFunc runs a builtin with its already-expanded argument list and
// returns the exit status to assign to $?. A non-nil error is for a
// condition that should unwind execution (`exit`, `return`, `break` and
// `continue` use this, and `.` passes on such a condition from the sourced
// file; every other builtin reports failure through the returned status).
type builtinFunc func(ctx context.Context, r *Runner, strm ioStreams, args []string) (int, error)

var builtins map[string]builtinFunc

func init() {
	builtins = map[string]builtinFunc{
		":":          biTrue,
		"true":       biTrue,
		"false":      biFalse,
		"exit":       biExit,
		"return":     biReturn,
		"break":      biBreak,
		"continue":   biContinue,
		"export":     biExport,
		"unset":      biUnset,
		"cd":         biCd,
		"pwd":        biPwd,
		"echo":       biEcho,
		"read":       biRead,
		"shift":      biShift,
		"set":        biSet,
		".":          biDot,
		"source":     biDot,
		"test":       biTest,
		"[":          biTestBracket,
		"write":      biWrite,
		"append":     biAppend,
		"read_lines": biReadLines,
		"delete":     biDelete,
		"seq":        biSeq,
		"cat":        biCat,
		"ls":         biLs,
		"mv":         biMv,
		"rm":         biRm,
	}
}

func biTrue(context.Context, *Runner, ioStreams, []string) (int, error)  { return 0, nil }
func biFalse(context.Context, *Runner, ioStreams, []string) (int, error) { return 1, nil }

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func biExit(_ context.Context, r *Runner, _ ioStreams, args []string) (int, error) {
	code := r.lastStatus
	if len(args) > 0 {
		code = atoiOr(args[0], 0)
	}
	return 0, errExit(code)
}

func biReturn(_ context.Context, r *Runner, _ ioStreams, args []string) (int, error) {
	code := r.lastStatus
	if len(args) > 0 {
		code = atoiOr(args[0], 0)
	}
	return 0, errReturn(code)
}

func biBreak(context.Context, *Runner, ioStreams, []string) (int, error) { return 0, errBreak(1) }
func biContinue(context.Context, *Runner, ioStreams, []string) (int, error) {
	return 0, errContinue(1)
}

func biExport(_ context.Context, r *Runner, _ ioStreams, args []string) (int, error) {
	for _, a := range args {
		name, value, hasEq := strings.Cut(a, "=")
		vr := r.cur.get(name)
		if hasEq {
			vr.Value = value
			vr.Set = true
		}
		vr.Exported = true
		r.cur.set(name, vr)
	}
	return 0, nil
}

func biUnset(_ context.Context, r *Runner, _ ioStreams, args []string) (int, error) {
	for _, name := range args {
		for sc := r.cur; sc != nil; sc = sc.parent {
			if _, ok := sc.vars[name]; ok {
				delete(sc.vars, name)
				break
			}
		}
	}
	return 0, nil
}

func biCd(_ context.Context, r *Runner, strm ioStreams, args []string) (int, error) {
	dir := ""
	if len(args) > 0 {
		dir = args[0]
	} else {
		home, _ := paramBaseViaEnv(r, "HOME")
		dir = home
	}
	if dir == "" {
		fmt.Fprintln(strm.Stderr, "bellos: cd: HOME not set")
		return 1, nil
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(r.Dir, dir)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		fmt.Fprintf(strm.Stderr, "bellos: cd: %s: not a directory\n", dir)
		return 1, nil
	}
	r.Dir = filepath.Clean(dir)
	return 0, nil
}

func paramBaseViaEnv(r *Runner, name string) (string, bool) {
	vr := r.cur.get(name)
	return vr.Value, vr.Set
}

func biPwd(_ context.Context, r *Runner, strm ioStreams, _ []string) (int, error) {
	fmt.Fprintln(strm.Stdout, r.Dir)
	return 0, nil
}

func biEcho(_ context.Context, _ *Runner, strm ioStreams, args []string) (int, error) {
	fmt.Fprintln(strm.Stdout, strings.Join(args, " "))
	return 0, nil
}

// biRead covers both of bellos's `read` overloads: with no argument, or one
// that does not name an existing regular file, it reads a line from stdin
// into REPLY (or the given variable name), as a special built-in. With one
// argument that does name an existing regular file, it instead cats that
// file's bytes verbatim to stdout, per the extended `read <path>` file
// command — the two forms are told apart by whether the argument resolves
// to a file, since bellos gives both the same name.
func biRead(ctx context.Context, r *Runner, strm ioStreams, args []string) (int, error) {
	if len(args) == 1 {
		if info, err := os.Stat(resolvePath(r, args[0])); err == nil && info.Mode().IsRegular() {
			return biCat(ctx, r, strm, args)
		}
	}

	name := "REPLY"
	if len(args) > 0 {
		name = args[0]
	}
	in := strm.Stdin
	if in == nil {
		in = os.Stdin
	}
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	line = strings.TrimSuffix(line, "\n")
	if err != nil && err != io.EOF {
		return 1, nil
	}
	r.cur.set(name, expand.Variable{Value: line, Set: true})
	if err == io.EOF && line == "" {
		return 1, nil
	}
	return 0, nil
}

func biShift(_ context.Context, r *Runner, strm ioStreams, args []string) (int, error) {
	n := 1
	if len(args) > 0 {
		n = atoiOr(args[0], 1)
	}
	if n > len(r.params) {
		fmt.Fprintln(strm.Stderr, "bellos: shift: too many")
		return 1, nil
	}
	r.params = r.params[n:]
	return 0, nil
}

func biSet(_ context.Context, r *Runner, _ ioStreams, args []string) (int, error) {
	for _, a := range args {
		switch a {
		case "-f":
			r.noGlob = true
		case "+f":
			r.noGlob = false
		default:
			r.params = args
			return 0, nil
		}
	}
	return 0, nil
}

func biDot(ctx context.Context, r *Runner, strm ioStreams, args []string) (int, error) {
	if len(args) == 0 {
		fmt.Fprintln(strm.Stderr, "bellos: .: filename required")
		return 1, nil
	}
	path := args[0]
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.Dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(strm.Stderr, "bellos: .: %s: %v\n", path, err)
		return 1, nil
	}
	file, err := parseScript(data, path)
	if err != nil {
		fmt.Fprintf(strm.Stderr, "bellos: .: %v\n", err)
		return 1, nil
	}
	if err := r.runStmts(ctx, file.Stmts, strm); err != nil {
		if ee, ok := err.(errExit); ok {
			return int(ee), nil
		}
		return 0, err
	}
	return r.lastStatus, nil
}

func biSeq(_ context.Context, _ *Runner, strm ioStreams, args []string) (int, error) {
	start, step := 1, 1
	var end int
	switch len(args) {
	case 1:
		end = atoiOr(args[0], 0)
	case 2:
		start = atoiOr(args[0], 1)
		end = atoiOr(args[1], 0)
	case 3:
		start = atoiOr(args[0], 1)
		step = atoiOr(args[1], 1)
		end = atoiOr(args[2], 0)
	default:
		fmt.Fprintln(strm.Stderr, "bellos: seq: usage: seq [start [step]] end")
		return 1, nil
	}
	if step == 0 {
		fmt.Fprintln(strm.Stderr, "bellos: seq: step cannot be 0")
		return 1, nil
	}
	for n := start; (step > 0 && n <= end) || (step < 0 && n >= end); n += step {
		fmt.Fprintln(strm.Stdout, n)
	}
	return 0, nil
}

func biCat(_ context.Context, r *Runner, strm ioStreams, args []string) (int, error) {
	if len(args) == 0 {
		io.Copy(strm.Stdout, strm.Stdin)
		return 0, nil
	}
	status := 0
	for _, a := range args {
		path := a
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.Dir, path)
		}
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(strm.Stderr, "bellos: cat: %s: %v\n", a, err)
			status = 1
			continue
		}
		io.Copy(strm.Stdout, f)
		f.Close()
	}
	return status, nil
}

func biLs(_ context.Context, r *Runner, strm ioStreams, args []string) (int, error) {
	dir := r.Dir
	if len(args) > 0 {
		dir = args[0]
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(r.Dir, dir)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(strm.Stderr, "bellos: ls: %v\n", err)
		return 1, nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintln(strm.Stdout, n)
	}
	return 0, nil
}

func biMv(_ context.Context, r *Runner, strm ioStreams, args []string) (int, error) {
	if len(args) != 2 {
		fmt.Fprintln(strm.Stderr, "bellos: mv: usage: mv src dst")
		return 1, nil
	}
	src, dst := resolvePath(r, args[0]), resolvePath(r, args[1])
	if err := os.Rename(src, dst); err != nil {
		fmt.Fprintf(strm.Stderr, "bellos: mv: %v\n", err)
		return 1, nil
	}
	return 0, nil
}

func biRm(_ context.Context, r *Runner, strm ioStreams, args []string) (int, error) {
	status := 0
	for _, a := range args {
		if a == "-f" || a == "-r" || a == "-rf" || a == "-fr" {
			continue
		}
		if err := os.Remove(resolvePath(r, a)); err != nil {
			fmt.Fprintf(strm.Stderr, "bellos: rm: %v\n", err)
			status = 1
		}
	}
	return status, nil
}

func biDelete(_ context.Context, r *Runner, strm ioStreams, args []string) (int, error) {
	if len(args) != 1 {
		fmt.Fprintln(strm.Stderr, "bellos: delete: usage: delete file")
		return 1, nil
	}
	if err := os.Remove(resolvePath(r, args[0])); err != nil {
		fmt.Fprintf(strm.Stderr, "bellos: delete: %v\n", err)
		return 1, nil
	}
	return 0, nil
}

func resolvePath(r *Runner, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.Dir, p)
}

// biWrite implements the extended `write FILE TEXT...` builtin:
// atomically replace FILE's contents, via renameio so a crash never
// leaves a half-written file in place.
func biWrite(_ context.Context, r *Runner, strm ioStreams, args []string) (int, error) {
	if len(args) < 1 {
		fmt.Fprintln(strm.Stderr, "bellos: write: usage: write file [text...]")
		return 1, nil
	}
	path := resolvePath(r, args[0])
	content := strings.Join(args[1:], " ") + "\n"
	t, err := renameio.TempFile("", path)
	if err != nil {
		fmt.Fprintf(strm.Stderr, "bellos: write: %v\n", err)
		return 1, nil
	}
	defer t.Cleanup()
	if _, err := io.WriteString(t, content); err != nil {
		fmt.Fprintf(strm.Stderr, "bellos: write: %v\n", err)
		return 1, nil
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		fmt.Fprintf(strm.Stderr, "bellos: write: %v\n", err)
		return 1, nil
	}
	return 0, nil
}

// biAppend implements `append FILE TEXT...`. Appends are not made atomic
// by renameio (it only replaces a whole file), so this uses a plain
// O_APPEND open, documented as a standard-library exception.
func biAppend(_ context.Context, r *Runner, strm ioStreams, args []string) (int, error) {
	if len(args) < 1 {
		fmt.Fprintln(strm.Stderr, "bellos: append: usage: append file [text...]")
		return 1, nil
	}
	path := resolvePath(r, args[0])
	content := strings.Join(args[1:], " ")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(strm.Stderr, "bellos: append: %v\n", err)
		return 1, nil
	}
	defer f.Close()
	if _, err := f.WriteString(content + "\n"); err != nil {
		fmt.Fprintf(strm.Stderr, "bellos: append: %v\n", err)
		return 1, nil
	}
	return 0, nil
}

func biReadLines(_ context.Context, r *Runner, strm ioStreams, args []string) (int, error) {
	if len(args) != 1 {
		fmt.Fprintln(strm.Stderr, "bellos: read_lines: usage: read_lines file")
		return 1, nil
	}
	f, err := os.Open(resolvePath(r, args[0]))
	if err != nil {
		fmt.Fprintf(strm.Stderr, "bellos: read_lines: %v\n", err)
		return 1, nil
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fmt.Fprintln(strm.Stdout, sc.Text())
	}
	return 0, nil
}
