// Command bellos runs bellos scripts, or an interactive read-eval-print
// loop when given none.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"golang.org/x/term"

	"bellos/config"
	"bellos/interp"
	"bellos/syntax"
)

func main() {
	os.Exit(main1())
}

func main1() int {
	return run(os.Args[1:])
}

func run(args []string) int {
	fs := flag.NewFlagSet("bellos", flag.ContinueOnError)
	cmdStr := fs.String("c", "", "run the given command string instead of a script file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "bellos: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := []interp.Option{
		interp.StdIO(os.Stdin, os.Stdout, os.Stderr),
		interp.Env(environWithExtraPath(cfg.ExtraPath)),
	}
	if cfg.IFS != "" {
		opts = append(opts, interp.IFS(cfg.IFS))
	}

	rest := fs.Args()

	switch {
	case *cmdStr != "":
		opts = append(opts, interp.Params(rest))
		r, err := interp.New(opts...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bellos: %v\n", err)
			return 1
		}
		return runString(ctx, r, *cmdStr)

	case len(rest) > 0:
		opts = append(opts, interp.Params(rest[1:]))
		r, err := interp.New(opts...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bellos: %v\n", err)
			return 1
		}
		return runPath(ctx, r, rest[0])

	default:
		r, err := interp.New(opts...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bellos: %v\n", err)
			return 1
		}
		r.Interactive = term.IsTerminal(int(os.Stdin.Fd()))
		prompt := cfg.InteractivePrompt
		if prompt == "" {
			prompt = "$ "
		}
		return runInteractive(ctx, r, prompt)
	}
}

// environWithExtraPath returns os.Environ() with the config file's
// extra_path directories appended to PATH, so bellosrc.toml's extra_path
// entries are actually searched by command lookup.
func environWithExtraPath(extra []string) []string {
	environ := os.Environ()
	if len(extra) == 0 {
		return environ
	}
	addition := strings.Join(extra, string(os.PathListSeparator))
	for i, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if ok && name == "PATH" {
			environ[i] = "PATH=" + value + string(os.PathListSeparator) + addition
			return environ
		}
	}
	return append(environ, "PATH="+addition)
}

func runString(ctx context.Context, r *interp.Runner, src string) int {
	file, err := syntax.Parse(strings.NewReader(src), "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "bellos: %v\n", err)
		return 1
	}
	return runFile(ctx, r, file)
}

func runPath(ctx context.Context, r *interp.Runner, path string) int {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bellos: %v\n", err)
		return 1
	}
	defer f.Close()
	file, err := syntax.Parse(f, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bellos: %v\n", err)
		return 1
	}
	return runFile(ctx, r, file)
}

func runFile(ctx context.Context, r *interp.Runner, file *syntax.File) int {
	if err := r.Run(ctx, file); err != nil {
		fmt.Fprintf(os.Stderr, "bellos: %v\n", err)
		r.ReapFinishedJobs()
		return 1
	}
	r.ReapFinishedJobs()
	return r.Exit()
}

// runInteractive reads statements line by line, re-prompting with "> "
// while the accumulated input is an incomplete statement (an unterminated
// quote, expansion, or compound command).
func runInteractive(ctx context.Context, r *interp.Runner, prompt string) int {
	in := bufio.NewReader(os.Stdin)
	var acc strings.Builder

	cur := prompt
	for {
		r.ReapFinishedJobs()
		fmt.Fprint(os.Stdout, cur)
		line, err := in.ReadString('\n')
		if line == "" && err != nil {
			break
		}
		acc.WriteString(line)

		file, perr := syntax.Parse(strings.NewReader(acc.String()), "")
		if perr != nil {
			if syntax.IsIncomplete(perr) {
				cur = "> "
				continue
			}
			fmt.Fprintf(os.Stderr, "bellos: %v\n", perr)
			acc.Reset()
			cur = prompt
			continue
		}

		if rerr := r.Run(ctx, file); rerr != nil {
			fmt.Fprintf(os.Stderr, "bellos: %v\n", rerr)
		}
		acc.Reset()
		cur = prompt

		if err != nil {
			break
		}
	}
	r.ReapFinishedJobs()
	return r.Exit()
}
