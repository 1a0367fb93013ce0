// Package expand turns the AST's [syntax.Word] values into the strings
// and argument lists a command actually runs with: parameter and
// arithmetic expansion, command substitution, field splitting on IFS, and
// pathname globbing.
package expand

import (
	"context"
	"os"
	"strconv"
	"strings"

	"bellos/syntax"
)

// Config carries everything expansion needs from the running shell: its
// variable scope, working directory, field separator, and a hook back
// into the executor for command substitution. interp builds one of these
// for each expansion and passes it down; expand never imports interp, which is
// what keeps the Expander/Executor's mutual recursion (command
// substitution runs commands, which expand their own words) from
// becoming an import cycle.
type Config struct {
	Env        WriteEnviron
	Dir        string
	IFS        string
	NoGlob     bool
	Params     []string
	LastStatus int
	PID        int
	LastBgPID  int

	// CmdSubst runs raw (the text inside $(...) or `...`) as a command list
	// and returns its captured, trailing-newline-trimmed stdout.
	CmdSubst func(ctx context.Context, raw string) (string, error)
}

func (c *Config) ifs() string {
	if c.IFS == "" {
		return " \t\n"
	}
	return c.IFS
}

// ExpandLiteral expands w to a single string: quote removal, parameter,
// arithmetic and command substitution all apply, but the result is never
// field-split or globbed. This is what assignment right-hand sides, case
// scrutinees, and the operand words of ${...} operators use.
func ExpandLiteral(ctx context.Context, cfg *Config, w syntax.Word) (string, error) {
	parts, err := expandWordParts(ctx, cfg, w)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.text)
	}
	return sb.String(), nil
}

// Fields expands words into the final, field-split and globbed argument
// list used for command arguments and for-loop word lists.
func Fields(ctx context.Context, cfg *Config, words []syntax.Word) ([]string, error) {
	var fields []string
	for _, w := range words {
		parts, err := expandWordParts(ctx, cfg, w)
		if err != nil {
			return nil, err
		}
		for _, fr := range splitFields(parts, cfg.ifs()) {
			if cfg.NoGlob || fr.quoted {
				fields = append(fields, fr.text)
				continue
			}
			matches, err := globField(cfg.Dir, fr.text)
			if err != nil {
				return nil, err
			}
			fields = append(fields, matches...)
		}
	}
	return fields, nil
}

type fieldPart struct {
	text   string
	quoted bool
}

func expandWordParts(ctx context.Context, cfg *Config, w syntax.Word) ([]fieldPart, error) {
	var parts []fieldPart
	for _, seg := range w {
		segParts, err := expandSegment(ctx, cfg, seg, false)
		if err != nil {
			return nil, err
		}
		parts = append(parts, segParts...)
	}
	applyTilde(cfg, parts)
	return parts, nil
}

// applyTilde rewrites a leading unquoted "~" (optionally "~/rest") in
// place into $HOME. Only the bare and slash-trailing forms are supported;
// "~user" is not, matching the Non-goals around user-database lookups.
func applyTilde(cfg *Config, parts []fieldPart) {
	if len(parts) == 0 || parts[0].quoted {
		return
	}
	t := parts[0].text
	if t != "~" && !strings.HasPrefix(t, "~/") {
		return
	}
	home, _ := paramBase(cfg, "HOME")
	if home == "" {
		home = os.Getenv("HOME")
	}
	parts[0].text = home + strings.TrimPrefix(t, "~")
}

func expandSegment(ctx context.Context, cfg *Config, seg syntax.Segment, quoted bool) ([]fieldPart, error) {
	switch s := seg.(type) {
	case *syntax.Lit:
		return []fieldPart{{text: s.Value, quoted: quoted}}, nil
	case *syntax.SingleQuoted:
		return []fieldPart{{text: s.Value, quoted: true}}, nil
	case *syntax.DoubleQuoted:
		var out []fieldPart
		for _, inner := range s.Parts {
			ip, err := expandSegment(ctx, cfg, inner, true)
			if err != nil {
				return nil, err
			}
			out = append(out, ip...)
		}
		return out, nil
	case *syntax.ParamExp:
		str, err := expandParamExp(ctx, cfg, s)
		if err != nil {
			return nil, err
		}
		return []fieldPart{{text: str, quoted: quoted}}, nil
	case *syntax.ArithExpansion:
		n, err := EvalArith(ctx, cfg, s.Raw)
		if err != nil {
			return nil, err
		}
		return []fieldPart{{text: strconv.FormatInt(n, 10), quoted: quoted}}, nil
	case *syntax.CommandSub:
		if cfg.CmdSubst == nil {
			return []fieldPart{{text: "", quoted: quoted}}, nil
		}
		out, err := cfg.CmdSubst(ctx, s.Raw)
		if err != nil {
			return nil, err
		}
		return []fieldPart{{text: out, quoted: quoted}}, nil
	}
	return nil, nil
}

type fieldResult struct {
	text   string
	quoted bool
}

// splitFields joins the segment-level parts into final fields, splitting
// only within parts that came from outside any quotes. A field built from
// even one quoted part is marked quoted as a whole, so it is never run
// through globbing: bellos does not track quoting character-by-character
// the way a full POSIX shell does.
func splitFields(parts []fieldPart, ifs string) []fieldResult {
	isIFS := func(b byte) bool { return strings.IndexByte(ifs, b) >= 0 }

	var fields []fieldResult
	var cur fieldResult
	started := false
	flush := func() {
		if started {
			fields = append(fields, cur)
		}
		cur = fieldResult{}
		started = false
	}

	for _, p := range parts {
		if p.quoted {
			cur.text += p.text
			cur.quoted = true
			started = true
			continue
		}
		s := p.text
		i := 0
		for i < len(s) {
			if isIFS(s[i]) {
				flush()
				for i < len(s) && isIFS(s[i]) {
					i++
				}
				continue
			}
			j := i
			for j < len(s) && !isIFS(s[j]) {
				j++
			}
			cur.text += s[i:j]
			started = true
			i = j
		}
	}
	flush()
	return fields
}
