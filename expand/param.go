package expand

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"bellos/syntax"
)

// ExpansionError is returned for ${name:?message}: the message is the
// error text to surface, not a Go-internal description.
type ExpansionError struct {
	Message string
}

func (e *ExpansionError) Error() string { return e.Message }

// paramBase resolves the unadorned value and "is set" bit for a parameter
// name, covering the special parameters ($?, $#, $@, $*, $$, $!, $1..) as
// well as ordinary shell variables.
func paramBase(cfg *Config, name string) (value string, set bool) {
	switch name {
	case "?":
		return strconv.Itoa(cfg.LastStatus), true
	case "#":
		return strconv.Itoa(len(cfg.Params)), true
	case "@", "*":
		return strings.Join(cfg.Params, " "), true
	case "$":
		return strconv.Itoa(cfg.PID), true
	case "!":
		if cfg.LastBgPID == 0 {
			return "", false
		}
		return strconv.Itoa(cfg.LastBgPID), true
	}
	if n, err := strconv.Atoi(name); err == nil {
		if n == 0 || n > len(cfg.Params) {
			return "", false
		}
		return cfg.Params[n-1], true
	}
	vr := cfg.Env.Get(name)
	return vr.Value, vr.Set
}

func expandParamExp(ctx context.Context, cfg *Config, pe *syntax.ParamExp) (string, error) {
	value, set := paramBase(cfg, pe.Param)

	if pe.Length {
		return strconv.Itoa(len(value)), nil
	}
	if pe.Slice != nil {
		return applySlice(ctx, cfg, value, pe.Slice)
	}
	if pe.Repl != nil {
		return applyReplace(ctx, cfg, value, pe.Repl)
	}
	if pe.Exp != nil {
		return applyExpansionOp(ctx, cfg, pe.Param, value, set, pe.Exp)
	}
	return value, nil
}

func applySlice(ctx context.Context, cfg *Config, value string, sl *syntax.Slice) (string, error) {
	offStr, err := ExpandLiteral(ctx, cfg, sl.Offset)
	if err != nil {
		return "", err
	}
	off, err := EvalArith(ctx, cfg, offStr)
	if err != nil {
		return "", err
	}
	start := int(off)
	if start < 0 {
		start = 0
	}
	if start > len(value) {
		start = len(value)
	}
	end := len(value)
	if sl.HasLength {
		lenStr, err := ExpandLiteral(ctx, cfg, sl.Length)
		if err != nil {
			return "", err
		}
		n, err := EvalArith(ctx, cfg, lenStr)
		if err != nil {
			return "", err
		}
		length := int(n)
		if length < 0 {
			length = 0
		}
		end = start + length
		if end > len(value) {
			end = len(value)
		}
	}
	if end < start {
		end = start
	}
	return value[start:end], nil
}

func applyReplace(ctx context.Context, cfg *Config, value string, r *syntax.Replace) (string, error) {
	orig, err := ExpandLiteral(ctx, cfg, r.Orig)
	if err != nil {
		return "", err
	}
	if orig == "" {
		return value, nil
	}
	with, err := ExpandLiteral(ctx, cfg, r.With)
	if err != nil {
		return "", err
	}
	if r.All {
		return strings.ReplaceAll(value, orig, with), nil
	}
	return strings.Replace(value, orig, with, 1), nil
}

// triggered reports whether value/set counts as "unset or null" for the
// colon-sensitive operators: ${name-w}/${name:-w} and friends.
func triggered(colon, set bool, value string) bool {
	if colon {
		return !set || value == ""
	}
	return !set
}

func applyExpansionOp(ctx context.Context, cfg *Config, name, value string, set bool, e *syntax.Expansion) (string, error) {
	switch e.Op {
	case syntax.ParRemSmallPrefix, syntax.ParRemLargePrefix, syntax.ParRemSmallSuffix, syntax.ParRemLargeSuffix:
		pat, err := ExpandLiteral(ctx, cfg, e.Word)
		if err != nil {
			return "", err
		}
		switch e.Op {
		case syntax.ParRemSmallPrefix:
			return stripAffix(value, pat, true, false), nil
		case syntax.ParRemLargePrefix:
			return stripAffix(value, pat, true, true), nil
		case syntax.ParRemSmallSuffix:
			return stripAffix(value, pat, false, false), nil
		default:
			return stripAffix(value, pat, false, true), nil
		}
	case syntax.ParUpper:
		return cases.Upper(language.Und).String(value), nil
	case syntax.ParLower:
		return cases.Lower(language.Und).String(value), nil
	}

	trig := triggered(e.Colon, set, value)

	switch e.Op {
	case syntax.ParMinus:
		if trig {
			return ExpandLiteral(ctx, cfg, e.Word)
		}
		return value, nil
	case syntax.ParAssign:
		if trig {
			w, err := ExpandLiteral(ctx, cfg, e.Word)
			if err != nil {
				return "", err
			}
			if err := cfg.Env.Set(name, Variable{Value: w, Set: true}); err != nil {
				return "", err
			}
			return w, nil
		}
		return value, nil
	case syntax.ParQuestion:
		if trig {
			msg, err := ExpandLiteral(ctx, cfg, e.Word)
			if err != nil {
				return "", err
			}
			if msg == "" {
				msg = name + ": parameter null or not set"
			}
			return "", &ExpansionError{Message: msg}
		}
		return value, nil
	case syntax.ParPlus:
		if trig {
			return "", nil
		}
		return ExpandLiteral(ctx, cfg, e.Word)
	}
	return "", fmt.Errorf("unhandled parameter operator")
}
