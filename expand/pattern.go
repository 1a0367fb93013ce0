package expand

import (
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchPattern reports whether s matches the glob-style pattern used by
// case arms and by the ${name#pattern} family. A malformed pattern is
// treated as matching nothing rather than as an error: case arms and
// prefix/suffix stripping have no channel to report a pattern syntax
// error back to the caller.
func MatchPattern(pattern, s string) bool {
	ok, err := doublestar.Match(pattern, s)
	return err == nil && ok
}

// stripAffix implements the shared engine behind ${name#p}, ${name##p},
// ${name%p} and ${name%%p}: find the prefix (or suffix) of value of the
// requested greediness that matches pattern as a whole, and return value
// with it removed. It tries candidate lengths in the order that finds the
// shortest match first, or the longest, depending on longest.
func stripAffix(value, pattern string, fromPrefix, longest bool) string {
	try := func(n int) (string, bool) {
		var cand string
		if fromPrefix {
			cand = value[:n]
		} else {
			cand = value[len(value)-n:]
		}
		if !MatchPattern(pattern, cand) {
			return "", false
		}
		if fromPrefix {
			return value[n:], true
		}
		return value[:len(value)-n], true
	}
	if longest {
		for n := len(value); n >= 0; n-- {
			if r, ok := try(n); ok {
				return r
			}
		}
	} else {
		for n := 0; n <= len(value); n++ {
			if r, ok := try(n); ok {
				return r
			}
		}
	}
	return value
}

// globField expands a single field as a pathname pattern if it contains
// glob metacharacters, relative to dir. Fields with no metacharacters, or
// patterns that match nothing, are returned unchanged: bellos does not
// treat a failed glob as an error, matching the common shell default.
func globField(dir, field string) ([]string, error) {
	if !hasGlobMeta(field) {
		return []string{field}, nil
	}

	abs := strings.HasPrefix(field, "/")
	pattern := field
	base := dir
	if abs {
		base = "/"
		pattern = strings.TrimPrefix(field, "/")
	}

	fsys := os.DirFS(base)
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil || len(matches) == 0 {
		return []string{field}, nil
	}

	out := matches[:0]
	patComponents := strings.Split(pattern, "/")
	for _, m := range matches {
		if hiddenByDefault(patComponents, m) {
			continue
		}
		if abs {
			m = "/" + m
		}
		out = append(out, m)
	}
	if len(out) == 0 {
		return []string{field}, nil
	}
	return out, nil
}

// hiddenByDefault reports whether m has a path component starting with "."
// that the corresponding pattern component did not explicitly request.
func hiddenByDefault(patComponents []string, m string) bool {
	mComponents := strings.Split(m, "/")
	for i, c := range mComponents {
		if !strings.HasPrefix(c, ".") {
			continue
		}
		if i < len(patComponents) && strings.HasPrefix(patComponents[i], ".") {
			continue
		}
		return true
	}
	return false
}

func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[")
}
