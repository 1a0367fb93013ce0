package interp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"bellos/expand"
	"bellos/syntax"
)

// applyRedirs opens the files (or wraps the heredoc text) named by redirs
// and returns the ioStreams a statement should run with, plus the
// io.Closers the caller must close once the statement finishes. Only fds
// 0, 1 and 2 are wired to Stdin/Stdout/Stderr; any other fd is rejected,
// since Runner only ever threads those three streams through execution.
func (r *Runner) applyRedirs(ctx context.Context, redirs []syntax.Redir, parent ioStreams) (ioStreams, []io.Closer, error) {
	strm := parent
	var closers []io.Closer

	for _, rd := range redirs {
		fd := rd.Fd
		if fd < 0 {
			switch rd.Op {
			case syntax.Less, syntax.DLess:
				fd = 0
			default:
				fd = 1
			}
		}

		switch rd.Op {
		case syntax.DLess:
			body, err := expand.ExpandLiteral(ctx, r.expandConfig(parent), rd.Word)
			if err != nil {
				return strm, closers, err
			}
			if fd != 0 {
				return strm, closers, fmt.Errorf("heredoc only supported on fd 0, got %d", fd)
			}
			strm.Stdin = strings.NewReader(body)
			continue
		}

		path, err := expand.ExpandLiteral(ctx, r.expandConfig(parent), rd.Word)
		if err != nil {
			return strm, closers, err
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.Dir, path)
		}

		var f *os.File
		switch rd.Op {
		case syntax.Less:
			f, err = os.Open(path)
		case syntax.Great:
			f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		case syntax.DGreat:
			f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		default:
			return strm, closers, fmt.Errorf("unsupported redirection operator %v", rd.Op)
		}
		if err != nil {
			return strm, closers, err
		}
		closers = append(closers, f)

		switch fd {
		case 0:
			strm.Stdin = f
		case 1:
			strm.Stdout = f
		case 2:
			strm.Stderr = f
		default:
			return strm, closers, fmt.Errorf("unsupported redirection target fd %d", fd)
		}
	}
	return strm, closers, nil
}
