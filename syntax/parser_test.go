package syntax

import (
	"testing"
)

func parseOrFatal(t *testing.T, src string) *File {
	t.Helper()
	f, err := ParseBytes([]byte(src), "test")
	if err != nil {
		t.Fatalf("ParseBytes(%q): %v", src, err)
	}
	return f
}

func TestParseSimple(t *testing.T) {
	f := parseOrFatal(t, "echo hello world\n")
	if len(f.Stmts) != 1 {
		t.Fatalf("got %d statements, want 1", len(f.Stmts))
	}
	simple, ok := f.Stmts[0].Cmd.(*Simple)
	if !ok {
		t.Fatalf("got %T, want *Simple", f.Stmts[0].Cmd)
	}
	if len(simple.Words) != 3 {
		t.Fatalf("got %d words, want 3", len(simple.Words))
	}
}

func TestParsePipeline(t *testing.T) {
	f := parseOrFatal(t, "ls | grep foo | wc -l\n")
	p, ok := f.Stmts[0].Cmd.(*Pipeline)
	if !ok {
		t.Fatalf("got %T, want *Pipeline", f.Stmts[0].Cmd)
	}
	if len(p.Stages) != 3 {
		t.Fatalf("got %d stages, want 3", len(p.Stages))
	}
}

func TestParseAndOr(t *testing.T) {
	f := parseOrFatal(t, "true && echo a || echo b\n")
	bl, ok := f.Stmts[0].Cmd.(*BinaryList)
	if !ok {
		t.Fatalf("got %T, want *BinaryList", f.Stmts[0].Cmd)
	}
	if bl.Op != OrList {
		t.Fatalf("top-level operator = %v, want OrList", bl.Op)
	}
}

func TestParseIf(t *testing.T) {
	f := parseOrFatal(t, "if true; then echo yes; else echo no; fi\n")
	ifc, ok := f.Stmts[0].Cmd.(*If)
	if !ok {
		t.Fatalf("got %T, want *If", f.Stmts[0].Cmd)
	}
	if len(ifc.Then) != 1 || len(ifc.Else) != 1 {
		t.Fatalf("then/else bodies not parsed: %+v", ifc)
	}
}

func TestParseForIn(t *testing.T) {
	f := parseOrFatal(t, "for x in a b c; do echo $x; done\n")
	fo, ok := f.Stmts[0].Cmd.(*For)
	if !ok {
		t.Fatalf("got %T, want *For", f.Stmts[0].Cmd)
	}
	if !fo.HasWords || len(fo.Words) != 3 {
		t.Fatalf("got %+v", fo)
	}
}

func TestParseCase(t *testing.T) {
	f := parseOrFatal(t, "case $x in a) echo A ;; b|c) echo BC ;; *) echo Z ;; esac\n")
	c, ok := f.Stmts[0].Cmd.(*Case)
	if !ok {
		t.Fatalf("got %T, want *Case", f.Stmts[0].Cmd)
	}
	if len(c.Arms) != 3 {
		t.Fatalf("got %d arms, want 3", len(c.Arms))
	}
	if len(c.Arms[1].Patterns) != 2 {
		t.Fatalf("second arm should have 2 patterns, got %d", len(c.Arms[1].Patterns))
	}
}

func TestParseFunctionDef(t *testing.T) {
	for _, src := range []string{
		"greet() { echo hi; }\n",
		"function greet { echo hi; }\n",
	} {
		f := parseOrFatal(t, src)
		fd, ok := f.Stmts[0].Cmd.(*FuncDecl)
		if !ok {
			t.Fatalf("%q: got %T, want *FuncDecl", src, f.Stmts[0].Cmd)
		}
		if fd.Name != "greet" {
			t.Fatalf("%q: got name %q", src, fd.Name)
		}
	}
}

func TestHeredoc(t *testing.T) {
	src := "cat <<EOF\nline one\nline two\nEOF\n"
	f := parseOrFatal(t, src)
	redirs := f.Stmts[0].Redirs
	if len(redirs) != 1 {
		t.Fatalf("got %d redirs, want 1", len(redirs))
	}
	lit, ok := redirs[0].Word[0].(*Lit)
	if !ok {
		t.Fatalf("heredoc body not a literal: %+v", redirs[0].Word)
	}
	want := "line one\nline two\n"
	if lit.Value != want {
		t.Fatalf("heredoc body = %q, want %q", lit.Value, want)
	}
}

func TestRedirection(t *testing.T) {
	f := parseOrFatal(t, "echo hi > out.txt\n")
	redirs := f.Stmts[0].Redirs
	if len(redirs) != 1 || redirs[0].Fd != 1 || redirs[0].Op != Great {
		t.Fatalf("got %+v", redirs)
	}

	f2 := parseOrFatal(t, "read name 2>err.log\n")
	redirs2 := f2.Stmts[0].Redirs
	if len(redirs2) != 1 || redirs2[0].Fd != 2 || redirs2[0].Op != Great {
		t.Fatalf("got %+v", redirs2)
	}
}

func TestParamExpansionParsing(t *testing.T) {
	f := parseOrFatal(t, "echo ${name:-default}\n")
	simple := f.Stmts[0].Cmd.(*Simple)
	word := simple.Words[1]
	pe, ok := word[0].(*ParamExp)
	if !ok {
		t.Fatalf("got %T, want *ParamExp", word[0])
	}
	if pe.Param != "name" || pe.Exp == nil || pe.Exp.Op != ParMinus || !pe.Exp.Colon {
		t.Fatalf("got %+v", pe)
	}
}

func TestIsIncomplete(t *testing.T) {
	_, err := ParseBytes([]byte("echo 'unterminated"), "test")
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if !IsIncomplete(err) {
		t.Fatalf("IsIncomplete(%v) = false, want true", err)
	}
}

func TestParseAssignment(t *testing.T) {
	f := parseOrFatal(t, "x=1 y=2 echo $x $y\n")
	st := f.Stmts[0]
	if len(st.Assigns) != 2 {
		t.Fatalf("got %d assigns, want 2", len(st.Assigns))
	}
	if st.Assigns[0].Name != "x" || st.Assigns[1].Name != "y" {
		t.Fatalf("got %+v", st.Assigns)
	}
}
