package expand

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMatchPattern(t *testing.T) {
	cases := []struct {
		pattern, s string
		want       bool
	}{
		{"*.go", "main.go", true},
		{"*.go", "main.c", false},
		{"file?.txt", "file1.txt", true},
		{"file?.txt", "file10.txt", false},
		{"[abc]*", "apple", true},
		{"[abc]*", "zebra", false},
	}
	for _, c := range cases {
		if got := MatchPattern(c.pattern, c.s); got != c.want {
			t.Errorf("MatchPattern(%q, %q) = %v, want %v", c.pattern, c.s, got, c.want)
		}
	}
}

func TestStripAffixPrefix(t *testing.T) {
	// ${value#prefix} removes the shortest matching prefix.
	if got := stripAffix("foobarbar", "*bar", true, false); got != "bar" {
		t.Fatalf("shortest prefix strip = %q", got)
	}
	// ${value##prefix} removes the longest matching prefix.
	if got := stripAffix("foobarbar", "*bar", true, true); got != "" {
		t.Fatalf("longest prefix strip = %q", got)
	}
}

func TestStripAffixNoMatch(t *testing.T) {
	if got := stripAffix("hello", "xyz", true, false); got != "hello" {
		t.Fatalf("got %q, want unchanged value", got)
	}
}

func TestGlobFieldExpandsMatches(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt", "c.log"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := globField(dir, "*.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 matches", got)
	}
}

func TestGlobFieldNoMetaReturnsLiteral(t *testing.T) {
	got, err := globField("/tmp", "plainname")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "plainname" {
		t.Fatalf("got %v", got)
	}
}

func TestGlobFieldHidesDotfilesByDefault(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{".hidden", "visible.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := globField(dir, "*")
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range got {
		if m == ".hidden" {
			t.Fatalf("dotfile should not match bare *, got %v", got)
		}
	}
}
