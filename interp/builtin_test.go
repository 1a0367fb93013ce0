package interp

import (
	"context"
	"sort"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"

	"bellos/syntax"
)

func mustParse(t *testing.T, src string) *syntax.File {
	t.Helper()
	f, err := parseScript([]byte(src), "test")
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestExportedEnvironIncludesExportedVars(t *testing.T) {
	c := qt.New(t)

	r, err := New(Env([]string{"PATH=/bin"}))
	c.Assert(err, qt.IsNil)

	err = r.Run(context.Background(), mustParse(t, "export GREETING=hi\nlocal_only=secret\n"))
	c.Assert(err, qt.IsNil)

	got := r.exportedEnviron()
	sort.Strings(got)
	want := []string{"GREETING=hi", "PATH=/bin"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("exportedEnviron mismatch (-want +got):\n%s", diff)
	}
}

func TestTestBuiltinComparisons(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		args []string
		want bool
	}{
		{[]string{"5", "-eq", "5"}, true},
		{[]string{"5", "-ne", "5"}, false},
		{[]string{"3", "-lt", "4"}, true},
		{[]string{"4", "-le", "4"}, true},
		{[]string{"4", "-gt", "4"}, false},
		{[]string{"5", "-ge", "4"}, true},
		{[]string{"-z", ""}, true},
		{[]string{"-n", "x"}, true},
	}
	for _, tc := range cases {
		ok, err := evalTest(tc.args)
		c.Assert(err, qt.IsNil)
		c.Check(ok, qt.Equals, tc.want, qt.Commentf("args %v", tc.args))
	}
}
