package expand

import (
	"context"
	"testing"
)

func TestArithBasic(t *testing.T) {
	cases := []struct {
		expr string
		want int64
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"10 / 3", 3},
		{"10 % 3", 1},
		{"1 << 4", 16},
		{"5 == 5", 1},
		{"5 != 5", 0},
		{"1 && 0", 0},
		{"1 || 0", 1},
		{"-5 + 3", -2},
		{"!0", 1},
		{"~0", -1},
	}
	env := memEnviron{}
	cfg := newTestConfig(env)
	for _, c := range cases {
		got, err := EvalArith(context.Background(), cfg, c.expr)
		if err != nil {
			t.Fatalf("%q: %v", c.expr, err)
		}
		if got != c.want {
			t.Fatalf("%q = %d, want %d", c.expr, got, c.want)
		}
	}
}

func TestArithVariables(t *testing.T) {
	env := memEnviron{"a": {Value: "4", Set: true}, "b": {Value: "5", Set: true}}
	cfg := newTestConfig(env)

	got, err := EvalArith(context.Background(), cfg, "a + b")
	if err != nil {
		t.Fatal(err)
	}
	if got != 9 {
		t.Fatalf("got %d", got)
	}
}

func TestArithAssignment(t *testing.T) {
	env := memEnviron{"a": {Value: "10", Set: true}}
	cfg := newTestConfig(env)

	got, err := EvalArith(context.Background(), cfg, "a += 5")
	if err != nil {
		t.Fatal(err)
	}
	if got != 15 || env["a"].Value != "15" {
		t.Fatalf("got %d, env=%+v", got, env)
	}
}

func TestArithDivByZero(t *testing.T) {
	env := memEnviron{}
	cfg := newTestConfig(env)
	if _, err := EvalArith(context.Background(), cfg, "1 / 0"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestArithUnsetVarDefaultsZero(t *testing.T) {
	env := memEnviron{}
	cfg := newTestConfig(env)
	got, err := EvalArith(context.Background(), cfg, "missing + 1")
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Fatalf("got %d", got)
	}
}
