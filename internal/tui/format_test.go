package tui

import (
	"testing"

	"github.com/mickamy/orientgo/record"
)

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Fatalf("truncate short = %q", got)
	}
	if got := truncate("hello world", 8); got != "hello w…" {
		t.Fatalf("truncate long = %q", got)
	}
}

func TestPadRightAndLeft(t *testing.T) {
	if got := padRight("ab", 5); got != "ab   " {
		t.Fatalf("padRight = %q", got)
	}
	if got := padLeft("ab", 5); got != "   ab" {
		t.Fatalf("padLeft = %q", got)
	}
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		v    record.Value
		want string
	}{
		{record.Null(), "null"},
		{record.Bool(true), "true"},
		{record.Int32(42), "42"},
		{record.String("hi"), "hi"},
		{record.List([]record.Value{record.Int32(1), record.Int32(2)}), "[list, 2 items]"},
	}
	for _, c := range cases {
		if got := formatValue(c.v); got != c.want {
			t.Errorf("formatValue(%v) = %q, want %q", c.v, got, c.want)
		}
	}
}

func TestRenderInputWithCursor(t *testing.T) {
	if got := renderInputWithCursor("abc", 3); got != "abc█" {
		t.Fatalf("cursor at end = %q", got)
	}
	if got := renderInputWithCursor("abc", 1); got != "a█bc" {
		t.Fatalf("cursor mid = %q", got)
	}
}
