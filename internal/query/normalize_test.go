package query

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct{ sql, want string }{
		{"select from V where name = 'alice'", "select from V where name = '?'"},
		{"select from V where age > 21", "select from V where age > ?"},
		{"select from V where name = :name", "select from V where name = :name"},
		{"select  from   V\nwhere id = 1", "select from V where id = ?"},
		{"", ""},
	}
	for _, c := range cases {
		got := Normalize(c.sql)
		if got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.sql, got, c.want)
		}
	}
}

func TestNormalizeEscapedQuote(t *testing.T) {
	got := Normalize("select from V where name = 'o''brien'")
	want := "select from V where name = '?'"
	if got != want {
		t.Errorf("Normalize escaped quote = %q, want %q", got, want)
	}
}
