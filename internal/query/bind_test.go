package query

import "testing"

func TestBind(t *testing.T) {
	cases := []struct {
		sql  string
		args map[string]string
		want string
	}{
		{"select from V where name = :name", map[string]string{"name": "alice"}, "select from V where name = 'alice'"},
		{"select from V where age > :age", map[string]string{"age": "21"}, "select from V where age > 21"},
		{"select from V where active = :active", map[string]string{"active": "true"}, "select from V where active = true"},
		{"select ':not_a_param'", nil, "select ':not_a_param'"},
		{"select from V where name = :missing", map[string]string{"other": "x"}, "select from V where name = :missing"},
	}
	for _, c := range cases {
		got := Bind(c.sql, c.args)
		if got != c.want {
			t.Errorf("Bind(%q, %v) = %q, want %q", c.sql, c.args, got, c.want)
		}
	}
}

func TestBindEscapesQuotes(t *testing.T) {
	got := Bind("select from V where name = :name", map[string]string{"name": "o'brien"})
	want := "select from V where name = 'o''brien'"
	if got != want {
		t.Errorf("Bind escaping = %q, want %q", got, want)
	}
}

func TestBindLeavesStringLiteralsAlone(t *testing.T) {
	got := Bind("select from V where tag = ':name'", map[string]string{"name": "x"})
	want := "select from V where tag = ':name'"
	if got != want {
		t.Errorf("Bind inside string literal = %q, want %q", got, want)
	}
}
