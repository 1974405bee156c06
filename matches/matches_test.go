package matches

import "testing"

func TestLCD(t *testing.T) {
	cases := []struct {
		in   []string
		want string
	}{
		{[]string{"foobar", "foobaz", "fooqux"}, "foo"},
		{[]string{"abc"}, "abc"},
		{[]string{"abc", "xyz"}, ""},
		{nil, ""},
	}
	for _, c := range cases {
		if got := LCD(c.in); got != c.want {
			t.Errorf("LCD(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestComputeLayout(t *testing.T) {
	matches := []string{"aa", "bb", "cc", "dd"}
	l := ComputeLayout(matches, 20, 0)
	if l.Columns < 1 {
		t.Fatalf("columns = %d, want >= 1", l.Columns)
	}
}

func TestPageVerticalVsHorizontal(t *testing.T) {
	matches := []string{"a", "b", "c", "d", "e", "f"}
	layout := Layout{Columns: 3}
	h := Page(matches, layout, false)
	v := Page(matches, layout, true)
	if len(h) != len(v) {
		t.Fatalf("row counts differ: %d vs %d", len(h), len(v))
	}
	// Horizontal fills rows left-to-right: first row is a,b,c.
	if h[0][0] != "a" || h[0][1] != "b" || h[0][2] != "c" {
		t.Fatalf("horizontal layout wrong: %v", h)
	}
}
