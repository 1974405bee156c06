package settings

import (
	"strings"
	"testing"
)

// TestIterationOrderSurvivesDeletion checks that removing an entry never
// reorders the names that remain.
func TestIterationOrderSurvivesDeletion(t *testing.T) {
	r := New()
	r.AddBool("one", false, "")
	r.AddBool("two", false, "")
	r.AddBool("three", false, "")
	r.AddBool("four", false, "")

	want := []string{"four", "three", "two", "one"}
	if got := r.Names(); !equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	r.Remove("three")
	want = []string{"four", "two", "one"}
	if got := r.Names(); !equal(got, want) {
		t.Fatalf("after removing three: got %v, want %v", got, want)
	}

	r.Remove("one")
	want = []string{"four", "two"}
	if got := r.Names(); !equal(got, want) {
		t.Fatalf("after removing one: got %v, want %v", got, want)
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSetAndGet(t *testing.T) {
	r := New()
	r.AddInt("match.max_width", 0, "")
	if err := r.Set("match.max_width", "120"); err != nil {
		t.Fatal(err)
	}
	if got := r.Int("match.max_width"); got != 120 {
		t.Fatalf("got %d", got)
	}
}

func TestSetUnknownSettingErrors(t *testing.T) {
	r := New()
	if err := r.Set("nope", "1"); err == nil {
		t.Fatalf("expected error for unknown setting")
	}
}

func TestEnumRejectsInvalidValue(t *testing.T) {
	r := New()
	r.AddEnum("mode", "a", []string{"a", "b"}, "")
	if err := r.Set("mode", "c"); err == nil {
		t.Fatalf("expected error for out-of-range enum value")
	}
}

func TestLoadPreservesUnknownKeys(t *testing.T) {
	r := New()
	r.AddBool("known", false, "")
	input := "known=true\nmystery.setting=42\n"
	if err := r.Load(strings.NewReader(input)); err != nil {
		t.Fatal(err)
	}
	if !r.Bool("known") {
		t.Fatalf("known setting not applied")
	}
	var out strings.Builder
	if err := r.Save(&out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "mystery.setting=42") {
		t.Fatalf("unknown key not preserved: %q", out.String())
	}
}

func TestRegisterDefaults(t *testing.T) {
	r := New()
	RegisterDefaults(r)
	if r.Int("match.query_threshold") != 100 {
		t.Fatalf("default query_threshold wrong")
	}
	if r.String("history.dupe_mode") != "erase_prev" {
		t.Fatalf("default dupe_mode wrong")
	}
}
