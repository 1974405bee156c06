package history

import "testing"

// fakeView is a minimal LineView for tests.
type fakeView struct {
	text   []rune
	pos    int
	suffix []rune
}

func (f *fakeView) Text() []rune    { return f.text }
func (f *fakeView) Position() int   { return f.pos }
func (f *fakeView) MoveTo(pos int)  { f.pos = pos }
func (f *fakeView) SetSuffix(s []rune) { f.suffix = s }
func (f *fakeView) EraseTo(pos int) string {
	if pos < f.pos {
		erased := string(f.text[pos:f.pos])
		f.text = append(f.text[:pos], f.text[f.pos:]...)
		f.pos = pos
		return erased
	}
	erased := string(f.text[f.pos:pos])
	f.text = append(f.text[:f.pos], f.text[pos:]...)
	return erased
}
func (f *fakeView) Insert(text ...rune) {
	out := append([]rune(nil), f.text[:f.pos]...)
	out = append(out, text...)
	out = append(out, f.text[f.pos:]...)
	f.text = out
	f.pos += len(text)
}

func newTestStore(t *testing.T, lines []string) *Store {
	t.Helper()
	s := &Store{cfg: Config{Dupe: DupeAdd}, stickyIndex: -1}
	for _, l := range lines {
		s.Add(l)
	}
	return s
}

var prelude = []string{
	"cmd1 arg1 arg2 arg3 arg4",
	"cmd2 arg1 arg2 arg3 arg4 extra",
	"cmd3 arg1 arg2 arg3 arg4",
}

func TestCtrlPNavigatesHistory(t *testing.T) {
	s := newTestStore(t, prelude)
	nav := NewNav(s)
	v := &fakeView{}
	for i := 0; i < 4; i++ {
		nav.Previous(v)
	}
	if got := string(v.text); got != prelude[0] {
		t.Fatalf("got %q, want %q", got, prelude[0])
	}
}

func TestIncrementalSearchAndHome(t *testing.T) {
	s := newTestStore(t, prelude)
	nav := NewNav(s)
	v := &fakeView{}
	nav.ReverseSearch(v)
	for _, r := range "cmd2" {
		nav.AppendSearchKey(v, r)
	}
	nav.Cancel(v) // simulate Home: cancel search, keep recalled text
	if got := string(v.text); got != prelude[1] {
		t.Fatalf("got %q, want %q", got, prelude[1])
	}
}

func TestHistoryExpansionBang(t *testing.T) {
	s := newTestStore(t, prelude)
	got, code, err := s.Expand("cmdX !!:2*", "", QuoteOn)
	if err != nil {
		t.Fatal(err)
	}
	if code != ExpandOK {
		t.Fatalf("code = %v, want ExpandOK", code)
	}
	if got != "cmdX arg2 arg3 arg4" {
		t.Fatalf("got %q", got)
	}
}

func TestSubstituteCaret(t *testing.T) {
	s := newTestStore(t, prelude)
	got, code, err := s.ExpandCaret("^arg1^123^")
	if err != nil {
		t.Fatal(err)
	}
	if code != ExpandOK {
		t.Fatalf("code = %v", code)
	}
	if got != "cmd3 123 arg2 arg3 arg4" {
		t.Fatalf("got %q", got)
	}
}

func TestAddThenExpandBangBangRoundTrip(t *testing.T) {
	// add(line); expand("!!", out) should round-trip back to line.
	s := newTestStore(t, nil)
	s.Add("echo hello world")
	got, code, err := s.Expand("!!", "", QuoteOn)
	if err != nil {
		t.Fatal(err)
	}
	if code == ExpandNone {
		t.Fatalf("expected expansion to occur")
	}
	if got != "echo hello world" {
		t.Fatalf("got %q", got)
	}
}

func TestDupeModeIgnore(t *testing.T) {
	s := &Store{cfg: Config{Dupe: DupeIgnore}, stickyIndex: -1}
	s.Add("same")
	s.Add("same")
	live := s.ReadLines()
	if len(live) != 1 {
		t.Fatalf("expected dupes ignored, got %d entries", len(live))
	}
}

func TestCompactRemovesTombstones(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, Config{Dupe: DupeAdd})
	if err != nil {
		t.Fatal(err)
	}
	s.Add("one")
	s.Add("two")
	if err := s.Flush(true); err != nil {
		t.Fatal(err)
	}
	s.Remove(BankMaster, s.master[0].ID)
	if err := s.Compact(true, false, 0); err != nil {
		t.Fatal(err)
	}
	if len(s.master) != 1 || s.master[0].Text != "two" {
		t.Fatalf("got %+v", s.master)
	}
}
