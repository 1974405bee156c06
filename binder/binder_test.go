package binder

import "testing"

func TestTranslateChordIdempotent(t *testing.T) {
	// Translating an already-translated chord should be a no-op:
	// translate(translate(c)) == translate(c). The translated bytes of
	// these chords contain no '\\' or '^', so feeding them back through
	// TranslateChord reads them as literal keys.
	chords := []string{"a", "Control-x", `\C-a`, `\M-x`, `^a`}
	for _, c := range chords {
		out1, err := TranslateChord(c)
		if err != nil {
			t.Fatalf("TranslateChord(%q): %v", c, err)
		}
		out2, err := TranslateChord(string(out1))
		if err != nil {
			t.Fatalf("TranslateChord(%q): %v", out1, err)
		}
		if string(out2) != string(out1) {
			t.Fatalf("translate(translate(%q)) = %v, want %v", c, out2, out1)
		}
	}
}

func TestTranslateChordControl(t *testing.T) {
	out, err := TranslateChord(`\C-a`)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0] != 1 {
		t.Fatalf("got %v", out)
	}
}

func TestTranslateChordMeta(t *testing.T) {
	out, err := TranslateChord(`\M-x`)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0] != 0x1b || out[1] != 'x' {
		t.Fatalf("got %v", out)
	}
}

func TestTranslateChordLoneESCRewritten(t *testing.T) {
	out, err := TranslateChord(`\e`)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) < 2 {
		t.Fatalf("expected bindable-ESC sentinel, got %v", out)
	}
}

func TestBindAndIsBound(t *testing.T) {
	b := New()
	group := b.GetGroup("default")
	mod, _ := b.AddModule("test")
	if err := b.Bind(group, "a", mod, 1, false); err != nil {
		t.Fatal(err)
	}
	if got := b.IsBound(group, []byte("a")); got != 1 {
		t.Fatalf("IsBound(a) = %d, want 1", got)
	}
	if got := b.IsBound(group, []byte("b")); got != 0 {
		t.Fatalf("IsBound(b) = %d, want 0", got)
	}
}

func TestBindMultiByteChord(t *testing.T) {
	b := New()
	group := b.GetGroup("default")
	mod, _ := b.AddModule("test")
	if err := b.Bind(group, `\e[A`, mod, 1, false); err != nil {
		t.Fatal(err)
	}
	if got := b.IsBound(group, []byte("\x1b[A")); got != 1 {
		t.Fatalf("IsBound = %d, want 1", got)
	}
	if got := b.IsBound(group, []byte("\x1b[")); got != -1 {
		t.Fatalf("IsBound(prefix) = %d, want -1 (redispatch)", got)
	}
}

func TestGroupsAreIsolated(t *testing.T) {
	b := New()
	def := b.GetGroup("default")
	other := b.CreateGroup("pager")
	mod, _ := b.AddModule("test")
	b.Bind(other, "q", mod, 1, false)
	if got := b.IsBound(def, []byte("q")); got != 0 {
		t.Fatalf("binding in 'pager' leaked into 'default': %d", got)
	}
	if got := b.IsBound(other, []byte("q")); got != 1 {
		t.Fatalf("IsBound in pager group = %d, want 1", got)
	}
}

func TestModuleOverflow(t *testing.T) {
	b := New()
	for i := 0; i < MaxModules; i++ {
		if _, err := b.AddModule("m"); err != nil {
			t.Fatalf("unexpected error at %d: %v", i, err)
		}
	}
	if _, err := b.AddModule("one-too-many"); err == nil {
		t.Fatalf("expected overflow error")
	}
}
