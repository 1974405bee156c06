package bindresolver

import "testing"
import "github.com/shimmer-term/shimmer/binder"

func setup(t *testing.T) (*binder.Binder, int, int) {
	t.Helper()
	b := binder.New()
	group := b.GetGroup("default")
	mod, err := b.AddModule("test")
	if err != nil {
		t.Fatal(err)
	}
	return b, group, mod
}

func TestSimpleBinding(t *testing.T) {
	b, group, mod := setup(t)
	if err := b.Bind(group, "a", mod, 7, false); err != nil {
		t.Fatal(err)
	}
	r := New(b)
	r.SetGroup(group)
	if !r.Step('a') {
		t.Fatalf("Step('a') = false, want true (leaf reached)")
	}
	bind := r.Next()
	if !bind.Valid() {
		t.Fatalf("expected a valid binding")
	}
	if bind.Module() != mod || bind.ID() != 7 {
		t.Fatalf("got module=%d id=%d", bind.Module(), bind.ID())
	}
	if string(bind.Chord()) != "a" {
		t.Fatalf("chord = %q", bind.Chord())
	}
}

func TestMultiByteChord(t *testing.T) {
	b, group, mod := setup(t)
	b.Bind(group, `\e[A`, mod, 1, false)
	r := New(b)
	r.SetGroup(group)
	for _, c := range []byte("\x1b[A") {
		if r.Step(c) {
			break
		}
	}
	bind := r.Next()
	if !bind.Valid() {
		t.Fatalf("expected a valid binding after full chord")
	}
	if string(bind.Chord()) != "\x1b[A" {
		t.Fatalf("chord = %q", bind.Chord())
	}
}

func TestConsumedLengthNeverExceedsChordPlusParams(t *testing.T) {
	// The number of bytes consumed should never exceed the chord's own
	// byte length plus the sum of its captured parameter lengths.
	b, group, mod := setup(t)
	b.Bind(group, `\e[*~`, mod, 1, true)
	r := New(b)
	r.SetGroup(group)
	input := []byte("\x1b[123~")
	for _, c := range input {
		if r.Step(c) {
			break
		}
	}
	bind := r.Next()
	if !bind.Valid() {
		t.Fatalf("expected a valid binding")
	}
	if bind.Chord() == nil || len(bind.Chord()) > len(input) {
		t.Fatalf("consumed too many bytes: %q", bind.Chord())
	}
}

func TestClaimAdvancesTail(t *testing.T) {
	b, group, mod := setup(t)
	b.Bind(group, "a", mod, 1, false)
	b.Bind(group, "b", mod, 2, false)
	r := New(b)
	r.SetGroup(group)
	r.Step('a')
	bind := r.Next()
	bind.Claim()
	r.Step('b')
	bind2 := r.Next()
	if !bind2.Valid() || bind2.ID() != 2 {
		t.Fatalf("expected second binding after claim, got %+v", bind2)
	}
}

func TestOverflowResets(t *testing.T) {
	b, group, _ := setup(t)
	r := New(b)
	r.SetGroup(group)
	for i := 0; i < MaxKeys+1; i++ {
		r.Step('x')
	}
	// Should not panic, and should have reset.
	if r.MoreThan(MaxKeys) {
		t.Fatalf("resolver should have reset on overflow")
	}
}
