package editor

import "testing"

func TestInsertEraseRoundTrip(t *testing.T) {
	var s Screen
	s.Init()
	s.Reset([]rune("$ "))
	s.Insert([]rune("hello")...)
	if got := string(s.Text()); got != "hello" {
		t.Fatalf("got %q", got)
	}
	s.MoveTo(0)
	erased := s.EraseTo(5)
	if erased != "hello" {
		t.Fatalf("erased = %q", erased)
	}
	if len(s.Text()) != 0 {
		t.Fatalf("expected empty text, got %q", string(s.Text()))
	}
}

func TestWordMotion(t *testing.T) {
	var s Screen
	s.Init()
	s.Reset(nil)
	s.Insert([]rune("foo bar baz")...)
	s.MoveTo(0)
	end := s.NextWordEnd(s.Position())
	if string(s.Text()[:end]) != "foo" {
		t.Fatalf("NextWordEnd = %d, text %q", end, string(s.Text()[:end]))
	}
	s.MoveTo(len(s.Text()))
	start := s.PrevWordStart(s.Position())
	if string(s.Text()[start:]) != "baz" {
		t.Fatalf("PrevWordStart = %d, text %q", start, string(s.Text()[start:]))
	}
}

func TestSetSuffixDoesNotLeakIntoText(t *testing.T) {
	var s Screen
	s.Init()
	s.Reset(nil)
	s.Insert([]rune("abc")...)
	s.SetSuffix([]rune("\nbck:`a'"))
	if got := string(s.Text()); got != "abc" {
		t.Fatalf("Text() leaked suffix: %q", got)
	}
	s.SetSuffix(nil)
	if got := string(s.Text()); got != "abc" {
		t.Fatalf("got %q after clearing suffix", got)
	}
}
