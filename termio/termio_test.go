package termio

import (
	"bytes"
	"testing"
)

func TestTranslatePlainChar(t *testing.T) {
	tr := NewTranslator()
	got := tr.Translate(nil, KeyEvent{KeyDown: true, VirtualKeyCode: 'A', UnicodeChar: 'a'})
	if string(got) != "a" {
		t.Fatalf("got %q, want %q", got, "a")
	}
}

func TestTranslateAltPrefixesEscape(t *testing.T) {
	tr := NewTranslator()
	got := tr.Translate(nil, KeyEvent{
		KeyDown: true, VirtualKeyCode: 'A', UnicodeChar: 'a',
		ControlKeyState: leftAltPressed,
	})
	if string(got) != "\x1ba" {
		t.Fatalf("got %q, want ESC a", got)
	}
}

func TestTranslateAltGrTreatedAsUnicode(t *testing.T) {
	tr := NewTranslator()
	got := tr.Translate(nil, KeyEvent{
		KeyDown: true, VirtualKeyCode: 'E', UnicodeChar: '€',
		ControlKeyState: leftCtrlPressed | rightAltPressed,
	})
	if string(got) != "€" {
		t.Fatalf("got %q, want €", got)
	}
}

func TestTranslateArrowKeys(t *testing.T) {
	tr := NewTranslator()
	got := tr.Translate(nil, KeyEvent{KeyDown: true, VirtualKeyCode: vkUp})
	if string(got) != "\x1b[A" {
		t.Fatalf("up arrow = %q, want ESC [ A", got)
	}
	got = tr.Translate(nil, KeyEvent{KeyDown: true, VirtualKeyCode: vkUp, ControlKeyState: leftCtrlPressed})
	if string(got) != "\x1bOA" {
		t.Fatalf("ctrl-up arrow = %q, want ESC O A", got)
	}
}

func TestTranslateShiftTab(t *testing.T) {
	tr := NewTranslator()
	got := tr.Translate(nil, KeyEvent{KeyDown: true, VirtualKeyCode: vkTab, ControlKeyState: shiftPressed})
	if string(got) != "\x1b[Z" {
		t.Fatalf("got %q, want ESC [ Z", got)
	}
}

func TestTranslateControlLetter(t *testing.T) {
	tr := NewTranslator()
	got := tr.Translate(nil, KeyEvent{KeyDown: true, VirtualKeyCode: 'C', ControlKeyState: leftCtrlPressed})
	if len(got) != 1 || got[0] != 3 {
		t.Fatalf("ctrl-c = %v, want [3]", got)
	}
}

func TestTranslateKeyUpProducesNothing(t *testing.T) {
	tr := NewTranslator()
	got := tr.Translate(nil, KeyEvent{KeyDown: false, VirtualKeyCode: 'A', UnicodeChar: 'a'})
	if len(got) != 0 {
		t.Fatalf("got %q, want empty", got)
	}
}

type fakeConsole struct {
	text  bytes.Buffer
	attrs []uint16
	curX  int16
	curY  int16
}

func (f *fakeConsole) WriteUTF16(chunk []uint16) error {
	for _, c := range chunk {
		if c < 0x80 {
			f.text.WriteByte(byte(c))
		} else {
			f.text.WriteRune(rune(c))
		}
	}
	return nil
}

func (f *fakeConsole) SetAttribute(attr uint16) error {
	f.attrs = append(f.attrs, attr)
	return nil
}

func (f *fakeConsole) CursorPosition() (int16, int16, error) { return f.curX, f.curY, nil }
func (f *fakeConsole) SetCursorPosition(x, y int16) error    { f.curX, f.curY = x, y; return nil }

func TestWriterPassesPlainText(t *testing.T) {
	fc := &fakeConsole{}
	w := NewWriter(fc)
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if fc.text.String() != "hello" {
		t.Fatalf("got %q", fc.text.String())
	}
}

func TestWriterSGRResetSequence(t *testing.T) {
	fc := &fakeConsole{}
	w := NewWriter(fc)
	if _, err := w.Write([]byte("\x1b[31mHi\x1b[0m")); err != nil {
		t.Fatal(err)
	}
	if fc.text.String() != "Hi" {
		t.Fatalf("text = %q, want Hi", fc.text.String())
	}
	if len(fc.attrs) != 2 {
		t.Fatalf("attrs = %v, want 2 SetAttribute calls", fc.attrs)
	}
	red := ansiToConsole[1]
	if fc.attrs[0]&0x0f != red {
		t.Fatalf("first attr fg = %#x, want red (%#x)", fc.attrs[0]&0x0f, red)
	}
	if fc.attrs[1] != defaultAttribute {
		t.Fatalf("second attr = %#x, want default %#x", fc.attrs[1], defaultAttribute)
	}
}

func TestWriterExtendedColourConsumedNotRendered(t *testing.T) {
	fc := &fakeConsole{}
	w := NewWriter(fc)
	if _, err := w.Write([]byte("\x1b[38;5;196mred\x1b[39mtext")); err != nil {
		t.Fatal(err)
	}
	if fc.text.String() != "redtext" {
		t.Fatalf("text = %q", fc.text.String())
	}
}

type fakeConsoleWithDefault struct {
	fakeConsole
	defAttr uint16
}

func (f *fakeConsoleWithDefault) DefaultAttribute() uint16 { return f.defAttr }

func TestWriterSeedsFromConsoleDefaultAttribute(t *testing.T) {
	fc := &fakeConsoleWithDefault{defAttr: 0x1e} // yellow on blue
	w := NewWriter(fc)
	if _, err := w.Write([]byte("\x1b[31mHi\x1b[0m")); err != nil {
		t.Fatal(err)
	}
	if len(fc.attrs) != 2 {
		t.Fatalf("attrs = %v, want 2 SetAttribute calls", fc.attrs)
	}
	if fc.attrs[1] != fc.defAttr {
		t.Fatalf("reset attr = %#x, want console default %#x", fc.attrs[1], fc.defAttr)
	}
}

func TestWriterBELSuppressed(t *testing.T) {
	fc := &fakeConsole{}
	w := NewWriter(fc)
	if _, err := w.Write([]byte("a\x07b")); err != nil {
		t.Fatal(err)
	}
	if fc.text.String() != "ab" {
		t.Fatalf("text = %q, want ab (BEL suppressed)", fc.text.String())
	}
}
