package termio

import (
	"unicode/utf8"

	"github.com/shimmer-term/shimmer/ecma48"
)

// ConsoleWriter is the narrow surface output translation needs from a
// real Windows console: writing UTF-16 text, setting the current text
// attribute, and re-pinning the cursor after a flush (conhost resets
// its blink phase on every write, which reads as a visible flicker
// unless the cursor position is reasserted).
type ConsoleWriter interface {
	WriteUTF16(chunk []uint16) error
	SetAttribute(attr uint16) error
	CursorPosition() (x, y int16, err error)
	SetCursorPosition(x, y int16) error
}

// DefaultAttributeProvider is implemented by a ConsoleWriter that can
// report the console's own starting text attribute (via
// GetConsoleScreenBufferInfo on a real console). NewWriter uses it to
// seed the SGR reset state instead of assuming light-grey-on-black.
type DefaultAttributeProvider interface {
	DefaultAttribute() uint16
}

// Fallback 8-colour console attribute when console doesn't implement
// DefaultAttributeProvider: light grey on black, the standard conhost
// default attribute byte.
const defaultAttribute uint16 = 0x07

// ansiToConsole maps the ECMA-48 8-colour SGR indices (30-37,
// 40-47) onto the low/high nibble of a console text-attribute byte;
// the console's palette order (black, red, green, yellow, blue,
// magenta, cyan, white) differs from its bit layout (blue=1, green=2,
// red=4), so this is a real permutation, not an identity map.
var ansiToConsole = [8]uint16{0, 4, 2, 6, 1, 5, 3, 7}

const (
	fgIntensity uint16 = 0x08
	bgIntensity uint16 = 0x80
)

// Writer drives the ECMA-48 decoder over writes and realises the
// result against a ConsoleWriter: character runs become chunked
// WriteUTF16 calls, SGR parameters update a running attribute byte,
// other CSI/C0/C1 codes are passed through as their wide-char
// equivalents or ignored, and BEL is suppressed (the Windows console
// has no audible bell hookup worth forwarding to).
type Writer struct {
	console     ConsoleWriter
	dec         *ecma48.Decoder
	attr        uint16
	defaultAttr uint16
}

// NewWriter returns a Writer with the console's default attribute as
// its starting SGR state, queried from console if it implements
// DefaultAttributeProvider, or the fallback light-grey-on-black
// otherwise (e.g. in tests against a fake console).
func NewWriter(console ConsoleWriter) *Writer {
	attr := defaultAttribute
	if p, ok := console.(DefaultAttributeProvider); ok {
		attr = p.DefaultAttribute()
	}
	return &Writer{console: console, dec: ecma48.New(), attr: attr, defaultAttr: attr}
}

// chunkSize is the fixed UTF-16 chunk size chars runs are written in.
const chunkSize = 256

// Write feeds b through the ECMA-48 decoder, realising each resulting
// code against the console, then re-pins the cursor to its current
// position to defeat conhost's write-triggered blink reset.
func (w *Writer) Write(b []byte) (int, error) {
	var firstErr error
	w.dec.Feed(b, func(c ecma48.Code) {
		if firstErr != nil {
			return
		}
		firstErr = w.apply(c)
	})
	if firstErr != nil {
		return 0, firstErr
	}
	if x, y, err := w.console.CursorPosition(); err == nil {
		w.console.SetCursorPosition(x, y)
	}
	return len(b), nil
}

func (w *Writer) apply(c ecma48.Code) error {
	switch c.Kind {
	case ecma48.Chars:
		return w.writeChars(c.Text)
	case ecma48.C0:
		if c.Final == 0x07 { // BEL: no audible bell to forward
			return nil
		}
		return w.writeChars([]byte{c.Final})
	case ecma48.CSI:
		if c.Final == 'm' {
			w.applySGR(c.Params)
			return nil
		}
		// All other CSI sequences pass through as their raw bytes —
		// conhost itself understands a wider ANSI subset than this
		// translator re-implements, and forwarding keeps that working.
		return w.writeChars(c.Raw)
	default:
		return w.writeChars(c.Raw)
	}
}

func (w *Writer) writeChars(b []byte) error {
	u16 := utf8ToUTF16(b)
	for len(u16) > 0 {
		n := len(u16)
		if n > chunkSize {
			n = chunkSize
		}
		if err := w.console.WriteUTF16(u16[:n]); err != nil {
			return err
		}
		u16 = u16[n:]
	}
	return nil
}

// applySGR folds a CSI 'm' parameter list into the running attribute
// byte. Unsupported extended-colour forms (38;5;N, 48;5;N, 38;2;R;G;B)
// are recognised and their parameters consumed so they don't leak into
// the next plain parameter, but render as no colour change — the
// 8-colour console palette has nothing to map them onto.
func (w *Writer) applySGR(params []int) {
	if len(params) == 0 {
		params = []int{0}
	}
	for i := 0; i < len(params); i++ {
		p := params[i]
		switch {
		case p == 0:
			w.attr = w.defaultAttr
		case p == 1:
			w.attr |= fgIntensity
		case p == 22:
			w.attr &^= fgIntensity
		case p >= 30 && p <= 37:
			w.attr = w.attr&^0x0f | ansiToConsole[p-30] | w.attr&fgIntensity
		case p == 39:
			w.attr = w.attr&^0x0f | w.defaultAttr&0x0f
		case p >= 40 && p <= 47:
			w.attr = w.attr&^0xf0 | (ansiToConsole[p-40] << 4) | w.attr&bgIntensity
		case p == 49:
			w.attr = w.attr&^0xf0 | w.defaultAttr&0xf0
		case p == 38 || p == 48:
			i += skipExtendedColour(params[i+1:])
		}
	}
	w.console.SetAttribute(w.attr)
}

// skipExtendedColour returns how many additional parameters after a
// 38/48 selector to skip: "5;N" (indexed, 2 more) or "2;R;G;B" (direct
// RGB, 4 more). Malformed input skips nothing further.
func skipExtendedColour(rest []int) int {
	if len(rest) == 0 {
		return 0
	}
	switch rest[0] {
	case 5:
		return 2
	case 2:
		return 4
	}
	return 0
}

func utf8ToUTF16(b []byte) []uint16 {
	out := make([]uint16, 0, len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r > 0xffff {
			r -= 0x10000
			out = append(out, uint16(0xd800+(r>>10)), uint16(0xdc00+(r&0x3ff)))
		} else {
			out = append(out, uint16(r))
		}
		b = b[size:]
	}
	return out
}
