package ecma48

import (
	"reflect"
	"testing"
)

func decodeAll(chunks ...[]byte) []Code {
	d := New()
	var got []Code
	for _, c := range chunks {
		d.Feed(c, func(code Code) { got = append(got, code) })
	}
	return got
}

func TestCharsRun(t *testing.T) {
	got := decodeAll([]byte("hello"))
	if len(got) != 1 || got[0].Kind != Chars || string(got[0].Text) != "hello" {
		t.Fatalf("got %+v", got)
	}
}

func TestC0(t *testing.T) {
	got := decodeAll([]byte{0x07})
	if len(got) != 1 || got[0].Kind != C0 || got[0].Final != 0x07 {
		t.Fatalf("got %+v", got)
	}
}

func TestCSIParams(t *testing.T) {
	got := decodeAll([]byte("\x1b[31;1m"))
	if len(got) != 1 {
		t.Fatalf("got %d codes: %+v", len(got), got)
	}
	c := got[0]
	if c.Kind != CSI || c.Final != 'm' {
		t.Fatalf("got %+v", c)
	}
	if !reflect.DeepEqual(c.Params, []int{31, 1}) {
		t.Fatalf("params = %v", c.Params)
	}
}

func TestCSIPrivateMarker(t *testing.T) {
	got := decodeAll([]byte("\x1b[?25h"))
	if len(got) != 1 || got[0].Private != '?' || got[0].Final != 'h' {
		t.Fatalf("got %+v", got)
	}
}

func TestCSIDefaultParam(t *testing.T) {
	got := decodeAll([]byte("\x1b[m"))
	if len(got) != 1 || !reflect.DeepEqual(got[0].Params, []int{0}) {
		t.Fatalf("got %+v", got)
	}
}

func TestC1(t *testing.T) {
	got := decodeAll([]byte("\x1bM"))
	if len(got) != 1 || got[0].Kind != C1 || got[0].Final != 'M' {
		t.Fatalf("got %+v", got)
	}
}

// TestSplitAcrossFeeds verifies that decoding a prefix then a suffix
// with a shared state yields the same codes as decoding the whole thing
// at once.
func TestSplitAcrossFeeds(t *testing.T) {
	whole := decodeAll([]byte("\x1b[31;2mhi\x1bM"))
	split := decodeAll([]byte("\x1b[3"), []byte("1;2mh"), []byte("i\x1b"), []byte("M"))
	if !reflect.DeepEqual(whole, split) {
		t.Fatalf("whole=%+v split=%+v", whole, split)
	}
}

func TestInvalidCSIRewindsToESC(t *testing.T) {
	// 0x01 is not a legal CSI continuation byte; the decoder should
	// rewind, emit ESC as C1, then decode the rest from ground.
	got := decodeAll([]byte("\x1b[\x01x"))
	if len(got) < 2 {
		t.Fatalf("got %+v", got)
	}
	if got[0].Kind != C1 || got[0].Final != 0x1b {
		t.Fatalf("first code = %+v, want lone ESC C1", got[0])
	}
}
