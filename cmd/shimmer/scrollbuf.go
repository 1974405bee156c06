package main

import (
	"fmt"
	"io"
)

// ansiScroller implements scroller.Buffer over a plain terminal writer
// using the ECMA-48 SU/SD (Scroll Up/Down, CSI Ps S / CSI Ps T)
// sequences every common terminal emulator honours, rather than a
// console-specific scrollback API — the one scrollback surface
// available uniformly across the platforms this CLI actually runs
// interactively on.
type ansiScroller struct {
	w        io.Writer
	pageSize int
}

// newANSIScroller returns a scroller.Buffer writing scroll sequences to
// w. w may be nil, in which case every call is a no-op (used by the
// testbed driver, which has no real screen to scroll).
func newANSIScroller(w io.Writer) *ansiScroller {
	return &ansiScroller{w: w, pageSize: 20}
}

// LineUp reveals one earlier line: SD (CSI Ps T) scrolls the page's
// content down, which is what moving the view backward looks like.
func (s *ansiScroller) LineUp() {
	if s.w == nil {
		return
	}
	fmt.Fprint(s.w, "\x1b[1T")
}

// LineDown reveals one later line: SU (CSI Ps S).
func (s *ansiScroller) LineDown() {
	if s.w == nil {
		return
	}
	fmt.Fprint(s.w, "\x1b[1S")
}

func (s *ansiScroller) PageUp() {
	if s.w == nil {
		return
	}
	fmt.Fprintf(s.w, "\x1b[%dT", s.pageSize)
}

func (s *ansiScroller) PageDown() {
	if s.w == nil {
		return
	}
	fmt.Fprintf(s.w, "\x1b[%dS", s.pageSize)
}
