// Package editor implements the line editor loop: the screen renderer
// that tracks prompt/input/suffix text and turns edits into minimal
// cursor-movement escape sequences, and the dispatch loop that decodes
// raw input bytes, resolves them against the registered modules' key
// bindings, and applies the resulting edits.
package editor

import (
	"bytes"
	"io"
	"sort"
	"strconv"
	"unicode"

	"github.com/mattn/go-runewidth"
)

const (
	attrBold      = "\x1b[1m"
	attrReset     = "\x1b[0m"
	attrReverse   = "\x1b[7m"
	attrUnderline = "\x1b[4m"
)

// lineInfo holds cached layout for one rendered row.
type lineInfo struct {
	startPos, endPos int
	x, y             int
}

// attrInfo is a text-attribute span over Screen.text[startPos:endPos).
type attrInfo struct {
	startPos, endPos int
	value            string
}

// Screen models a prompt, input text, and its rendering onto a terminal
// that understands a minimal ANSI subset: relative cursor movement
// (ESC[<n>{A,B,C,D}), home (ESC[H), erase screen (ESC[2J), erase to end
// of line (ESC[K). It's the concrete type the rlengine and history
// packages drive through the history.LineView interface.
type Screen struct {
	prefix []rune
	suffix []rune
	text   []rune

	lines []lineInfo
	attrs []attrInfo

	insertAttrs string

	width, height int

	cursorPos, cursorX, cursorY int
	maxY                        int

	outbuf bytes.Buffer
}

// Init sets the screen's starting terminal size (overridden by SetSize
// once the real size is known).
func (s *Screen) Init() {
	s.width = 80
	s.height = 40
}

// Flush writes the buffered drawing commands to w and clears the buffer.
func (s *Screen) Flush(w io.Writer) {
	_, _ = io.Copy(w, &s.outbuf)
	s.outbuf.Reset()
}

// Reset starts a fresh line with the given prompt text as prefix.
func (s *Screen) Reset(prefix []rune) {
	s.prefix = prefix
	s.suffix = nil
	s.text = append([]rune(nil), s.prefix...)
	s.attrs = nil
	s.insertAttrs = ""
	s.lines = nil
	s.cursorPos, s.cursorX, s.cursorY, s.maxY = 0, 0, 0, 0
	s.renderText(len(s.text))
	s.MoveTo(0)
}

// Cancel leaves the current input on screen and resets for a new line.
func (s *Screen) Cancel() {
	s.MoveTo(len(s.text))
	if s.cursorX != 0 {
		s.outbuf.WriteString("\r\n")
	}
	s.Reset(s.prefix)
}

// SetSize updates the terminal dimensions, reflowing the displayed text.
func (s *Screen) SetSize(width, height int) {
	if s.width == 0 {
		s.width, s.height = width, height
		return
	}
	if width == 0 {
		width = 1
	}
	oldWidth := s.width
	s.width, s.height = width, height
	switch {
	case width == oldWidth:
		return
	case width < oldWidth:
		// Terminals disagree on how they reflow long lines when shrinking;
		// simplest correct thing is a full repaint.
		s.Refresh()
	case width > oldWidth:
		lines := s.maxY
		s.cursorX = width
		s.invalidateLines()
		savedPos := s.cursorPos - len(s.prefix)
		s.cursorPos = 0
		s.moveCursor(0, 0)
		s.renderText(len(s.text))
		s.eraseLineToRight()
		for s.cursorY < lines {
			s.moveCursor(0, s.cursorY+1)
			s.eraseLineToRight()
		}
		s.MoveTo(savedPos)
	}
}

// SetSuffix sets text displayed after the input (used for the sticky
// incremental-search indicator).
func (s *Screen) SetSuffix(newSuffix []rune) {
	oldSuffix := s.suffix
	s.suffix = newSuffix

	s.text = s.text[:len(s.text)-len(oldSuffix)]
	if len(s.text)+len(newSuffix) > cap(s.text) {
		newText := make([]rune, len(s.text), 2*(len(s.text)+len(newSuffix)))
		copy(newText, s.text)
		s.text = newText
	}
	pos := len(s.text)
	s.text = s.text[:len(s.text)+len(newSuffix)]
	copy(s.text[pos:], newSuffix)

	savedPos := s.cursorPos - len(s.prefix)
	s.invalidateLines()
	s.MoveTo(len(s.text))
	s.renderText(len(s.text))
	s.eraseLineToRight()
	for ; s.cursorY < s.maxY; s.cursorY++ {
		s.outbuf.WriteString("\r\n")
		s.cursorX = 0
		s.eraseLineToRight()
	}
	s.MoveTo(savedPos)
}

// Refresh clears the screen and redraws the prompt and text.
func (s *Screen) Refresh() {
	s.eraseScreen()
	s.invalidateLines()
	savedPos := s.cursorPos - len(s.prefix)
	s.cursorPos, s.cursorX, s.cursorY = 0, 0, 0
	s.renderText(len(s.text))
	s.MoveTo(savedPos)
}

// MoveTo moves the cursor to the given position within the input text.
func (s *Screen) MoveTo(pos int) {
	s.maybeRecomputeLines()
	if pos < 0 {
		pos = 0
	}
	if pos > len(s.text)-len(s.suffix)-len(s.prefix) {
		pos = len(s.text) - len(s.suffix) - len(s.prefix)
	}
	pos += len(s.prefix)

	var l *lineInfo
	for i := range s.lines {
		if pos <= s.lines[i].endPos {
			l = &s.lines[i]
			break
		}
	}
	if l == nil {
		l = &s.lines[len(s.lines)-1]
	}

	_, width, _ := fitGraphemes(s.text[l.startPos:pos], s.width-l.x)
	x := l.x + width
	y := l.y + x/s.width
	x = x % s.width

	s.cursorPos = pos
	s.moveCursor(x, y)
}

// SetAttrs sets the attribute escape applied to subsequently inserted
// text (empty string clears it).
func (s *Screen) SetAttrs(value string) { s.insertAttrs = value }

// Insert inserts text at the current cursor position, advancing it.
func (s *Screen) Insert(text ...rune) {
	orig := text
	text = text[:0]
	for _, r := range orig {
		if isPrintable(r) {
			text = append(text, r)
		}
	}
	if len(text) < len(orig) {
		s.outbuf.WriteRune(0x07) // bell: rejected a non-printable rune
	}
	if len(text) == 0 {
		return
	}

	s.invalidateLines()
	if len(s.text)+len(text) > cap(s.text) {
		newText := make([]rune, len(s.text), 2*(len(s.text)+len(text)))
		copy(newText, s.text)
		s.text = newText
	}
	s.text = s.text[:len(s.text)+len(text)]
	copy(s.text[s.cursorPos+len(text):], s.text[s.cursorPos:])
	copy(s.text[s.cursorPos:], text)

	for i := range s.attrs {
		attr := &s.attrs[i]
		if attr.endPos <= s.cursorPos {
			break
		}
		if attr.startPos > s.cursorPos {
			attr.startPos += len(text)
		}
		attr.endPos += len(text)
	}
	if s.insertAttrs != "" {
		s.attrs = append(s.attrs, attrInfo{startPos: s.cursorPos, endPos: s.cursorPos + len(text), value: s.insertAttrs})
		sort.Slice(s.attrs, func(i, j int) bool { return s.attrs[i].startPos < s.attrs[j].startPos })
	}

	newPos := s.cursorPos + len(text) - len(s.prefix)
	s.renderText(len(s.text))
	s.MoveTo(newPos)
}

// EraseTo erases from the current cursor position to pos, returning the
// erased text.
func (s *Screen) EraseTo(pos int) string {
	if pos < 0 {
		pos = 0
	}
	if pos > len(s.text)-len(s.suffix)-len(s.prefix) {
		pos = len(s.text) - len(s.suffix) - len(s.prefix)
	}
	pos += len(s.prefix)

	var erased string
	switch {
	case pos == s.cursorPos:
		return ""
	case pos < s.cursorPos:
		s.eraseAttrs(pos, s.cursorPos)
		erased = string(s.text[pos:s.cursorPos])
		copy(s.text[pos:], s.text[s.cursorPos:])
		s.text = s.text[:len(s.text)-(s.cursorPos-pos)]
		s.MoveTo(pos - len(s.prefix))
	case pos > s.cursorPos:
		s.eraseAttrs(s.cursorPos, pos)
		erased = string(s.text[s.cursorPos:pos])
		copy(s.text[s.cursorPos:], s.text[pos:])
		s.text = s.text[:len(s.text)-(pos-s.cursorPos)]
	}

	s.invalidateLines()
	newPos := s.cursorPos - len(s.prefix)
	s.renderText(len(s.text))
	s.eraseLineToRight()
	for ; s.cursorY < s.maxY; s.cursorY++ {
		s.outbuf.WriteString("\r\n")
		s.cursorX = 0
		s.eraseLineToRight()
	}
	s.MoveTo(newPos)
	return erased
}

// End returns the end-of-input position.
func (s *Screen) End() int { return len(s.text) - len(s.suffix) - len(s.prefix) }

// Text returns the current input text (not including prefix/suffix).
// The returned slice aliases internal storage; callers must not mutate it.
func (s *Screen) Text() []rune { return s.text[len(s.prefix) : len(s.text)-len(s.suffix)] }

// Position returns the cursor offset within Text().
func (s *Screen) Position() int { return s.cursorPos - len(s.prefix) }

// NextGraphemeEnd returns the end of the grapheme after the cursor.
func (s *Screen) NextGraphemeEnd() int {
	text := s.Text()
	pos := s.cursorPos - len(s.prefix)
	if pos >= len(text) {
		return pos
	}
	for n := 0; n < 1 && pos < len(text); pos++ {
		if text[pos] == '\n' || runewidth.RuneWidth(text[pos]) != 0 {
			n++
		}
	}
	for pos < len(text) && text[pos] != '\n' && runewidth.RuneWidth(text[pos]) == 0 {
		pos++
	}
	return pos
}

// PrevGraphemeStart returns the start of the grapheme before the cursor.
func (s *Screen) PrevGraphemeStart() int {
	if s.cursorPos <= len(s.prefix) {
		return 0
	}
	text := s.Text()[:s.cursorPos-len(s.prefix)]
	pos := len(text)
	for n := 0; n < 1 && pos > 0; pos-- {
		if text[pos-1] == '\n' || runewidth.RuneWidth(text[pos-1]) != 0 {
			n++
		}
	}
	return pos
}

// NextWordEnd returns the end of the next word after pos.
func (s *Screen) NextWordEnd(pos int) int {
	text := s.Text()
	for pos < len(text) && !isWord(text[pos]) {
		pos++
	}
	for pos < len(text) && isWord(text[pos]) {
		pos++
	}
	return pos
}

// PrevWordStart returns the start of the word before pos.
func (s *Screen) PrevWordStart(pos int) int {
	text := s.Text()
	pos--
	for pos > 0 && !isWord(text[pos]) {
		pos--
	}
	for pos > 0 && isWord(text[pos-1]) {
		pos--
	}
	if pos < 0 {
		return 0
	}
	return pos
}

func (s *Screen) maybeRecomputeLines() {
	if s.lines != nil {
		return
	}
	var pos, x, y int
	s.lines = nil
	for text := s.text; len(text) >= 0; {
		s.lines = append(s.lines, lineInfo{startPos: pos, endPos: pos, x: x, y: y})
		if len(text) == 0 {
			break
		}
		consumed, width, newline := fitGraphemes(text, s.width-x)
		x += width
		y += x / s.width
		x = x % s.width
		l := &s.lines[len(s.lines)-1]
		l.endPos = pos + consumed
		text = text[consumed:]
		pos += consumed
		if newline || consumed == 0 {
			x = 0
			y++
			if newline {
				pos++
				text = text[1:]
			}
		}
	}
	if s.maxY < y {
		s.maxY = y
	}
}

func (s *Screen) invalidateLines() { s.lines = nil }

func (s *Screen) renderText(end int) {
	var activeAttrs []attrInfo
	attrs := s.attrs
	for len(attrs) > 0 {
		if attrs[0].endPos >= s.cursorPos {
			break
		}
		attrs = attrs[1:]
	}
	startAttrs := func() {
		for len(attrs) > 0 {
			if s.cursorPos < attrs[0].startPos {
				break
			}
			if s.cursorPos < attrs[0].endPos {
				activeAttrs = append(activeAttrs, attrs[0])
				s.outbuf.WriteString(attrs[0].value)
			}
			attrs = attrs[1:]
		}
	}
	endAttrs := func(pos int) {
		old := activeAttrs
		activeAttrs = activeAttrs[:0]
		for i := range old {
			if pos+1 == old[i].endPos {
				continue
			}
			activeAttrs = append(activeAttrs, old[i])
		}
		if len(activeAttrs) != len(old) {
			s.outbuf.WriteString(attrReset)
			for i := range activeAttrs {
				s.outbuf.WriteString(activeAttrs[i].value)
			}
		}
	}

	for text := s.text[s.cursorPos:end]; len(text) > 0; {
		consumed, width, newline := fitGraphemes(text, s.width-s.cursorX)
		for _, r := range text[:consumed] {
			startAttrs()
			s.outbuf.WriteRune(r)
			endAttrs(s.cursorPos)
			s.cursorPos++
		}
		text = text[consumed:]
		if width > 0 {
			s.cursorX += width
			s.cursorY += s.cursorX / s.width
			s.cursorX = s.cursorX % s.width
			if s.cursorX == 0 {
				s.outbuf.WriteString("\r\n")
			}
		}
		if newline || consumed == 0 {
			s.eraseLineToRight()
			s.outbuf.WriteString("\r\n")
			s.cursorX = 0
			s.cursorY++
			if newline {
				endAttrs(s.cursorPos)
				s.cursorPos++
				text = text[1:]
			}
		}
	}
	if len(activeAttrs) != 0 {
		s.outbuf.WriteString(attrReset)
	}
}

func (s *Screen) moveCursor(x, y int) {
	const csi = "\x1b["
	move := func(n int, suffix string) {
		if n == 1 {
			s.outbuf.WriteString(csi)
			s.outbuf.WriteString(suffix)
		} else if n > 1 {
			s.outbuf.WriteString(csi)
			s.outbuf.WriteString(strconv.Itoa(n))
			s.outbuf.WriteString(suffix)
		}
	}
	if y < s.cursorY {
		move(s.cursorY-y, "A")
	}
	if y > s.cursorY {
		move(y-s.cursorY, "B")
	}
	if x < s.cursorX {
		move(s.cursorX-x, "D")
	}
	if x > s.cursorX {
		move(x-s.cursorX, "C")
	}
	s.cursorX, s.cursorY = x, y
}

func (s *Screen) eraseLineToRight() { s.outbuf.WriteString("\x1b[K") }
func (s *Screen) eraseScreen()      { s.outbuf.WriteString("\x1b[H\x1b[2J") }

func (s *Screen) eraseAttrs(start, end int) {
	attrs := s.attrs
	s.attrs = s.attrs[:0]
	for i := range attrs {
		attr := &attrs[i]
		if start >= attr.endPos {
			s.attrs = append(s.attrs, *attr)
			continue
		}
		if end <= attr.startPos {
			attr.startPos -= end - start
			attr.endPos -= end - start
			s.attrs = append(s.attrs, *attr)
			continue
		}
		overlapStart, overlapEnd := attr.startPos, attr.endPos
		if overlapStart < start {
			overlapStart = start
		}
		if overlapEnd > end {
			overlapEnd = end
		}
		attr.endPos -= overlapEnd - overlapStart
		if attr.startPos < attr.endPos {
			if start < attr.startPos {
				attr.endPos -= attr.startPos - start
				attr.startPos = start
			}
			s.attrs = append(s.attrs, *attr)
		}
	}
}

const zeroWidthJoiner = '‍'

func isPrintable(key rune) bool {
	if key == zeroWidthJoiner {
		return false
	}
	isSurrogate := key >= 0xd800 && key <= 0xdbff
	return key == '\n' || (key >= 32 && !isSurrogate)
}

func isWord(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

func fitGraphemes(s []rune, avail int) (consumed, width int, newline bool) {
	for i, r := range s {
		if r == '\n' {
			return i, width, true
		}
		if r < 127 {
			if width >= avail {
				return i, width, false
			}
			width++
			continue
		}
		switch runewidth.RuneWidth(r) {
		case 0:
		case 1:
			if width >= avail {
				return i, width, false
			}
			width++
		case 2:
			if width+2 >= avail {
				return i, width, false
			}
			width += 2
		}
	}
	return len(s), width, false
}
