// Package termio translates between raw Windows console records and
// the xterm-style byte stream the rest of the editor understands: an
// input side (KEY_EVENT → bytes, resize → callback) and an output side
// (ECMA-48 codes → WriteConsoleW calls, SGR → console text attribute).
package termio

import "unicode/utf8"

// Virtual-key codes this package special-cases, named the way
// winuser.h does (values from the Win32 SDK headers).
const (
	vkBack   = 0x08
	vkTab    = 0x09
	vkReturn = 0x0d
	vkShift  = 0x10
	vkMenu   = 0x12 // ALT
	vkEscape = 0x1b
	vkPrior  = 0x21 // Page Up
	vkNext   = 0x22 // Page Down
	vkEnd    = 0x23
	vkHome   = 0x24
	vkLeft   = 0x25
	vkUp     = 0x26
	vkRight  = 0x27
	vkDown   = 0x28
	vkInsert = 0x2d
	vkDelete = 0x2e
)

// enhancedKeys lists the numpad-shaped virtual keys the console marks
// ENHANCED_KEY for when they arrive via the physical arrow/nav cluster
// rather than the numeric keypad.
var enhancedKeys = map[uint16]bool{
	vkPrior: true, vkNext: true, vkEnd: true, vkHome: true,
	vkLeft: true, vkUp: true, vkRight: true, vkDown: true,
	vkInsert: true, vkDelete: true,
}

// navTable is the virtual-key-code→escape-final table for the navigation
// cluster: the lead byte ('[' for CSI, 'O' for SS3) is chosen by
// whether Ctrl is held, not stored per key.
var navTable = map[uint16]byte{
	vkUp: 'A', vkDown: 'B', vkRight: 'C', vkLeft: 'D',
	vkHome: 'H', vkEnd: 'F',
}

// KeyEvent mirrors the fields of Win32's KEY_EVENT_RECORD this package
// needs; callers translate from the real INPUT_RECORD on the Windows
// build, but the translation logic itself takes no Windows types so it
// can be exercised without a console.
type KeyEvent struct {
	KeyDown         bool
	VirtualKeyCode  uint16
	UnicodeChar     rune
	ControlKeyState uint32
}

// Control-key-state bit flags (Win32 CONSOLE_READCONSOLE_CONTROL /
// KEY_EVENT_RECORD.dwControlKeyState).
const (
	enhancedKeyFlag  = 0x0100
	leftAltPressed   = 0x0002
	rightAltPressed  = 0x0001
	leftCtrlPressed  = 0x0008
	rightCtrlPressed = 0x0004
	shiftPressed     = 0x0010
)

func altPressed(state uint32) bool {
	return state&(leftAltPressed|rightAltPressed) != 0
}

func ctrlPressed(state uint32) bool {
	return state&(leftCtrlPressed|rightCtrlPressed) != 0
}

func shiftHeld(state uint32) bool {
	return state&shiftPressed != 0
}

// altGrSubstitute reports whether state looks like an AltGr chord
// synthesised by the console as LeftCtrl+RightAlt: both present, with
// no separate LeftAlt.
func altGrSubstitute(state uint32) bool {
	return state&leftCtrlPressed != 0 && state&rightAltPressed != 0 && state&leftAltPressed == 0
}

// Translator converts KeyEvents into the xterm-style byte stream the
// binder/resolver layer consumes.
type Translator struct {
	// AltGrEnabled mirrors the "terminal.altgr" setting: when true,
	// altGrSubstitute chords are treated as plain Unicode input rather
	// than an ALT-prefixed control sequence.
	AltGrEnabled bool
}

// NewTranslator returns a Translator with AltGr support enabled, the
// default the console host normally runs with.
func NewTranslator() *Translator {
	return &Translator{AltGrEnabled: true}
}

// Translate appends the byte sequence ev produces to dst and returns
// the result. A KEY_EVENT with bKeyDown=false or a pure modifier
// key-down produces no bytes.
func (tr *Translator) Translate(dst []byte, ev KeyEvent) []byte {
	if !ev.KeyDown {
		return dst
	}
	switch ev.VirtualKeyCode {
	case vkShift, vkMenu, 0x11 /* VK_CONTROL */, 0x14 /* VK_CAPITAL */:
		return dst
	}

	isAltGr := altGrSubstitute(ev.ControlKeyState)
	if isAltGr && tr.AltGrEnabled {
		if ev.UnicodeChar != 0 {
			return appendRune(dst, ev.UnicodeChar)
		}
	}

	if ev.UnicodeChar != 0 {
		if altPressed(ev.ControlKeyState) && !(isAltGr && tr.AltGrEnabled) {
			dst = append(dst, 0x1b)
		}
		return appendRune(dst, ev.UnicodeChar)
	}

	// Shift-Tab: no Unicode char, VK_TAB with Shift held.
	if ev.VirtualKeyCode == vkTab && shiftHeld(ev.ControlKeyState) {
		return append(dst, 0x1b, '[', 'Z')
	}

	enhanced := enhancedKeys[ev.VirtualKeyCode] || ev.ControlKeyState&enhancedKeyFlag != 0

	if enhanced {
		if final, ok := navTable[ev.VirtualKeyCode]; ok {
			lead := byte('[')
			if ctrlPressed(ev.ControlKeyState) {
				lead = 'O'
			}
			return append(dst, 0x1b, lead, final)
		}
		return dst
	}

	return appendControlCode(dst, ev)
}

// appendControlCode synthesises a control byte for a VK that produced
// no Unicode character and isn't in the enhanced-key table: letters
// A-Z map to 1-26, bracket keys to 0x1b-0x1d, and a handful of digit
// keys to their historical control-code partners.
func appendControlCode(dst []byte, ev KeyEvent) []byte {
	var code byte
	switch {
	case ev.VirtualKeyCode >= 'A' && ev.VirtualKeyCode <= 'Z':
		code = byte(ev.VirtualKeyCode - 'A' + 1)
	case ev.VirtualKeyCode == 0xdb: // VK_OEM_4 '['
		code = 0x1b
	case ev.VirtualKeyCode == 0xdc: // VK_OEM_5 '\'
		code = 0x1c
	case ev.VirtualKeyCode == 0xdd: // VK_OEM_6 ']'
		code = 0x1d
	case ev.VirtualKeyCode == '2':
		code = 0
	case ev.VirtualKeyCode == '6':
		code = 0x1e
	case ev.VirtualKeyCode == 0xbd: // VK_OEM_MINUS '-'
		code = 0x1f
	default:
		return dst
	}
	if altPressed(ev.ControlKeyState) {
		dst = append(dst, 0x1b)
	}
	return append(dst, code)
}

func appendRune(dst []byte, r rune) []byte {
	return utf8.AppendRune(dst, r)
}
