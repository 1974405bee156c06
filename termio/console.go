//go:build windows

package termio

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// ReadConsoleInputW and SetConsoleTextAttribute aren't wrapped by
// golang.org/x/sys/windows, so they're declared directly against
// kernel32.dll — the same lazy-DLL pattern package winapi uses for the
// handful of Win32 calls it needs that aren't pre-wrapped either.
var (
	modkernel32                 = windows.NewLazySystemDLL("kernel32.dll")
	procReadConsoleInputW       = modkernel32.NewProc("ReadConsoleInputW")
	procSetConsoleTextAttribute = modkernel32.NewProc("SetConsoleTextAttribute")
)

// Console input record event types (wincon.h).
const (
	keyEventType             = 0x0001
	windowBufferSizeEventType = 0x0004
)

// inputRecord mirrors Win32's INPUT_RECORD: a 2-byte event type, 2
// bytes of compiler padding, and a 16-byte union big enough to hold
// any of KEY_EVENT_RECORD/MOUSE_EVENT_RECORD/WINDOW_BUFFER_SIZE_RECORD
// (sizeof(INPUT_RECORD) == 20 on both x86 and x64).
type inputRecord struct {
	eventType uint16
	_         uint16
	event     [16]byte
}

func (r inputRecord) keyDown() bool {
	return binary.LittleEndian.Uint32(r.event[0:4]) != 0
}

func (r inputRecord) virtualKeyCode() uint16 {
	return binary.LittleEndian.Uint16(r.event[6:8])
}

func (r inputRecord) unicodeChar() uint16 {
	return binary.LittleEndian.Uint16(r.event[10:12])
}

func (r inputRecord) controlKeyState() uint32 {
	return binary.LittleEndian.Uint32(r.event[12:16])
}

func (r inputRecord) windowSize() (x, y int16) {
	return int16(binary.LittleEndian.Uint16(r.event[0:2])), int16(binary.LittleEndian.Uint16(r.event[2:4]))
}

func readConsoleInput(h windows.Handle, recs []inputRecord) (int, error) {
	var n uint32
	r, _, err := procReadConsoleInputW.Call(
		uintptr(h), uintptr(unsafe.Pointer(&recs[0])), uintptr(len(recs)), uintptr(unsafe.Pointer(&n)),
	)
	if r == 0 {
		return 0, err
	}
	return int(n), nil
}

func setConsoleTextAttribute(h windows.Handle, attr uint16) error {
	r, _, err := procSetConsoleTextAttribute.Call(uintptr(h), uintptr(attr))
	if r == 0 {
		return err
	}
	return nil
}

// Console wraps a real Windows console pair (input + output handles)
// and implements ConsoleWriter, plus the KEY_EVENT/resize read loop
// Translator.Translate needs input from.
type Console struct {
	in, out windows.Handle

	savedInMode uint32
	defaultAttr uint16

	tr     *Translator
	writer *Writer

	// OnResize, if set, is called with the new buffer size whenever a
	// WINDOW_BUFFER_SIZE_EVENT record arrives.
	OnResize func(width, height int16)
}

// NewConsole opens the console's own input/output handles ("CONIN$"/
// "CONOUT$", which always refer to the calling process's console
// regardless of stdio redirection), and captures the console's current
// text attribute so a Writer built over this Console can restore the
// user's actual starting colors on an SGR reset instead of a hardcoded
// light-grey-on-black default.
func NewConsole() (*Console, error) {
	in, err := windows.CreateFile(
		windows.StringToUTF16Ptr("CONIN$"), windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE, nil, windows.OPEN_EXISTING, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("termio: opening CONIN$: %w", err)
	}
	out, err := windows.CreateFile(
		windows.StringToUTF16Ptr("CONOUT$"), windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE, nil, windows.OPEN_EXISTING, 0, 0)
	if err != nil {
		windows.CloseHandle(in)
		return nil, fmt.Errorf("termio: opening CONOUT$: %w", err)
	}

	var info windows.ConsoleScreenBufferInfo
	if err := windows.GetConsoleScreenBufferInfo(out, &info); err != nil {
		windows.CloseHandle(in)
		windows.CloseHandle(out)
		return nil, fmt.Errorf("termio: GetConsoleScreenBufferInfo: %w", err)
	}

	return &Console{in: in, out: out, tr: NewTranslator(), defaultAttr: info.Attributes & 0xff}, nil
}

// DefaultAttribute implements DefaultAttributeProvider, letting Writer
// seed and reset to this console's own starting text attribute rather
// than an assumed default.
func (c *Console) DefaultAttribute() uint16 { return c.defaultAttr }

// Close releases both console handles.
func (c *Console) Close() error {
	err1 := windows.CloseHandle(c.in)
	err2 := windows.CloseHandle(c.out)
	if err1 != nil {
		return err1
	}
	return err2
}

// EnterRawMode saves the current input mode and switches to raw
// key-by-key delivery: ENABLE_WINDOW_INPUT so resize records arrive,
// ENABLE_PROCESSED_INPUT cleared so Ctrl-C reaches us as a byte rather
// than terminating the process.
func (c *Console) EnterRawMode() error {
	if err := windows.GetConsoleMode(c.in, &c.savedInMode); err != nil {
		return fmt.Errorf("termio: GetConsoleMode(in): %w", err)
	}
	if err := windows.SetConsoleMode(c.in, windows.ENABLE_WINDOW_INPUT); err != nil {
		return fmt.Errorf("termio: SetConsoleMode(in): %w", err)
	}
	return nil
}

// ExitRawMode restores the console input mode saved by EnterRawMode.
// Callers must run it on every exit path, including a panic recovery,
// so a crash never leaves the host console stuck in raw mode.
func (c *Console) ExitRawMode() error {
	return windows.SetConsoleMode(c.in, c.savedInMode)
}

// ReadInput blocks on ReadConsoleInput until it produces at least one
// byte of translated input, appending to dst. Window-resize records
// are consumed internally and reported via OnResize rather than
// returned as bytes.
func (c *Console) ReadInput(dst []byte) ([]byte, error) {
	var recs [8]inputRecord
	for {
		n, err := readConsoleInput(c.in, recs[:])
		if err != nil {
			return dst, fmt.Errorf("termio: ReadConsoleInput: %w", err)
		}
		start := len(dst)
		for i := 0; i < n; i++ {
			rec := recs[i]
			switch rec.eventType {
			case keyEventType:
				dst = c.tr.Translate(dst, KeyEvent{
					KeyDown:         rec.keyDown(),
					VirtualKeyCode:  rec.virtualKeyCode(),
					UnicodeChar:     rune(rec.unicodeChar()),
					ControlKeyState: rec.controlKeyState(),
				})
			case windowBufferSizeEventType:
				if c.OnResize != nil {
					x, y := rec.windowSize()
					c.OnResize(x, y)
				}
			}
		}
		if len(dst) > start {
			return dst, nil
		}
	}
}

// WriteUTF16 implements ConsoleWriter.
func (c *Console) WriteUTF16(chunk []uint16) error {
	var n uint32
	return windows.WriteConsole(c.out, &chunk[0], uint32(len(chunk)), &n, nil)
}

// SetAttribute implements ConsoleWriter.
func (c *Console) SetAttribute(attr uint16) error {
	return setConsoleTextAttribute(c.out, attr)
}

// CursorPosition implements ConsoleWriter.
func (c *Console) CursorPosition() (int16, int16, error) {
	var info windows.ConsoleScreenBufferInfo
	if err := windows.GetConsoleScreenBufferInfo(c.out, &info); err != nil {
		return 0, 0, err
	}
	return info.CursorPosition.X, info.CursorPosition.Y, nil
}

// SetCursorPosition implements ConsoleWriter.
func (c *Console) SetCursorPosition(x, y int16) error {
	return windows.SetConsoleCursorPosition(c.out, windows.Coord{X: x, Y: y})
}

// Read implements io.Reader by translating one batch of console input
// events into bytes via ReadInput, so a Console can be handed directly
// to anything that consumes a byte stream (e.g. editor.Loop.Run).
func (c *Console) Read(p []byte) (int, error) {
	b, err := c.ReadInput(p[:0])
	return copy(p, b), err
}

// Write implements io.Writer by decoding p as an ECMA-48/ANSI byte
// stream through a Writer bound to this console, translating SGR
// attributes and chunking text the same way any other Writer user
// does.
func (c *Console) Write(p []byte) (int, error) {
	if c.writer == nil {
		c.writer = NewWriter(c)
	}
	return c.writer.Write(p)
}
