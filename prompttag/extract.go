//go:build windows

package prompttag

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// ReadConsoleOutputCharacterW isn't wrapped by golang.org/x/sys/windows;
// declared directly against kernel32.dll, same pattern as the other
// console primitives this tree adds by hand.
var (
	modkernel32                     = windows.NewLazySystemDLL("kernel32.dll")
	procReadConsoleOutputCharacterW = modkernel32.NewProc("ReadConsoleOutputCharacterW")
)

// Extract reads the visible prompt already on screen: the cells of the
// cursor's own row, from column 0 up to (not including) the cursor's
// column, giving the prompt text even when our own tag was written
// earlier in the same row and has since scrolled out of the local
// capture buffer.
func Extract(console windows.Handle) (string, error) {
	var info windows.ConsoleScreenBufferInfo
	if err := windows.GetConsoleScreenBufferInfo(console, &info); err != nil {
		return "", fmt.Errorf("prompttag: GetConsoleScreenBufferInfo: %w", err)
	}
	width := info.CursorPosition.X
	if width <= 0 {
		return "", nil
	}
	buf := make([]uint16, width)
	// COORD is packed into a DWORD parameter: X in the low word, Y in
	// the high word.
	packedOrigin := uintptr(uint32(uint16(0)) | uint32(uint16(info.CursorPosition.Y))<<16)

	var read uint32
	r, _, err := procReadConsoleOutputCharacterW.Call(
		uintptr(console),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(width),
		packedOrigin,
		uintptr(unsafe.Pointer(&read)),
	)
	if r == 0 {
		return "", fmt.Errorf("prompttag: ReadConsoleOutputCharacterW: %w", err)
	}
	return windows.UTF16ToString(buf[:read]), nil
}
