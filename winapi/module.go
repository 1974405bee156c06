//go:build windows

package winapi

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// Module is a loaded module's handle and base address within the
// current process.
type Module struct {
	Handle windows.Handle
	Base   uintptr
}

// GetModule returns the already-loaded module named name (e.g.
// "kernel32.dll"). It does not load the module if it isn't already
// mapped — the hook setter only ever targets modules the host process
// has loaded itself.
func GetModule(name string) (Module, error) {
	h, err := windows.GetModuleHandle(name)
	if err != nil {
		return Module{}, fmt.Errorf("winapi: GetModuleHandle(%s): %w", name, err)
	}
	return Module{Handle: h, Base: uintptr(h)}, nil
}

// GetExecutableModule returns the host process's own main module —
// the equivalent of calling Win32's GetModuleHandle(NULL), which
// golang.org/x/sys/windows has no direct overload for since its
// GetModuleHandle always marshals a non-null name pointer. The hook
// setter's IAT path always patches this module's own import table.
func GetExecutableModule() (Module, error) {
	r1, _, e1 := procGetModuleHandleW.Call(0, 0)
	if r1 == 0 {
		return Module{}, fmt.Errorf("winapi: GetModuleHandle(NULL): %w", e1)
	}
	return Module{Handle: windows.Handle(r1), Base: r1}, nil
}

// Export resolves name's address within m via GetProcAddress.
func (m Module) Export(name string) (uintptr, error) {
	addr, err := windows.GetProcAddress(m.Handle, name)
	if err != nil {
		return 0, fmt.Errorf("winapi: GetProcAddress(%s): %w", name, err)
	}
	return addr, nil
}

// FileName returns the full path of the file m was mapped from, so its
// import/export tables can be parsed from disk (package debug/pe has no
// API for inspecting another process's already-mapped image, so the
// hook setter reads the file the loader itself mapped m from).
func (m Module) FileName() (string, error) {
	buf := make([]uint16, windows.MAX_PATH)
	n, err := windows.GetModuleFileName(m.Handle, &buf[0], uint32(len(buf)))
	if err != nil || n == 0 {
		return "", fmt.Errorf("winapi: GetModuleFileName: %w", err)
	}
	return windows.UTF16ToString(buf[:n]), nil
}

// FollowJumpStub follows a thin "jump stub" thunk at addr to the real
// implementation it jumps to, in the current process's own memory
// (the layout a hooked function's first bytes are read from is
// whatever's actually mapped, which on import-forwarded or
// incrementally-linked DLLs is sometimes just a single JMP to the real
// body). addr is returned unchanged if it isn't recognised as one of
// the two shapes this handles:
//
//   - x64: 0xff 0x25 <disp32> — RIP-relative "jmp [rip+disp32]"
//   - x86: 0xe9 <disp32>      — direct "jmp disp32"
//
// A REX prefix byte (0x40-0x4f) immediately before either form is
// skipped, matching MSVC's thunk encoding on x64.
func FollowJumpStub(addr uintptr) uintptr {
	code := unsafePeek(addr, 16)
	if code == nil {
		return addr
	}
	t := code
	if len(t) > 0 && t[0]&0xf0 == 0x40 {
		t = t[1:]
	}
	if len(t) < 6 {
		return addr
	}
	switch {
	case t[0] == 0xff && (t[1]&0x38) == 0x20 && (t[1]&0x07) == 0x05:
		// jmp [rip+disp32]: dereference the pointer the instruction's
		// own end (6 bytes in) plus disp32 resolves to.
		disp := int32(le32(t[2:6]))
		ptrAddr := addr + uintptr(len(code)-len(t)) + 6 + uintptr(disp)
		if deref := unsafePeek(ptrAddr, 8); deref != nil {
			return uintptr(le64(deref))
		}
	case t[0] == 0xe9:
		disp := int32(le32(t[1:5]))
		return addr + uintptr(len(code)-len(t)) + 5 + uintptr(disp)
	}
	return addr
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func le64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8 && i < len(b); i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
