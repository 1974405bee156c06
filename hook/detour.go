//go:build windows

package hook

import (
	"fmt"
	"unsafe"

	"golang.org/x/arch/x86/x86asm"
	"golang.org/x/sys/windows"

	"github.com/shimmer-term/shimmer/winapi"
)

// jmpPatchLen is the size of the absolute-jump patch this package
// writes at a hooked function's entry point: on x64, "jmp [rip+0]"
// followed by the 8-byte absolute target (ff 25 00000000 <imm64>, 14
// bytes); on x86, a plain "jmp rel32" (e9 <rel32>, 5 bytes).
func jmpPatchLen() int {
	if is64Bit {
		return 14
	}
	return 5
}

const is64Bit = unsafe.Sizeof(uintptr(0)) == 8

// detourPatch remembers how to undo a single inline detour: the
// target address, how many original bytes were overwritten, those
// bytes themselves, and the trampoline page holding them plus a jump
// back to the unmodified remainder of the function.
type detourPatch struct {
	library    string
	name       string
	target     uintptr
	savedBytes []byte
	trampoline uintptr
}

// attachDetour patches library's export name in place so every caller
// — regardless of how it reached the function — lands in replacement.
// The bytes overwritten always span whole instructions: x86asm decodes
// the prologue at the (jump-stub-resolved) target until enough bytes
// are consumed to fit the patch, so the inline jump never splits an
// instruction mid-stream. Those original bytes are copied into a
// freshly allocated executable page followed by a jump back to the
// first untouched byte, and *original (via the caller) is set to that
// trampoline so hooked code can still reach the real implementation.
func attachDetour(library, name string, replacement uintptr) (*detourPatch, error) {
	mod, err := winapi.GetModule(library)
	if err != nil {
		return nil, fmt.Errorf("hook: %w", err)
	}
	target, err := mod.Export(name)
	if err != nil {
		return nil, fmt.Errorf("hook: %w", err)
	}
	target = winapi.FollowJumpStub(target)

	patchLen := jmpPatchLen()
	mode := 32
	if is64Bit {
		mode = 64
	}

	code := unsafePeekLocal(target, patchLen+16)
	overwrite := 0
	for overwrite < patchLen {
		if overwrite >= len(code) {
			return nil, fmt.Errorf("hook: %s!%s: prologue too short to patch", library, name)
		}
		inst, err := x86asm.Decode(code[overwrite:], mode)
		if err != nil || inst.Len == 0 {
			return nil, fmt.Errorf("hook: %s!%s: failed decoding prologue at +%d: %v", library, name, overwrite, err)
		}
		overwrite += inst.Len
	}
	saved := append([]byte(nil), code[:overwrite]...)

	trampoline, err := buildTrampoline(saved, target+uintptr(overwrite))
	if err != nil {
		return nil, fmt.Errorf("hook: %s!%s: building trampoline: %w", library, name, err)
	}

	if err := writeJump(target, replacement, overwrite); err != nil {
		freeTrampoline(trampoline)
		return nil, fmt.Errorf("hook: %s!%s: writing patch: %w", library, name, err)
	}

	return &detourPatch{
		library: library, name: name, target: target,
		savedBytes: saved, trampoline: trampoline,
	}, nil
}

func (p *detourPatch) restore() error {
	if err := restoreBytes(p.target, p.savedBytes); err != nil {
		return fmt.Errorf("hook: restoring %s!%s: %w", p.library, p.name, err)
	}
	freeTrampoline(p.trampoline)
	return nil
}

// buildTrampoline allocates an executable page containing saved
// followed by an absolute jump to resumeAt (the first byte of the
// target function past the overwritten prologue), so code reached
// through the returned address runs the original prologue and then
// continues exactly where the patch stops.
func buildTrampoline(saved []byte, resumeAt uintptr) (uintptr, error) {
	jumpLen := jmpPatchLen()
	total := len(saved) + jumpLen

	addr, _, e1 := windows.NewLazySystemDLL("kernel32.dll").NewProc("VirtualAlloc").Call(
		0, uintptr(total), winapi.MemCommit|winapi.MemReserve, winapi.PageExecuteReadWrite)
	if addr == 0 {
		return 0, fmt.Errorf("VirtualAlloc: %w", e1)
	}

	patch := encodeJumpAt(addr+uintptr(len(saved)), resumeAt)

	buf := unsafe.Slice((*byte)(unsafe.Pointer(addr)), total)
	copy(buf, saved)
	copy(buf[len(saved):], patch)

	return addr, nil
}

func freeTrampoline(addr uintptr) {
	if addr == 0 {
		return
	}
	windows.NewLazySystemDLL("kernel32.dll").NewProc("VirtualFree").Call(addr, 0, winapi.MemRelease)
}

// writeJump overwrites overwrite bytes at target with an absolute jump
// to dest, padding any remaining bytes (when overwrite > the jump
// encoding's own length) with single-byte NOPs so no stray partial
// instruction is left behind.
func writeJump(at, dest uintptr, overwrite int) error {
	patch := encodeJumpAt(at, dest)
	if len(patch) > overwrite {
		return fmt.Errorf("jump encoding (%d bytes) longer than reserved prologue (%d bytes)", len(patch), overwrite)
	}
	buf := make([]byte, overwrite)
	copy(buf, patch)
	for i := len(patch); i < overwrite; i++ {
		buf[i] = 0x90 // nop
	}
	return writeBytes(at, buf)
}

func restoreBytes(target uintptr, saved []byte) error {
	return writeBytes(target, saved)
}

func writeBytes(target uintptr, data []byte) error {
	var oldProtect uint32
	if err := windows.VirtualProtect(target, uintptr(len(data)), windows.PAGE_EXECUTE_READWRITE, &oldProtect); err != nil {
		return err
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(target)), len(data))
	copy(dst, data)
	var discard uint32
	_ = windows.VirtualProtect(target, uintptr(len(data)), oldProtect, &discard)
	return nil
}

// encodeJumpAt returns machine code for an unconditional jump to dest,
// to be placed starting at address at, that doesn't clobber any
// register: on x64, "jmp [rip+0]" followed inline by the 8-byte
// absolute address (position-independent, at is unused); on x86, a
// direct "jmp rel32" relative to at.
func encodeJumpAt(at, dest uintptr) []byte {
	if is64Bit {
		buf := make([]byte, 14)
		buf[0], buf[1] = 0xff, 0x25
		// disp32 is 0: the address dword sits immediately after the
		// instruction, which is exactly where rip points once it's
		// fetched.
		d := uint64(dest)
		for i := 0; i < 8; i++ {
			buf[6+i] = byte(d >> (8 * i))
		}
		return buf
	}
	buf := make([]byte, 5)
	buf[0] = 0xe9
	rel := int32(int64(dest) - int64(at) - 5)
	buf[1] = byte(rel)
	buf[2] = byte(rel >> 8)
	buf[3] = byte(rel >> 16)
	buf[4] = byte(rel >> 24)
	return buf
}

func unsafePeekLocal(addr uintptr, n int) []byte {
	out := make([]byte, n)
	src := unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
	copy(out, src)
	return out
}
