//go:build windows

package winapi

import "unsafe"

// unsafePeek reads n bytes starting at a raw address within the current
// process's own address space. Used only by FollowJumpStub, which
// inspects code already mapped into this process (the hook setter
// always targets DLLs loaded into the host it's running inside).
func unsafePeek(addr uintptr, n int) []byte {
	if addr == 0 {
		return nil
	}
	out := make([]byte, n)
	src := unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
	copy(out, src)
	return out
}
