//go:build windows

package winapi

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// ReadProcessMemory copies n bytes from addr in proc's address space.
func ReadProcessMemory(proc windows.Handle, addr uintptr, n int) ([]byte, error) {
	buf := make([]byte, n)
	var nRead uintptr
	r, _, err := procReadProcessMemory.Call(
		uintptr(proc), addr, uintptr(unsafe.Pointer(&buf[0])), uintptr(n), uintptr(unsafe.Pointer(&nRead)),
	)
	if r == 0 {
		return nil, fmt.Errorf("winapi: ReadProcessMemory: %w", err)
	}
	return buf[:nRead], nil
}

// WriteProcessMemory writes data to addr in proc's address space,
// returning the number of bytes actually written.
func WriteProcessMemory(proc windows.Handle, addr uintptr, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	var nWritten uintptr
	r, _, err := procWriteProcessMemory.Call(
		uintptr(proc), addr, uintptr(unsafe.Pointer(&data[0])), uintptr(len(data)), uintptr(unsafe.Pointer(&nWritten)),
	)
	if r == 0 {
		return 0, fmt.Errorf("winapi: WriteProcessMemory: %w", err)
	}
	return int(nWritten), nil
}

// VirtualAllocEx reserves/commits size bytes of memory in proc's address
// space with the given protection, returning its base address.
func VirtualAllocEx(proc windows.Handle, size int, protect uint32) (uintptr, error) {
	addr, _, err := procVirtualAllocEx.Call(
		uintptr(proc), 0, uintptr(size), uintptr(MemCommit|MemReserve), uintptr(protect),
	)
	if addr == 0 {
		return 0, fmt.Errorf("winapi: VirtualAllocEx: %w", err)
	}
	return addr, nil
}

// VirtualFreeEx releases memory previously reserved by VirtualAllocEx.
func VirtualFreeEx(proc windows.Handle, addr uintptr) error {
	r, _, err := procVirtualFreeEx.Call(uintptr(proc), addr, 0, uintptr(MemRelease))
	if r == 0 {
		return fmt.Errorf("winapi: VirtualFreeEx: %w", err)
	}
	return nil
}

// VirtualProtectEx changes the protection of size bytes at addr in
// proc's address space, returning the previous protection so the
// caller can restore it.
func VirtualProtectEx(proc windows.Handle, addr uintptr, size int, protect uint32) (old uint32, err error) {
	r, _, werr := procVirtualProtectEx.Call(
		uintptr(proc), addr, uintptr(size), uintptr(protect), uintptr(unsafe.Pointer(&old)),
	)
	if r == 0 {
		return 0, fmt.Errorf("winapi: VirtualProtectEx: %w", werr)
	}
	return old, nil
}

// CreateRemoteThread starts a thread in proc at startAddr with the
// given argument, returning its handle. Used by procinject to run a
// DLL's entry point or a blocking remote call.
func CreateRemoteThread(proc windows.Handle, startAddr, arg uintptr) (windows.Handle, error) {
	h, _, err := procCreateRemoteThread.Call(
		uintptr(proc), 0, 0, startAddr, arg, 0, 0,
	)
	if h == 0 {
		return 0, fmt.Errorf("winapi: CreateRemoteThread: %w", err)
	}
	return windows.Handle(h), nil
}

// GetExitCodeThread returns a thread's exit code (the remote call's
// return value, for process.remote_call-style blocking calls).
func GetExitCodeThread(thread windows.Handle) (uint32, error) {
	var code uint32
	r, _, err := procGetExitCodeThread.Call(uintptr(thread), uintptr(unsafe.Pointer(&code)))
	if r == 0 {
		return 0, fmt.Errorf("winapi: GetExitCodeThread: %w", err)
	}
	return code, nil
}
