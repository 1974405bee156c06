//go:build windows

package hook

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/shimmer-term/shimmer/winapi"
)

// iatPatch remembers enough to restore a single IAT slot: which
// process-local address holds the slot, and the pointer that lived
// there before the hook.
type iatPatch struct {
	library  string
	name     string
	slotAddr uintptr
	oldValue uintptr
}

// attachIAT patches the current executable's own import-address-table
// slot for library!name to point at replacement, returning the value
// that was there (the real function's resolved address) so callers can
// chain to it.
func attachIAT(library, name string, replacement uintptr) (*iatPatch, error) {
	exe, err := winapi.GetExecutableModule()
	if err != nil {
		return nil, fmt.Errorf("hook: resolving host module: %w", err)
	}
	path, err := exe.FileName()
	if err != nil {
		return nil, fmt.Errorf("hook: resolving host image path: %w", err)
	}

	entry, err := winapi.FindImport(path, library, name)
	if err != nil {
		return nil, fmt.Errorf("hook: %w", err)
	}

	slotAddr := exe.Base + uintptr(entry.IATRVA)
	slotPtr := (*uintptr)(unsafe.Pointer(slotAddr))

	var oldProtect uint32
	if err := windows.VirtualProtect(slotAddr, unsafe.Sizeof(slotAddr), windows.PAGE_READWRITE, &oldProtect); err != nil {
		return nil, fmt.Errorf("hook: VirtualProtect(%s!%s): %w", library, name, err)
	}

	old := *slotPtr
	*slotPtr = replacement

	var discard uint32
	_ = windows.VirtualProtect(slotAddr, unsafe.Sizeof(slotAddr), oldProtect, &discard)

	return &iatPatch{library: library, name: name, slotAddr: slotAddr, oldValue: old}, nil
}

func (p *iatPatch) restore() error {
	slotPtr := (*uintptr)(unsafe.Pointer(p.slotAddr))

	var oldProtect uint32
	if err := windows.VirtualProtect(p.slotAddr, unsafe.Sizeof(p.slotAddr), windows.PAGE_READWRITE, &oldProtect); err != nil {
		return fmt.Errorf("hook: restoring %s!%s: %w", p.library, p.name, err)
	}
	*slotPtr = p.oldValue
	var discard uint32
	_ = windows.VirtualProtect(p.slotAddr, unsafe.Sizeof(p.slotAddr), oldProtect, &discard)
	return nil
}
