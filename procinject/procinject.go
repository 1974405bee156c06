//go:build windows

// Package procinject injects the runtime DLL into a target shell
// process and runs a blocking call inside it: enumerate the target's
// threads, pause them for the duration of hook installation, load the
// DLL via a remote LoadLibraryW call, and invoke an exported function
// by name and wait for it to return.
package procinject

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/shimmer-term/shimmer/winapi"
)

// Process is a handle to a target process opened for injection:
// memory read/write, remote thread creation, and query access.
type Process struct {
	PID    uint32
	Handle windows.Handle
}

const procAccess = windows.PROCESS_CREATE_THREAD |
	windows.PROCESS_QUERY_INFORMATION |
	windows.PROCESS_VM_OPERATION |
	windows.PROCESS_VM_WRITE |
	windows.PROCESS_VM_READ

// Open acquires the access rights injection needs on an already
// running process.
func Open(pid uint32) (*Process, error) {
	h, err := windows.OpenProcess(procAccess, false, pid)
	if err != nil {
		return nil, fmt.Errorf("procinject: OpenProcess(%d): %w", pid, err)
	}
	return &Process{PID: pid, Handle: h}, nil
}

// Close releases the process handle.
func (p *Process) Close() error {
	return windows.CloseHandle(p.Handle)
}

// Pause enumerates every thread belonging to this process via
// CreateToolhelp32Snapshot(TH32CS_SNAPTHREAD, ...) and suspends each
// one, returning the list of thread IDs actually suspended so Resume
// can wake exactly those back up. Required only while installing hooks
// in another process — never during this process's own steady-state
// editing, which has no paused threads to manage.
func (p *Process) Pause() ([]uint32, error) {
	tids, err := p.threadIDs()
	if err != nil {
		return nil, err
	}
	suspended := make([]uint32, 0, len(tids))
	for _, tid := range tids {
		h, err := windows.OpenThread(windows.THREAD_SUSPEND_RESUME, false, tid)
		if err != nil {
			continue
		}
		if _, err := windows.SuspendThread(h); err == nil {
			suspended = append(suspended, tid)
		}
		windows.CloseHandle(h)
	}
	return suspended, nil
}

// Resume resumes every thread ID Pause suspended.
func (p *Process) Resume(tids []uint32) {
	for _, tid := range tids {
		h, err := windows.OpenThread(windows.THREAD_SUSPEND_RESUME, false, tid)
		if err != nil {
			continue
		}
		windows.ResumeThread(h)
		windows.CloseHandle(h)
	}
}

func (p *Process) threadIDs() ([]uint32, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPTHREAD, 0)
	if err != nil {
		return nil, fmt.Errorf("procinject: CreateToolhelp32Snapshot: %w", err)
	}
	defer windows.CloseHandle(snap)

	var entry windows.ThreadEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	var tids []uint32
	if err := windows.Thread32First(snap, &entry); err != nil {
		return nil, fmt.Errorf("procinject: Thread32First: %w", err)
	}
	for {
		if entry.OwnerProcessID == p.PID {
			tids = append(tids, entry.ThreadID)
		}
		if err := windows.Thread32Next(snap, &entry); err != nil {
			break
		}
	}
	return tids, nil
}

// InjectDLL loads path into the target process by writing its name
// into remotely allocated memory and running a remote thread at
// LoadLibraryW with that pointer as its argument — the classic
// CreateRemoteThread injection technique. Returns the loaded module's
// base address inside the target (the remote thread's exit code,
// which LoadLibraryW returns as an HMODULE) or an error if the load
// failed (exit code zero).
func (p *Process) InjectDLL(path string) (uintptr, error) {
	u16, err := windows.UTF16FromString(path)
	if err != nil {
		return 0, fmt.Errorf("procinject: encoding %q: %w", path, err)
	}
	buf := u16ToBytes(u16)

	remote, err := winapi.VirtualAllocEx(p.Handle, len(buf), winapi.PageReadWrite)
	if err != nil {
		return 0, fmt.Errorf("procinject: allocating argument buffer: %w", err)
	}
	defer winapi.VirtualFreeEx(p.Handle, remote)

	if _, err := winapi.WriteProcessMemory(p.Handle, remote, buf); err != nil {
		return 0, fmt.Errorf("procinject: writing module path: %w", err)
	}

	kernel32, err := winapi.GetModule("kernel32.dll")
	if err != nil {
		return 0, fmt.Errorf("procinject: %w", err)
	}
	loadLibrary, err := kernel32.Export("LoadLibraryW")
	if err != nil {
		return 0, fmt.Errorf("procinject: %w", err)
	}

	exitCode, err := p.remoteCall(loadLibrary, remote)
	if err != nil {
		return 0, err
	}
	if exitCode == 0 {
		return 0, fmt.Errorf("procinject: LoadLibraryW(%q) failed in target process", path)
	}
	return uintptr(exitCode), nil
}

// CallExport loads dllPath into the target (InjectDLL) if it isn't
// already, resolves exportName's address from the file's own export
// table (GetProcAddress only resolves within the calling process, so
// the remote address is this process's own PE parse of the RVA plus
// the base InjectDLL reports back) and calls it with arg, waiting for
// the call to return.
func (p *Process) CallExport(dllPath, exportName string, arg uintptr) (uint32, error) {
	base, err := p.InjectDLL(dllPath)
	if err != nil {
		return 0, err
	}
	rva, err := winapi.FindExportRVA(dllPath, exportName)
	if err != nil {
		return 0, fmt.Errorf("procinject: %w", err)
	}
	return p.Call(base+uintptr(rva), arg)
}

// Call runs a blocking remote call to an already-loaded function at
// addr with a single pointer-sized argument, waiting for the remote
// thread to finish and returning its exit code — used once a DLL is
// loaded to invoke its entry point and exchange control with the
// injected runtime.
func (p *Process) Call(addr, arg uintptr) (uint32, error) {
	return p.remoteCall(addr, arg)
}

func (p *Process) remoteCall(addr, arg uintptr) (uint32, error) {
	h, err := winapi.CreateRemoteThread(p.Handle, addr, arg)
	if err != nil {
		return 0, fmt.Errorf("procinject: CreateRemoteThread: %w", err)
	}
	defer windows.CloseHandle(h)

	if _, err := windows.WaitForSingleObject(h, windows.INFINITE); err != nil {
		return 0, fmt.Errorf("procinject: WaitForSingleObject: %w", err)
	}
	return winapi.GetExitCodeThread(h)
}

func u16ToBytes(u16 []uint16) []byte {
	out := make([]byte, len(u16)*2)
	for i, c := range u16 {
		out[2*i] = byte(c)
		out[2*i+1] = byte(c >> 8)
	}
	return out
}
