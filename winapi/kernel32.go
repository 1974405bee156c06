//go:build windows

// Package winapi provides the low-level Windows process/memory/PE
// primitives the hook setter (package hook) and process injector
// (package procinject) build on: opening and reading another process's
// memory, resolving a module's exported function address, and walking
// a module's import table to find an IAT slot to patch.
//
// golang.org/x/sys/windows covers process/thread enumeration and
// module handles directly; a handful of calls it doesn't wrap
// (ReadProcessMemory, WriteProcessMemory, VirtualAllocEx/ProtectEx,
// CreateRemoteThread) are declared here against kernel32.dll directly,
// the same lazy-DLL pattern x/sys/windows itself is generated from.
package winapi

import (
	"golang.org/x/sys/windows"
)

var (
	modkernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procReadProcessMemory   = modkernel32.NewProc("ReadProcessMemory")
	procWriteProcessMemory  = modkernel32.NewProc("WriteProcessMemory")
	procVirtualAllocEx      = modkernel32.NewProc("VirtualAllocEx")
	procVirtualFreeEx       = modkernel32.NewProc("VirtualFreeEx")
	procVirtualProtectEx    = modkernel32.NewProc("VirtualProtectEx")
	procCreateRemoteThread  = modkernel32.NewProc("CreateRemoteThread")
	procGetExitCodeThread   = modkernel32.NewProc("GetExitCodeThread")
	procGetModuleHandleW    = modkernel32.NewProc("GetModuleHandleW")
)

// Memory protection and allocation constants (winnt.h/memoryapi.h),
// named here rather than imported from x/sys/windows so every constant
// this package uses is visible in one place.
const (
	MemCommit  = 0x1000
	MemReserve = 0x2000
	MemRelease = 0x8000

	PageReadWrite        = 0x04
	PageExecuteReadWrite = 0x40
	PageExecuteRead      = 0x20
)
