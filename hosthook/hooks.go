//go:build windows

package hosthook

import (
	"syscall"
	"unsafe"

	"github.com/mattn/go-isatty"
	"golang.org/x/sys/windows"

	"github.com/shimmer-term/shimmer/prompttag"
)

// readConsoleW replaces ReadConsoleW. It only takes over a read when
// all of these hold: the input handle is a real console, the caller
// wants more than a single character (a single-char read is cmd.exe
// polling for "Y" or "N", left to the auto-answer subsystem below),
// and a prompt has already been captured by writeConsoleW. Everything
// else falls through to the real ReadConsoleW untouched.
//
// BOOL ReadConsoleW(HANDLE, LPVOID, DWORD, LPDWORD, PCONSOLE_READCONSOLE_CONTROL)
func (r *Runtime) readConsoleW(hConsoleInput, lpBuffer, nNumberOfCharsToRead, lpNumberOfCharsRead, pInputControl uintptr) uintptr {
	passthrough := func() uintptr {
		ret, _, _ := syscall.SyscallN(r.readConsole, hConsoleInput, lpBuffer, nNumberOfCharsToRead, lpNumberOfCharsRead, pInputControl)
		return ret
	}
	return WithCrashGuard("ReadConsoleW", func() uintptr {
		if !isatty.IsTerminal(hConsoleInput) {
			return passthrough()
		}
		if nNumberOfCharsToRead == 1 {
			if r.reg.Bool("cmd.autoanswer") {
				if answer, ok := r.tryAutoAnswer(windows.Handle(hConsoleInput)); ok {
					writeUTF16Out(lpBuffer, lpNumberOfCharsRead, []uint16{uint16(answer)})
					return 1
				}
			}
			return passthrough()
		}

		r.mu.Lock()
		prompt, have := r.prompt, r.havePrompt
		r.mu.Unlock()
		if !have {
			return passthrough()
		}

		console, err := r.consoleFor()
		if err != nil {
			return passthrough()
		}
		if err := console.EnterRawMode(); err != nil {
			return passthrough()
		}
		r.loop.BeginLine(prompt)
		line, _, runErr := r.loop.Run(console, console)
		r.loop.EndLine()
		console.ExitRawMode()
		if runErr != nil {
			return passthrough()
		}

		out := append(utf16Encode(line), '\r', '\n')
		if uintptr(len(out)) > nNumberOfCharsToRead {
			out = out[:nNumberOfCharsToRead]
		}
		writeUTF16Out(lpBuffer, lpNumberOfCharsRead, out)
		return 1
	}, passthrough)
}

// writeConsoleW replaces WriteConsoleW. A write carrying our own
// prompt tag is captured (the visible prompt text becomes available to
// the next readConsoleW call) and swallowed rather than forwarded,
// since the tag itself must never reach the screen; every other write
// passes through unchanged.
//
// BOOL WriteConsoleW(HANDLE, LPCVOID, DWORD, LPDWORD, LPVOID)
func (r *Runtime) writeConsoleW(hConsoleOutput, lpBuffer, nNumberOfCharsToWrite, lpNumberOfCharsWritten, lpReserved uintptr) uintptr {
	passthrough := func() uintptr {
		ret, _, _ := syscall.SyscallN(r.writeConsole, hConsoleOutput, lpBuffer, nNumberOfCharsToWrite, lpNumberOfCharsWritten, lpReserved)
		return ret
	}
	return WithCrashGuard("WriteConsoleW", func() uintptr {
		text := utf16Decode(lpBuffer, int(nNumberOfCharsToWrite))
		if !prompttag.HasTag(text) {
			return passthrough()
		}

		r.mu.Lock()
		r.prompt = prompttag.Strip(text)
		r.havePrompt = true
		r.mu.Unlock()

		if lpNumberOfCharsWritten != 0 {
			*(*uint32)(unsafe.Pointer(lpNumberOfCharsWritten)) = uint32(nNumberOfCharsToWrite)
		}
		return 1
	}, passthrough)
}

// setEnvironmentVariableW replaces SetEnvironmentVariableW. A write to
// PROMPT is tagged on the way through, the same as the value the trap
// tags at bootstrap, so a shell that re-exports PROMPT later (a batch
// script, a second copy of the prompt command) keeps it recognisable.
//
// BOOL SetEnvironmentVariableW(LPCWSTR, LPCWSTR)
func (r *Runtime) setEnvironmentVariableW(lpName, lpValue uintptr) uintptr {
	passthrough := func() uintptr {
		ret, _, _ := syscall.SyscallN(r.setEnvironment, lpName, lpValue)
		return ret
	}
	return WithCrashGuard("SetEnvironmentVariableW", func() uintptr {
		name := utf16PtrDecode(lpName)
		if name != "PROMPT" || lpValue == 0 {
			return passthrough()
		}
		tagged := prompttag.Tag(utf16PtrDecode(lpValue))
		u16, err := windows.UTF16PtrFromString(tagged)
		if err != nil {
			return passthrough()
		}
		ret, _, _ := syscall.SyscallN(r.setEnvironment, lpName, uintptr(unsafe.Pointer(u16)))
		return ret
	}, passthrough)
}

// utf16Decode reads n UTF-16 code units starting at ptr and decodes
// them to a string. ptr==0 or n==0 yields "".
func utf16Decode(ptr uintptr, n int) string {
	if ptr == 0 || n <= 0 {
		return ""
	}
	slice := unsafe.Slice((*uint16)(unsafe.Pointer(ptr)), n)
	return windows.UTF16ToString(slice)
}

// utf16PtrDecode reads a NUL-terminated UTF-16 string starting at ptr.
func utf16PtrDecode(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	return windows.UTF16PtrToString((*uint16)(unsafe.Pointer(ptr)))
}

// utf16Encode encodes s as UTF-16 code units, without a terminating NUL
// (the caller supplies the trailing CRLF a console read expects).
func utf16Encode(s string) []uint16 {
	out, err := windows.UTF16FromString(s)
	if err != nil || len(out) == 0 {
		return nil
	}
	return out[:len(out)-1]
}

// writeUTF16Out copies units into the buffer at lpBuffer and records
// the count written at lpCount, mirroring ReadConsoleW's own output
// parameters.
func writeUTF16Out(lpBuffer, lpCount uintptr, units []uint16) {
	if lpBuffer != 0 && len(units) > 0 {
		dst := unsafe.Slice((*uint16)(unsafe.Pointer(lpBuffer)), len(units))
		copy(dst, units)
	}
	if lpCount != 0 {
		*(*uint32)(unsafe.Pointer(lpCount)) = uint32(len(units))
	}
}
