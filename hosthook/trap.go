//go:build windows

package hosthook

import (
	"syscall"

	"golang.org/x/sys/windows"

	"github.com/golang/glog"

	"github.com/shimmer-term/shimmer/prompttag"
)

// trapGetEnvironmentVariableW replaces GetEnvironmentVariableW for
// exactly as long as it takes to fire once. On its first call it tags
// PROMPT, installs the steady-state hooks, and removes itself; every
// call (including the one that triggers the bootstrap) is then passed
// through to the real function so the caller's actual request is still
// satisfied.
//
// GetEnvironmentVariableW's native signature is
// (LPCWSTR lpName, LPWSTR lpBuffer, DWORD nSize) DWORD — three
// uintptr-sized parameters and a uintptr-sized return, which is exactly
// what syscall.NewCallback requires.
func (r *Runtime) trapGetEnvironmentVariableW(name, buf, size uintptr) uintptr {
	passthrough := func() uintptr {
		ret, _, _ := syscall.SyscallN(r.trapOrig, name, buf, size)
		return ret
	}
	return WithCrashGuard("GetEnvironmentVariableW trap", func() uintptr {
		r.bootstrapOnce()
		return passthrough()
	}, passthrough)
}

// bootstrapOnce runs the trap's one-shot payload at most once,
// regardless of how many times the trap fires before installSteadyState
// swaps r.setter out from under it.
func (r *Runtime) bootstrapOnce() {
	r.mu.Lock()
	if r.steadyInstalled {
		r.mu.Unlock()
		return
	}
	trapSetter := r.setter
	r.mu.Unlock()

	if value, ok := getEnvironmentVariable("PROMPT"); ok {
		if err := setEnvironmentVariable("PROMPT", prompttag.Tag(value)); err != nil {
			glog.Warningf("hosthook: tagging PROMPT: %v", err)
		}
	}

	if err := r.installSteadyState(); err != nil {
		glog.Errorf("hosthook: installing steady-state hooks: %v", err)
		return
	}

	r.mu.Lock()
	r.steadyInstalled = true
	r.mu.Unlock()

	r.uninstallSelf(trapSetter)
}

func getEnvironmentVariable(name string) (string, bool) {
	u16name, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return "", false
	}
	buf := make([]uint16, 4096)
	n, err := windows.GetEnvironmentVariable(u16name, &buf[0], uint32(len(buf)))
	if err != nil || n == 0 || int(n) > len(buf) {
		return "", false
	}
	return windows.UTF16ToString(buf[:n]), true
}

func setEnvironmentVariable(name, value string) error {
	u16name, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return err
	}
	u16value, err := windows.UTF16PtrFromString(value)
	if err != nil {
		return err
	}
	return windows.SetEnvironmentVariable(u16name, u16value)
}
