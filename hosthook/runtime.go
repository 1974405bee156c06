//go:build windows

// Package hosthook installs the host-process console hooks the
// editor runtime needs once injected into a shell: a one-shot trap on
// GetEnvironmentVariableW that bootstraps the steady-state hooks
// (ReadConsoleW, WriteConsoleW, SetEnvironmentVariableW), the
// auto-answer subsystem for cmd.exe's "Terminate batch job (Y/N)?"
// prompt, and a recover()-based crash guard shared by every
// replacement function.
package hosthook

import (
	"fmt"
	"net"
	"sync"
	"syscall"

	"github.com/golang/glog"

	"github.com/shimmer-term/shimmer/editor"
	"github.com/shimmer-term/shimmer/hook"
	"github.com/shimmer-term/shimmer/settings"
	"github.com/shimmer-term/shimmer/termio"
)

// Runtime owns every hook this package installs and the state the
// replacement functions share: the captured prompt, the line editor
// they hand control to, and the auto-answer configuration.
type Runtime struct {
	mu sync.Mutex

	setter  *hook.Setter
	loop    *editor.Loop
	reg     *settings.Registry
	console *termio.Console

	trapOrig       uintptr
	readConsole    uintptr
	writeConsole   uintptr
	setEnvironment uintptr

	prompt     string
	havePrompt bool

	trapCB         uintptr
	readConsoleCB  uintptr
	writeConsoleCB uintptr
	setEnvironCB   uintptr

	autoAnswerVisits int

	steadyInstalled bool
	detached        bool

	pipeListener net.Listener
}

// New returns a Runtime that will route captured input through loop
// and read settings (notably cmd.autoanswer) from reg.
func New(loop *editor.Loop, reg *settings.Registry) *Runtime {
	return &Runtime{setter: hook.New(), loop: loop, reg: reg}
}

// InstallTrap installs the one-shot GetEnvironmentVariableW hook that
// bootstraps everything else: it is always set before the steady-state
// hooks, since there is nothing yet to capture a prompt or route
// keystrokes until it fires once. The callback pointer is built here
// via syscall.NewCallback, which is the only supported way to hand a
// Go function's address to native code as a replacement function
// pointer.
func (r *Runtime) InstallTrap() error {
	r.trapCB = syscall.NewCallback(r.trapGetEnvironmentVariableW)

	if err := r.setter.Attach(hook.Detour, "kernel32.dll", "GetEnvironmentVariableW", r.trapCB, &r.trapOrig); err != nil {
		return fmt.Errorf("hosthook: buffering trap attach: %w", err)
	}
	if err := r.setter.Commit(); err != nil {
		return fmt.Errorf("hosthook: installing trap: %w", err)
	}
	return nil
}

// installSteadyState is called once, from inside the trap, to install
// the three hooks that do the real work. It uses a fresh hook.Setter
// transaction distinct from the trap's, since the trap's own
// transaction is about to be torn down by uninstallSelf.
func (r *Runtime) installSteadyState() error {
	r.readConsoleCB = syscall.NewCallback(r.readConsoleW)
	r.writeConsoleCB = syscall.NewCallback(r.writeConsoleW)
	r.setEnvironCB = syscall.NewCallback(r.setEnvironmentVariableW)

	s := hook.New()
	if err := s.Attach(hook.Detour, "kernel32.dll", "ReadConsoleW", r.readConsoleCB, &r.readConsole); err != nil {
		return err
	}
	if err := s.Attach(hook.IAT, "kernel32.dll", "WriteConsoleW", r.writeConsoleCB, &r.writeConsole); err != nil {
		return err
	}
	if err := s.Attach(hook.IAT, "kernel32.dll", "SetEnvironmentVariableW", r.setEnvironCB, &r.setEnvironment); err != nil {
		return err
	}
	if err := s.Commit(); err != nil {
		return err
	}
	r.setter = s
	return nil
}

// uninstallSelf removes the trap after it's fired once: a one-shot
// hook that is never removed would keep intercepting every later
// GetEnvironmentVariableW call for no reason.
func (r *Runtime) uninstallSelf(trapSetter *hook.Setter) {
	if err := trapSetter.Close(); err != nil {
		glog.Warningf("hosthook: uninstalling trap: %v", err)
	}
}

// consoleFor returns the Runtime's own console adapter, opening it on
// first use. CONIN$/CONOUT$ always name the calling process's console
// regardless of which handle a particular hook call was passed, so one
// shared console serves every readConsoleW invocation.
func (r *Runtime) consoleFor() (*termio.Console, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.console != nil {
		return r.console, nil
	}
	c, err := termio.NewConsole()
	if err != nil {
		return nil, fmt.Errorf("hosthook: opening console: %w", err)
	}
	r.console = c
	return c, nil
}

// Detach reverses every hook this Runtime installed and closes the
// console adapter it opened: a detached session must leave the host
// shell's console state exactly as it found it.
func (r *Runtime) Detach() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.detached {
		return nil
	}
	r.detached = true
	if r.pipeListener != nil {
		r.pipeListener.Close()
	}
	if r.console != nil {
		r.console.Close()
	}
	if err := r.setter.Close(); err != nil {
		return fmt.Errorf("hosthook: detach: %w", err)
	}
	return nil
}
