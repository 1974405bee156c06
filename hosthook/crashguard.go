//go:build windows

package hosthook

import (
	"github.com/golang/glog"
)

// WithCrashGuard runs fn and returns its result, unless fn panics, in
// which case it logs the panic and runs fallback instead. Every
// replacement function installed by this package is wrapped in this:
// a panic unwinding into the host process's own call stack (rather
// than back into a Go runtime frame) would take the host down with it,
// so none may ever escape across the native/Go boundary.
func WithCrashGuard(name string, fn func() uintptr, fallback func() uintptr) (ret uintptr) {
	defer func() {
		if p := recover(); p != nil {
			glog.Errorf("hosthook: %s panicked: %v", name, p)
			ret = fallback()
		}
	}()
	return fn()
}
