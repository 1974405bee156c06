//go:build windows

// Package hook implements a transactional hook-setter: buffer a
// handful of attach/detach operations against either a module's import
// address table or a function's own body (an inline detour), then
// apply them all atomically with Commit, or discard them by never
// calling it. A Setter that still owns applied hooks when Close is
// called rolls them all back.
package hook

import (
	"fmt"

	"github.com/golang/glog"
)

// Type selects which of the two hook mechanisms an operation uses.
type Type int

const (
	// IAT overwrites a module's own import-address-table slot for the
	// named function, so every call the host module makes through its
	// own import goes to the replacement.
	IAT Type = iota
	// Detour patches a short jump at the start of the function's own
	// body, so every caller — regardless of how they reached the
	// function — is redirected.
	Detour
)

// MaxOps bounds one transaction to at most this many buffered
// operations.
const MaxOps = 5

type opKind int

const (
	opAttach opKind = iota
	opDetach
)

type pendingOp struct {
	kind        opKind
	typ         Type
	library     string
	name        string
	replacement uintptr
	original    *uintptr
}

type appliedHook struct {
	typ    Type
	iat    *iatPatch
	detour *detourPatch
}

// Setter is not safe for concurrent use: hook installation runs on a
// single thread, never reentrantly.
type Setter struct {
	ops     []pendingOp
	applied []appliedHook
}

// New returns an empty Setter with no operations buffered yet.
func New() *Setter {
	return &Setter{}
}

// Attach buffers an attach operation: hook library!name (an exported
// function of the DLL named library) so calls reach replacement,
// optionally storing the original entry point/trampoline into
// *original once Commit succeeds. For Type==IAT, library!name is
// resolved against the current process's own executable import table
// (the host interception layer's own IAT); for
// Type==Detour, library!name is resolved against library's own loaded
// export table and patched in place.
func (s *Setter) Attach(typ Type, library, name string, replacement uintptr, original *uintptr) error {
	if len(s.ops) >= MaxOps {
		return fmt.Errorf("hook: too many operations in transaction (max %d)", MaxOps)
	}
	s.ops = append(s.ops, pendingOp{
		kind: opAttach, typ: typ, library: library, name: name,
		replacement: replacement, original: original,
	})
	return nil
}

// Detach buffers removing a previously committed hook (restoring
// original at target).
func (s *Setter) Detach(typ Type, library, name string) error {
	if len(s.ops) >= MaxOps {
		return fmt.Errorf("hook: too many operations in transaction (max %d)", MaxOps)
	}
	s.ops = append(s.ops, pendingOp{kind: opDetach, typ: typ, library: library, name: name})
	return nil
}

// Commit applies every buffered operation. If any operation fails,
// every operation already applied during this Commit call is rolled
// back and the buffer is left empty, so the process ends up exactly as
// it was before Commit was called.
func (s *Setter) Commit() error {
	ops := s.ops
	s.ops = nil

	start := len(s.applied)
	for _, op := range ops {
		applied, err := s.applyOne(op)
		if err != nil {
			glog.Warningf("hook: commit failed on %s!%s: %v", op.library, op.name, err)
			s.rollbackFrom(start)
			return err
		}
		if applied != nil {
			s.applied = append(s.applied, *applied)
		}
	}
	return nil
}

func (s *Setter) applyOne(op pendingOp) (*appliedHook, error) {
	switch op.kind {
	case opAttach:
		switch op.typ {
		case IAT:
			p, err := attachIAT(op.library, op.name, op.replacement)
			if err != nil {
				return nil, err
			}
			if op.original != nil {
				*op.original = p.oldValue
			}
			return &appliedHook{typ: IAT, iat: p}, nil
		case Detour:
			p, err := attachDetour(op.library, op.name, op.replacement)
			if err != nil {
				return nil, err
			}
			if op.original != nil {
				*op.original = p.trampoline
			}
			return &appliedHook{typ: Detour, detour: p}, nil
		}
	case opDetach:
		// A bare detach with nothing previously applied by this Setter
		// is a configuration error: logged, doesn't abort the commit.
		for i, a := range s.applied {
			if a.typ == op.typ && matchesApplied(a, op.library, op.name) {
				if err := undoApplied(a); err != nil {
					return nil, err
				}
				s.applied = append(s.applied[:i], s.applied[i+1:]...)
				return nil, nil
			}
		}
		glog.Warningf("hook: detach %s!%s: no matching applied hook", op.library, op.name)
	}
	return nil, nil
}

func matchesApplied(a appliedHook, library, name string) bool {
	switch a.typ {
	case IAT:
		return a.iat != nil && a.iat.library == library && a.iat.name == name
	case Detour:
		return a.detour != nil && a.detour.library == library && a.detour.name == name
	}
	return false
}

func undoApplied(a appliedHook) error {
	switch a.typ {
	case IAT:
		return a.iat.restore()
	case Detour:
		return a.detour.restore()
	}
	return nil
}

func (s *Setter) rollbackFrom(start int) {
	for i := len(s.applied) - 1; i >= start; i-- {
		if err := undoApplied(s.applied[i]); err != nil {
			glog.Warningf("hook: rollback failed: %v", err)
		}
	}
	s.applied = s.applied[:start]
}

// Close undoes every hook this Setter still owns: both operations
// buffered but never committed, and operations committed but never
// separately Detach-ed. Go has no scope-exit destructor, so a caller
// that wants hooks removed on every exit path must call Close
// explicitly (typically via defer).
func (s *Setter) Close() error {
	s.ops = nil
	s.rollbackFrom(0)
	return nil
}
