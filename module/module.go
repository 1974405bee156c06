// Package module defines the editor_module contract: the capability set
// that the line editor loop (package editor) dispatches into. It maps to
// a small closed variant set — ReadlineAdapter, ClassicMatchUi, Scroller,
// and a Host module the launcher can inject — but is expressed as an
// interface so editor can enumerate instances in registration order
// without needing to know their concrete types.
package module

import (
	"github.com/shimmer-term/shimmer/binder"
	"github.com/shimmer-term/shimmer/bindresolver"
)

// Context is the shared, per-edit state a module's callbacks can read and
// mutate: the line buffer and the active match list. It's intentionally a concrete struct rather than an interface —
// every module needs the same handful of fields, and the dispatch result
// sink (Next/Pass/Redraw/AcceptMatch/AppendMatchLCD/Done) operates
// directly on it.
type Context struct {
	// Buffer is the current line-buffer text as runes.
	Buffer []rune
	// Cursor is the cursor's rune offset into Buffer.
	Cursor int
	// Matches is the most recently generated completion candidate list.
	Matches []string
	// TermCols/TermRows are the terminal's current dimensions.
	TermCols, TermRows int
}

// ResultKind identifies what an on_input callback asked the editor loop
// to do next.
type ResultKind int

const (
	// Next asks the loop to try the next sibling binding at this node
	// (this module declined to handle the input).
	Next ResultKind = iota
	// Pass asks the loop to restore the previous bind group and
	// re-dispatch the consumed bytes against the outer group.
	Pass
	// Redraw asks the loop to signal redisplay without changing state
	// further.
	Redraw
	// AcceptMatch asks the loop to splice MatchIndex from Context.Matches
	// into the line buffer at the cursor.
	AcceptMatch
	// AppendMatchLCD asks the loop to append the lowest-common-denominator
	// prefix of Context.Matches to the line buffer.
	AppendMatchLCD
	// Done terminates the editor loop; EOF reports whether it ended
	// because of end-of-input (true) or a completed line (false).
	Done
)

// Result is what a module's OnInput returns to the editor loop.
type Result struct {
	Kind       ResultKind
	MatchIndex int
	EOF        bool
	// GroupSwitch, if nonzero, asks the loop to make this binder group
	// (typically one the module created itself via its own CreateGroup
	// call in BindInput) the active one for subsequent dispatch, saving
	// the previously active group so a later Pass restores it. Used by
	// modules that rebind the keymap for a private sub-mode, e.g. the
	// scroller module's scroll mode.
	GroupSwitch int
}

// Input is one resolved binding handed to a module's OnInput.
type Input struct {
	Keys   []byte
	ID     uint8
	Params bindresolver.Params
}

// Module is the capability set every editor module implements. All
// methods are mandatory; a module with nothing to do in a given phase
// implements it as a no-op.
type Module interface {
	// Name identifies the module for binder.AddModule/logging.
	Name() string

	// BindInput registers this module's key bindings against b, using
	// the default group initially; the module may create its own groups
	// (b.CreateGroup) and bind within them for private sub-modes.
	BindInput(b *binder.Binder, defaultGroup int, moduleIndex int)

	// OnBeginLine is called once when a new line edit starts.
	OnBeginLine(prompt string, ctx *Context)

	// OnEndLine is called once when the line edit ends, in reverse
	// registration order across all modules.
	OnEndLine()

	// OnInput handles one resolved binding.
	OnInput(in Input, ctx *Context) Result

	// OnMatchesChanged is called on every module, in registration order,
	// after an OnInput call that changed Context.Matches.
	OnMatchesChanged(ctx *Context)

	// OnTerminalResize notifies the module of a new terminal size.
	OnTerminalResize(cols, rows int, ctx *Context)
}

// Base provides no-op implementations of every Module method, so a
// concrete module can embed it and only override what it needs, rather
// than forcing every module to restate boilerplate.
type Base struct{}

func (Base) OnBeginLine(string, *Context)             {}
func (Base) OnEndLine()                               {}
func (Base) OnMatchesChanged(*Context)                {}
func (Base) OnTerminalResize(int, int, *Context)      {}
func (Base) OnInput(Input, *Context) Result           { return Result{Kind: Next} }
