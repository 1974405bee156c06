// Package scroller implements the scroll-mode editor module: entering it
// (Page Up/Page Down from the ordinary line-editing keymap) temporarily
// rebinds the keymap to a private group where the arrow keys and Page
// Up/Page Down scroll a saved output buffer instead of moving the cursor;
// any other key exits scroll mode and is re-dispatched against the
// keymap that was active before entry.
package scroller

import (
	"github.com/shimmer-term/shimmer/binder"
	"github.com/shimmer-term/shimmer/module"
)

// Buffer is the scrollable surface a Module drives. A terminal-facing
// implementation (package termio) backs it with the console's scrollback;
// tests can fake it with a simple counter.
type Buffer interface {
	LineUp()
	LineDown()
	PageUp()
	PageDown()
}

const (
	bindPageUp uint8 = iota
	bindPageDown
	bindLineUp
	bindLineDown
	bindEnterPageUp
	bindEnterPageDown
)

// Module is the scroller editor module. The zero value is not usable;
// call New.
type Module struct {
	module.Base

	buf   Buffer
	group int // this module's private scroll-mode group
}

// New returns a Module that scrolls buf while active.
func New(buf Buffer) *Module {
	return &Module{buf: buf}
}

// Name identifies this module to binder.AddModule.
func (m *Module) Name() string { return "scroller" }

// BindInput registers the scroll-mode entry points (Page Up/Page Down)
// against the ordinary keymap, and builds a private group holding the
// scroll-mode bindings themselves: the navigation keys that keep
// scrolling, plus a true wildcard (any byte, not the printable-only
// catchall rlengine's plain-character binding uses) that exits scroll
// mode and hands the triggering key back to whatever keymap was active
// before entry.
func (m *Module) BindInput(b *binder.Binder, defaultGroup int, moduleIndex int) {
	m.group = b.CreateGroup("scroller")

	_ = b.Bind(defaultGroup, `\e[5~`, moduleIndex, bindEnterPageUp, false)
	_ = b.Bind(defaultGroup, `\e[6~`, moduleIndex, bindEnterPageDown, false)

	_ = b.Bind(m.group, `\e[5~`, moduleIndex, bindPageUp, false)
	_ = b.Bind(m.group, `\e[6~`, moduleIndex, bindPageDown, false)
	_ = b.Bind(m.group, `\e[A`, moduleIndex, bindLineUp, false)
	_ = b.Bind(m.group, "^p", moduleIndex, bindLineUp, false)
	_ = b.Bind(m.group, `\e[B`, moduleIndex, bindLineDown, false)
	_ = b.Bind(m.group, "^n", moduleIndex, bindLineDown, false)
	// Wildcard exit: any byte that isn't one of the navigation chords
	// above lands here and exits scroll mode. Unlike rlengine's plain-
	// character insertion binding, this is a plain sequential id rather
	// than binder.CatchallOnlyPrintable, so it isn't restricted to
	// printable bytes — Enter, Ctrl-C, function keys and the like all
	// exit scroll mode too, matching "any other key" in the original.
	_ = b.Bind(m.group, `\0`, moduleIndex, exitID, false)
}

// exitID is the scroll-mode wildcard exit binding's id. It's kept
// distinct from the navigation ids above (0-3) and from
// bindEnterPageUp/bindEnterPageDown (4-5), which only ever fire against
// defaultGroup and never appear inside m.group itself.
const exitID uint8 = 255

// OnInput handles one resolved binding, either scrolling the buffer and
// staying in scroll mode, entering scroll mode for the first time, or
// exiting it and asking the loop to re-dispatch the triggering key
// against the previous keymap.
func (m *Module) OnInput(in module.Input, ctx *module.Context) module.Result {
	switch in.ID {
	case bindEnterPageUp:
		m.buf.PageUp()
		return module.Result{Kind: module.Redraw, GroupSwitch: m.group}
	case bindEnterPageDown:
		m.buf.PageDown()
		return module.Result{Kind: module.Redraw, GroupSwitch: m.group}
	case bindPageUp:
		m.buf.PageUp()
		return module.Result{Kind: module.Redraw}
	case bindPageDown:
		m.buf.PageDown()
		return module.Result{Kind: module.Redraw}
	case bindLineUp:
		m.buf.LineUp()
		return module.Result{Kind: module.Redraw}
	case bindLineDown:
		m.buf.LineDown()
		return module.Result{Kind: module.Redraw}
	case exitID:
		return module.Result{Kind: module.Pass}
	default:
		return module.Result{Kind: module.Next}
	}
}
