// Package rlengine adapts the binder/bindresolver/history machinery into
// a single editor module: the readline-style command set (motion,
// kill-ring, yank, history navigation/search/expansion) bound against
// the shared key trie and dispatched against a *editor.Screen.
package rlengine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shimmer-term/shimmer/binder"
	"github.com/shimmer-term/shimmer/editor"
	"github.com/shimmer-term/shimmer/history"
	"github.com/shimmer-term/shimmer/module"
)

// defaultBindings is the inputrc-like default keymap, in "bind <key>
// <command>" grammar, translated at registration time into binder
// chord strings instead of a packed rune+modifier key.
var defaultBindings = []struct {
	chord string
	cmd   command
}{
	{"^?", cmdBackwardDeleteChar}, // Backspace (DEL)
	{"^h", cmdBackwardDeleteChar},
	{`\e[3~`, cmdDeleteChar}, // Delete
	{`\e[B`, cmdNextHistory}, // Down
	{"^n", cmdNextHistory},
	{`\e[F`, cmdEndOfLine}, // End
	{"^e", cmdEndOfLine},
	{"\\r", cmdFinishOrEnter}, // Enter (CR)
	{"\\n", cmdFinishOrEnter}, // Enter (LF)
	{`\e[H`, cmdBeginningOfLine}, // Home
	{"^a", cmdBeginningOfLine},
	{`\e[D`, cmdBackwardChar}, // Left
	{"^b", cmdBackwardChar},
	{`\e[C`, cmdForwardChar}, // Right
	{"^f", cmdForwardChar},
	{`\e[A`, cmdPreviousHistory}, // Up
	{"^p", cmdPreviousHistory},
	{`\e[1;5D`, cmdBackwardWord}, // Control-Left
	{`\e[1;5C`, cmdForwardWord},  // Control-Right
	{"^c", cmdCancel},
	{"^d", cmdExitOrDeleteChar},
	{"^g", cmdAbort},
	{"^k", cmdKillLine},
	{"^l", cmdClearScreen},
	{"^r", cmdReverseSearchHistory},
	{"^s", cmdForwardSearchHistory},
	{"^t", cmdTransposeChars},
	{"^u", cmdBackwardKillLine},
	{"^w", cmdBackwardKillWord},
	{"^y", cmdYank},
	{`\e^?`, cmdBackwardKillWord}, // Meta-Backspace
	{`\e\r`, cmdEnter},              // Meta-Enter
	{`\eb`, cmdBackwardWord},        // Meta-b
	{`\ed`, cmdKillWord},            // Meta-d
	{`\ef`, cmdForwardWord},         // Meta-f
	{`\et`, cmdTransposeWords},      // Meta-t
	{`\ey`, cmdYankPop},             // Meta-y
	{`\eh`, cmdShowHelp}, // Alt-H
	{"^v", cmdPaste},
	{"^z", cmdUndo},
	{`\M-C-c`, cmdCopyLine},     // Alt-Ctrl-C
	{`\ea`, cmdInsertDotDot},    // Alt-A
	{`\M-C-u`, cmdUpDirectory}, // Alt-Ctrl-U (cmd.exe keymap)
	{`\M-C-e`, cmdExpandEnvVars}, // Alt-Ctrl-E (cmd.exe keymap)
}

// Engine is the readline-adapter editor module. The zero value is not
// usable; call New.
type Engine struct {
	screen *editor.Screen
	store  *history.Store

	nav  *history.Nav
	kill killRing

	commands []commandFunc // indexed by bound id
	names    []command

	copyToClipboard    func(string) error
	pasteFromClipboard func() (string, error)
	expandMode         history.QuoteMode

	undoText []rune
	undoPos  int
	hasUndo  bool
}

// New returns an Engine driving screen and recalling/recording lines in
// store. copyToClipboard and pasteFromClipboard may be nil, in which case
// copy-line and paste-from-clipboard are no-ops (both wired to
// github.com/atotto/clipboard by cmd/shimmer).
func New(screen *editor.Screen, store *history.Store, copyToClipboard func(string) error, pasteFromClipboard func() (string, error)) *Engine {
	return &Engine{
		screen:             screen,
		store:              store,
		copyToClipboard:    copyToClipboard,
		pasteFromClipboard: pasteFromClipboard,
		expandMode:         history.QuoteOn,
	}
}

// Name identifies this module to binder.AddModule.
func (e *Engine) Name() string { return "rlengine" }

// BindInput registers the default keymap under defaultGroup, assigning
// each command a stable small id and recording the command funcs indexed
// by id so OnInput can dispatch in O(1).
func (e *Engine) BindInput(b *binder.Binder, defaultGroup int, moduleIndex int) {
	byCmd := make(map[command]uint8)
	register := func(cmd command, fn commandFunc) uint8 {
		if id, ok := byCmd[cmd]; ok {
			return id
		}
		id := uint8(len(e.commands))
		e.commands = append(e.commands, fn)
		e.names = append(e.names, cmd)
		byCmd[cmd] = id
		return id
	}
	// Plain character insertion is bound via the catchall-only-printable
	// sentinel rather than an explicit chord; OnInput special-cases its
	// id (binder.CatchallOnlyPrintable) rather than looking it up in
	// e.commands, since that id is a fixed sentinel, not one of our
	// small sequential command ids.
	_ = b.Bind(defaultGroup, `\0`, moduleIndex, binder.CatchallOnlyPrintable, false)

	lookup := func(cmd command) commandFunc {
		if fn, ok := baseCommands[cmd]; ok {
			return fn
		}
		if fn, ok := killCommands[cmd]; ok {
			return fn
		}
		if fn, ok := yankCommands[cmd]; ok {
			return fn
		}
		if fn, ok := historyCommands[cmd]; ok {
			return fn
		}
		return nil
	}

	for _, bnd := range defaultBindings {
		fn := lookup(bnd.cmd)
		if fn == nil {
			continue
		}
		id := register(bnd.cmd, fn)
		_ = b.Bind(defaultGroup, bnd.chord, moduleIndex, id, false)
	}
}

// OnBeginLine starts a fresh history navigator for this line (sticky
// position carried over from the Store).
func (e *Engine) OnBeginLine(prompt string, ctx *module.Context) {
	e.nav = history.NewNav(e.store)
}

// OnEndLine commits the navigator's sticky position. History expansion
// itself is left to the caller: cmd/shimmer applies Store.Expand to the
// accepted line before execution, exactly once, after the line is final.
func (e *Engine) OnEndLine() {
	if e.nav != nil {
		e.nav.Commit()
	}
}

// snapshotForUndo records the line's current text and cursor position so
// cmdUndo can restore it. A single saved snapshot (swapped, not pushed,
// by cmdUndo) gives Ctrl-Z a toggle between "now" and "one edit ago"
// rather than a full multi-level undo stack, bracketing one command's
// edit at a time.
func (e *Engine) snapshotForUndo() {
	e.undoText = append(e.undoText[:0], e.screen.Text()...)
	e.undoPos = e.screen.Position()
	e.hasUndo = true
}

// OnInput dispatches one resolved binding. Ordinary printable input
// during an active incremental search is redirected into the search key
// instead of being inserted into the line.
func (e *Engine) OnInput(in module.Input, ctx *module.Context) module.Result {
	if in.ID == binder.CatchallOnlyPrintable {
		if e.nav != nil && e.nav.Searching() {
			return e.searchAppend(in)
		}
		e.snapshotForUndo()
		res := baseCommands[cmdInsertChar](e, in)
		e.kill.resetState(false, false)
		return res
	}

	if int(in.ID) >= len(e.commands) || e.commands[in.ID] == nil {
		return module.Result{Kind: module.Next}
	}
	cmd := e.names[in.ID]

	if e.nav != nil && e.nav.Searching() {
		// Any bound command other than the search commands themselves
		// ends the search first (Readline's "any other key exits
		// incremental search, then runs normally" behaviour); Abort and
		// the search-start commands know how to continue it instead.
		switch cmd {
		case cmdReverseSearchHistory, cmdForwardSearchHistory, cmdAbort:
		default:
			e.nav.Cancel(e.screen)
		}
	}

	if cmd != cmdUndo {
		e.snapshotForUndo()
	}
	res := e.commands[in.ID](e, in)

	_, wasKill := killCommands[cmd]
	_, wasYank := yankCommands[cmd]
	e.kill.resetState(wasKill, wasYank)

	if res.Kind == module.Done && !res.EOF {
		line := string(e.screen.Text())
		if line != "" {
			e.store.Add(line)
		}
	}
	return res
}

// OnMatchesChanged is a no-op: rlengine doesn't generate matches itself
// (that's the matches/ClassicMatchUi module's job).
func (e *Engine) OnMatchesChanged(ctx *module.Context) {}

// OnTerminalResize is a no-op beyond what editor.Loop.Resize already did
// to the shared Screen.
func (e *Engine) OnTerminalResize(cols, rows int, ctx *module.Context) {}

// NeedsMoreInput reports whether the engine is in the middle of a
// multi-byte gesture (an active incremental search) that the editor loop
// should keep routing bytes to before considering the line "idle".
func (e *Engine) NeedsMoreInput() bool {
	return e.nav != nil && e.nav.Searching()
}

// helpText renders the bound command table for show-help (Alt-H),
// one "key -> command" line per binding, sorted for stable output.
func (e *Engine) helpText() string {
	lines := make([]string, 0, len(defaultBindings))
	for _, bnd := range defaultBindings {
		lines = append(lines, fmt.Sprintf("%-12s %s", bnd.chord, bnd.cmd))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}
