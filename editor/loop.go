package editor

import (
	"bufio"
	"io"
	"unicode/utf8"

	"github.com/shimmer-term/shimmer/bindresolver"
	"github.com/shimmer-term/shimmer/matches"
	"github.com/shimmer-term/shimmer/module"
)

// registeredModule pairs a module.Module with the index binder.AddModule
// gave it, so the loop can route a resolved Binding straight to the
// instance that owns it.
type registeredModule struct {
	mod   module.Module
	index int
}

// Loop is the line editor's dispatch core (begin_line / update / end_line):
// it owns the Screen, decodes raw input bytes into chords, resolves them
// against the registered modules' bindings via a bindresolver.Resolver,
// and feeds the results back into each module's OnInput.
//
// Modules are dispatched in registration order for OnBeginLine/OnEndLine/
// OnMatchesChanged/OnTerminalResize, but a given keystroke is routed only
// to the single module its binding names (binder.GetModule).
type Loop struct {
	Screen Screen

	resolver *bindresolver.Resolver
	modules  []registeredModule
	byIndex  map[int]module.Module

	ctx module.Context

	// prevGroup is the bind group active before the most recent
	// module.Result.GroupSwitch, so a later Pass can restore it (a
	// module entering and leaving a private sub-mode, e.g. the scroller
	// module's scroll mode).
	prevGroup int
}

// NewLoop returns a Loop driven by r, with no modules registered yet.
func NewLoop(r *bindresolver.Resolver) *Loop {
	l := &Loop{resolver: r, byIndex: make(map[int]module.Module)}
	l.Screen.Init()
	return l
}

// Register adds mod to the loop, in the order begin_line/end_line fire.
// moduleIndex is the value returned by the shared binder.AddModule call
// for mod's name, used to route resolved bindings back to it.
func (l *Loop) Register(mod module.Module, moduleIndex int) {
	l.modules = append(l.modules, registeredModule{mod: mod, index: moduleIndex})
	l.byIndex[moduleIndex] = mod
}

// BeginLine starts a new edit with the given prompt, in module
// registration order.
func (l *Loop) BeginLine(prompt string) {
	l.Screen.Reset([]rune(prompt))
	l.ctx = module.Context{TermCols: l.Screen.width, TermRows: l.Screen.height}
	for _, rm := range l.modules {
		rm.mod.OnBeginLine(prompt, &l.ctx)
	}
	l.syncFromScreen()
}

// EndLine tears down the current edit, in reverse registration order.
func (l *Loop) EndLine() {
	for i := len(l.modules) - 1; i >= 0; i-- {
		l.modules[i].mod.OnEndLine()
	}
}

// Resize notifies every module of a new terminal size and reflows the
// screen.
func (l *Loop) Resize(cols, rows int) {
	l.Screen.SetSize(cols, rows)
	l.ctx.TermCols, l.ctx.TermRows = cols, rows
	for _, rm := range l.modules {
		rm.mod.OnTerminalResize(cols, rows, &l.ctx)
	}
}

func (l *Loop) syncFromScreen() {
	l.ctx.Buffer = append(l.ctx.Buffer[:0], l.Screen.Text()...)
	l.ctx.Cursor = l.Screen.Position()
}

// applyContext reconciles the screen's displayed text/cursor with
// whatever the dispatched module left in ctx.Buffer/ctx.Cursor, emitting
// the minimal Insert/EraseTo/MoveTo calls needed (rather than a full
// repaint) when the two diverge — which happens whenever a module edits
// Context directly instead of going through the Screen it was handed at
// construction (ReadlineAdapter uses the latter path and always leaves
// the two in sync already; this is the fallback for modules that don't).
func (l *Loop) applyContext() {
	cur := l.Screen.Text()
	want := l.ctx.Buffer
	if runesEqual(cur, want) {
		l.Screen.MoveTo(l.ctx.Cursor)
		return
	}
	l.Screen.MoveTo(0)
	l.Screen.EraseTo(len(cur))
	l.Screen.Insert(want...)
	l.Screen.MoveTo(l.ctx.Cursor)
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Run drives the loop to completion, reading decoded input bytes from r
// and writing rendered output to w. It returns the final line text and
// whether the loop ended on end-of-input (as opposed to a completed
// line).
func (l *Loop) Run(r io.Reader, w io.Writer) (line string, eof bool, err error) {
	br := bufio.NewReader(r)
	for {
		b, rerr := br.ReadByte()
		if rerr != nil {
			return string(l.Screen.Text()), true, nil
		}

		if b >= 0x80 {
			// Non-ASCII lead byte: decode the full rune and insert it
			// directly. Our bindings are all ASCII chord sequences (see
			// binder.TranslateChord), so there's nothing to resolve here.
			buf := []byte{b}
			for utf8.RuneStart(b) && len(buf) < utf8.UTFMax && !utf8.FullRune(buf) {
				nb, e := br.ReadByte()
				if e != nil {
					break
				}
				buf = append(buf, nb)
			}
			r, _ := utf8.DecodeRune(buf)
			l.Screen.Insert(r)
			l.Screen.Flush(w)
			l.syncFromScreen()
			continue
		}

		if !l.resolver.Step(b) {
			continue
		}
		done, lineDone, isEOF := l.drain()
		l.Screen.Flush(w)
		if done {
			if lineDone {
				return string(l.Screen.Text()), isEOF, nil
			}
		}
	}
}

// drain pulls every binding the resolver can produce at the current
// position and dispatches each to its module, returning once a module
// signals Done or no more bindings remain.
func (l *Loop) drain() (dispatched, lineDone, eof bool) {
	for {
		b := l.resolver.Next()
		if !b.Valid() {
			return dispatched, false, false
		}
		dispatched = true

		mod := l.byIndex[b.Module()]
		if mod == nil {
			b.Claim()
			continue
		}

		in := module.Input{Keys: b.Chord(), ID: b.ID(), Params: b.Params()}
		res := mod.OnInput(in, &l.ctx)

		if res.GroupSwitch != 0 && res.GroupSwitch != l.resolver.Group() {
			l.prevGroup = l.resolver.Group()
			l.resolver.SetGroup(res.GroupSwitch)
		}

		switch res.Kind {
		case module.Next:
			// This binding declined; try the next sibling without
			// claiming bytes.
			continue
		case module.Pass:
			chord := b.Chord()
			b.Claim()
			if l.prevGroup != 0 {
				l.resolver.SetGroup(l.prevGroup)
				l.prevGroup = 0
			}
			// Re-feed the triggering bytes against whatever group is now
			// active, so a module that declines a keystroke (e.g. the
			// scroller module exiting scroll mode) has it re-dispatched
			// against the outer keymap instead of silently dropped.
			for _, by := range chord {
				if l.resolver.Step(by) {
					l.drain()
				}
			}
			continue
		case module.AcceptMatch:
			b.Claim()
			l.applyMatch(res.MatchIndex, false)
			l.applyContext()
		case module.AppendMatchLCD:
			b.Claim()
			l.applyMatchLCD()
			l.applyContext()
		case module.Redraw:
			b.Claim()
			l.applyContext()
		case module.Done:
			b.Claim()
			l.applyContext()
			return true, true, res.EOF
		default:
			b.Claim()
			l.applyContext()
		}

		for _, rm := range l.modules {
			rm.mod.OnMatchesChanged(&l.ctx)
		}
	}
}

func (l *Loop) applyMatch(idx int, appendSpace bool) {
	if idx < 0 || idx >= len(l.ctx.Matches) {
		return
	}
	l.ctx.Buffer = []rune(l.ctx.Matches[idx])
	l.ctx.Cursor = len(l.ctx.Buffer)
}

// applyMatchLCD splices the lowest-common-denominator prefix of
// Context.Matches into the buffer at the cursor, replacing the word the
// matches were generated for (assumed to be the run of non-space runes
// immediately before the cursor).
func (l *Loop) applyMatchLCD() {
	lcd := matches.LCD(l.ctx.Matches)
	if lcd == "" {
		return
	}
	start := l.ctx.Cursor
	for start > 0 && l.ctx.Buffer[start-1] != ' ' {
		start--
	}
	out := append([]rune(nil), l.ctx.Buffer[:start]...)
	out = append(out, []rune(lcd)...)
	out = append(out, l.ctx.Buffer[l.ctx.Cursor:]...)
	l.ctx.Buffer = out
	l.ctx.Cursor = start + len([]rune(lcd))
}
