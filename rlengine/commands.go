package rlengine

import (
	"os"
	"strings"
	"unicode"

	"github.com/shimmer-term/shimmer/module"
)

// command names the readline-style editing commands, matching GNU
// Readline's own naming so users porting an inputrc feel at home.
type command string

const (
	cmdAbort                 command = "abort"
	cmdBackwardChar          command = "backward-char"
	cmdBackwardDeleteChar    command = "backward-delete-char"
	cmdBackwardKillLine      command = "backward-kill-line"
	cmdBackwardKillWord      command = "backward-kill-word"
	cmdBackwardWord          command = "backward-word"
	cmdBeginningOfLine       command = "beginning-of-line"
	cmdCancel                command = "cancel"
	cmdClearScreen           command = "clear-screen"
	cmdCopyLine              command = "copy-line"
	cmdDeleteChar            command = "delete-char"
	cmdDeleteHorizontalSpace command = "delete-horizontal-space"
	cmdEndOfLine             command = "end-of-line"
	cmdEnter                 command = "enter"
	cmdExitOrDeleteChar      command = "exit-or-delete-char"
	cmdExpandEnvVars         command = "expand-env-vars"
	cmdFinishOrEnter         command = "finish-or-enter"
	cmdForwardChar           command = "forward-char"
	cmdForwardSearchHistory  command = "forward-search-history"
	cmdForwardWord           command = "forward-word"
	cmdInsertChar            command = "insert-char"
	cmdInsertDotDot          command = "insert-dot-dot"
	cmdKillLine              command = "kill-line"
	cmdKillWord              command = "kill-word"
	cmdNextHistory           command = "next-history"
	cmdPaste                 command = "paste-from-clipboard"
	cmdPreviousHistory       command = "previous-history"
	cmdReverseSearchHistory  command = "reverse-search-history"
	cmdShowHelp              command = "show-help"
	cmdTransposeChars        command = "transpose-chars"
	cmdTransposeWords        command = "transpose-words"
	cmdUndo                  command = "undo"
	cmdUpDirectory           command = "up-directory"
	cmdYank                  command = "yank"
	cmdYankPop               command = "yank-pop"
)

// commandFunc implements one command against the engine's current
// screen/history/kill-ring state, returning the dispatch result to hand
// back to the editor loop.
type commandFunc func(e *Engine, in module.Input) module.Result

func redraw() module.Result { return module.Result{Kind: module.Redraw} }

// baseCommands are the cursor-motion and text-editing commands that
// don't touch history or the kill ring.
var baseCommands = map[command]commandFunc{
	cmdBackwardChar: func(e *Engine, in module.Input) module.Result {
		e.screen.MoveTo(e.screen.PrevGraphemeStart())
		return redraw()
	},
	cmdBackwardDeleteChar: func(e *Engine, in module.Input) module.Result {
		e.screen.EraseTo(e.screen.PrevGraphemeStart())
		return redraw()
	},
	cmdBackwardWord: func(e *Engine, in module.Input) module.Result {
		e.screen.MoveTo(e.screen.PrevWordStart(e.screen.Position()))
		return redraw()
	},
	cmdBeginningOfLine: func(e *Engine, in module.Input) module.Result {
		e.screen.MoveTo(0)
		return redraw()
	},
	cmdCancel: func(e *Engine, in module.Input) module.Result {
		if len(e.screen.Text()) == 0 {
			return module.Result{Kind: module.Done, EOF: true}
		}
		e.screen.Cancel()
		// The aborted line is discarded; the caller starts a fresh
		// BeginLine for the next prompt rather than continuing this one.
		return module.Result{Kind: module.Done, EOF: false}
	},
	cmdClearScreen: func(e *Engine, in module.Input) module.Result {
		e.screen.Refresh()
		return redraw()
	},
	cmdDeleteChar: func(e *Engine, in module.Input) module.Result {
		e.screen.EraseTo(e.screen.NextGraphemeEnd())
		return redraw()
	},
	cmdDeleteHorizontalSpace: func(e *Engine, in module.Input) module.Result {
		text := e.screen.Text()
		prevWordEnd := e.screen.Position()
		for prevWordEnd > 0 && unicode.IsSpace(text[prevWordEnd-1]) {
			prevWordEnd--
		}
		nextWordStart := prevWordEnd
		for nextWordStart < len(text) && unicode.IsSpace(text[nextWordStart]) {
			nextWordStart++
		}
		if nextWordStart >= e.screen.Position() && prevWordEnd < nextWordStart {
			e.screen.MoveTo(prevWordEnd)
			e.screen.EraseTo(nextWordStart)
		}
		return redraw()
	},
	cmdEndOfLine: func(e *Engine, in module.Input) module.Result {
		e.screen.MoveTo(e.screen.End())
		return redraw()
	},
	cmdEnter: func(e *Engine, in module.Input) module.Result {
		e.screen.Insert('\n')
		return redraw()
	},
	cmdExitOrDeleteChar: func(e *Engine, in module.Input) module.Result {
		if len(e.screen.Text()) == 0 {
			return module.Result{Kind: module.Done, EOF: true}
		}
		e.screen.EraseTo(e.screen.NextGraphemeEnd())
		return redraw()
	},
	cmdFinishOrEnter: func(e *Engine, in module.Input) module.Result {
		return module.Result{Kind: module.Done, EOF: false}
	},
	cmdForwardChar: func(e *Engine, in module.Input) module.Result {
		e.screen.MoveTo(e.screen.NextGraphemeEnd())
		return redraw()
	},
	cmdForwardWord: func(e *Engine, in module.Input) module.Result {
		e.screen.MoveTo(e.screen.NextWordEnd(e.screen.Position()))
		return redraw()
	},
	cmdInsertChar: func(e *Engine, in module.Input) module.Result {
		for _, b := range in.Keys {
			e.screen.Insert(rune(b))
		}
		return redraw()
	},
	cmdTransposeChars: func(e *Engine, in module.Input) module.Result {
		if text := e.screen.EraseTo(e.screen.PrevGraphemeStart()); len(text) > 0 {
			e.screen.MoveTo(e.screen.NextGraphemeEnd())
			e.screen.Insert([]rune(text)...)
		}
		return redraw()
	},
	cmdTransposeWords: func(e *Engine, in module.Input) module.Result {
		nextWordEnd := e.screen.NextWordEnd(e.screen.Position())
		nextWordStart := e.screen.PrevWordStart(nextWordEnd)
		prevWordStart := e.screen.PrevWordStart(nextWordStart)
		prevWordEnd := e.screen.NextWordEnd(prevWordStart)
		if prevWordStart != nextWordStart {
			e.screen.MoveTo(nextWordStart)
			nextWord := e.screen.EraseTo(nextWordEnd)
			e.screen.MoveTo(prevWordStart)
			prevWord := e.screen.EraseTo(prevWordEnd)
			e.screen.Insert([]rune(nextWord)...)
			e.screen.MoveTo(e.screen.Position() + nextWordStart - prevWordEnd)
			e.screen.Insert([]rune(prevWord)...)
		}
		return redraw()
	},
	cmdAbort: func(e *Engine, in module.Input) module.Result {
		if e.nav.Searching() {
			e.nav.Abort(e.screen)
			return redraw()
		}
		return redraw()
	},
	// cmdShowHelp lists every bound command name (Alt-H).
	cmdShowHelp: func(e *Engine, in module.Input) module.Result {
		e.screen.SetSuffix([]rune("\n" + e.helpText()))
		return redraw()
	},
	// cmdPaste inserts the system clipboard's text content at the cursor
	// (Ctrl-V), independent of the kill ring.
	cmdPaste: func(e *Engine, in module.Input) module.Result {
		if e.pasteFromClipboard == nil {
			return redraw()
		}
		text, err := e.pasteFromClipboard()
		if err != nil {
			return redraw()
		}
		e.screen.Insert([]rune(text)...)
		return redraw()
	},
	// cmdInsertDotDot inserts a literal "..\" (Alt-A), the built-in
	// shortcut for stepping into a parent-relative path argument.
	cmdInsertDotDot: func(e *Engine, in module.Input) module.Result {
		e.screen.Insert([]rune(`..\`)...)
		return redraw()
	},
	// cmdUpDirectory replaces the whole line with "cd .." and submits it
	// immediately (Alt-Ctrl-U, cmd.exe keymap only).
	cmdUpDirectory: func(e *Engine, in module.Input) module.Result {
		e.screen.MoveTo(0)
		e.screen.EraseTo(e.screen.End())
		e.screen.Insert([]rune("cd ..")...)
		return module.Result{Kind: module.Done, EOF: false}
	},
	// cmdExpandEnvVars expands the environment variable reference in the
	// word under the cursor in place (Alt-Ctrl-E, cmd.exe keymap only).
	// The word's delimiter is a double quote if an odd number of quotes
	// precede the cursor, a space otherwise, so expansion stays inside a
	// quoted argument instead of spilling past its closing quote.
	cmdExpandEnvVars: func(e *Engine, in module.Input) module.Result {
		text := e.screen.Text()
		left, right := wordBoundsQuoteAware(text, e.screen.Position())
		word := string(text[left:right])
		expanded := expandPercentVars(word)
		if expanded == word {
			return redraw()
		}
		e.screen.MoveTo(right)
		e.screen.EraseTo(left)
		e.screen.Insert([]rune(expanded)...)
		return redraw()
	},
	cmdUndo: func(e *Engine, in module.Input) module.Result {
		if !e.hasUndo {
			return redraw()
		}
		cur := append([]rune(nil), e.screen.Text()...)
		curPos := e.screen.Position()
		e.screen.MoveTo(0)
		e.screen.EraseTo(e.screen.End())
		e.screen.Insert(e.undoText...)
		e.screen.MoveTo(e.undoPos)
		e.undoText, e.undoPos = cur, curPos
		return redraw()
	},
}

// wordBoundsQuoteAware returns the start/end of the word containing
// cursor, treating the delimiter as a double quote instead of a space
// whenever an odd number of quotes precede the cursor (the cursor sits
// inside a quoted argument).
func wordBoundsQuoteAware(text []rune, cursor int) (left, right int) {
	quoted := false
	for i := 0; i < cursor && i < len(text); i++ {
		if text[i] == '"' {
			quoted = !quoted
		}
	}
	delim := ' '
	if quoted {
		delim = '"'
	}
	left = 0
	for i := cursor - 1; i >= 0; i-- {
		if text[i] == delim {
			left = i + 1
			break
		}
	}
	right = len(text)
	for i := cursor; i < len(text); i++ {
		if text[i] == delim {
			right = i
			break
		}
	}
	return left, right
}

// expandPercentVars expands %NAME% references the way cmd.exe's own
// environment-variable expansion does: an unterminated or undefined
// reference is left exactly as written rather than replaced with an
// error or an empty string.
func expandPercentVars(s string) string {
	var out strings.Builder
	i := 0
	for i < len(s) {
		if s[i] == '%' {
			if j := strings.IndexByte(s[i+1:], '%'); j >= 0 {
				name := s[i+1 : i+1+j]
				if val, ok := os.LookupEnv(name); ok {
					out.WriteString(val)
					i += j + 2
					continue
				}
			}
		}
		out.WriteByte(s[i])
		i++
	}
	return out.String()
}

// killCommands delete text into the kill ring.
var killCommands = map[command]commandFunc{
	cmdBackwardKillLine: func(e *Engine, in module.Input) module.Result {
		if text := e.screen.EraseTo(0); len(text) > 0 {
			e.kill.Prepend(text)
		}
		return redraw()
	},
	cmdBackwardKillWord: func(e *Engine, in module.Input) module.Result {
		if text := e.screen.EraseTo(e.screen.PrevWordStart(e.screen.Position())); len(text) > 0 {
			e.kill.Prepend(text)
		}
		return redraw()
	},
	cmdKillLine: func(e *Engine, in module.Input) module.Result {
		if text := e.screen.EraseTo(e.screen.End()); len(text) > 0 {
			e.kill.Append(text)
		}
		return redraw()
	},
	cmdKillWord: func(e *Engine, in module.Input) module.Result {
		if text := e.screen.EraseTo(e.screen.NextWordEnd(e.screen.Position())); len(text) > 0 {
			e.kill.Append(text)
		}
		return redraw()
	},
}

// yankCommands retrieve text from the kill ring.
var yankCommands = map[command]commandFunc{
	cmdYank: func(e *Engine, in module.Input) module.Result {
		e.screen.Insert(e.kill.Yank()...)
		return redraw()
	},
	cmdYankPop: func(e *Engine, in module.Input) module.Result {
		if !e.kill.yanking {
			return redraw()
		}
		yanked := e.kill.Yank()
		e.screen.EraseTo(e.screen.Position() - len(yanked))
		e.kill.Rotate()
		e.screen.Insert(e.kill.Yank()...)
		return redraw()
	},
	// cmdCopyLine copies the whole line to the system clipboard instead
	// of the kill ring; a no-op kill-ring-wise so it doesn't disturb
	// yank-pop state.
	cmdCopyLine: func(e *Engine, in module.Input) module.Result {
		if e.copyToClipboard != nil {
			_ = e.copyToClipboard(string(e.screen.Text()))
		}
		return redraw()
	},
}

// historyCommands navigate and search the history store. They're
// dispatched through e.nav, which is rebuilt at the start of every line
// (see Engine.OnBeginLine) so sticky-search state starts from wherever
// the previous line's navigation left off.
var historyCommands = map[command]commandFunc{
	cmdPreviousHistory: func(e *Engine, in module.Input) module.Result {
		e.nav.Previous(e.screen)
		return redraw()
	},
	cmdNextHistory: func(e *Engine, in module.Input) module.Result {
		e.nav.Next(e.screen)
		return redraw()
	},
	cmdReverseSearchHistory: func(e *Engine, in module.Input) module.Result {
		e.nav.ReverseSearch(e.screen)
		return redraw()
	},
	cmdForwardSearchHistory: func(e *Engine, in module.Input) module.Result {
		e.nav.ForwardSearch(e.screen)
		return redraw()
	},
}

// searchAppend feeds a keystroke into the nav's incremental search;
// used by Engine.OnInput to decide whether an ordinary printable
// keystroke during an active search should be appended to the search
// key instead of being handed to cmdInsertChar.
func (e *Engine) searchAppend(in module.Input) module.Result {
	if len(in.Keys) == 1 && in.Keys[0] == 0x7f { // Backspace during search
		e.nav.TruncateSearchKey(e.screen)
		return redraw()
	}
	for _, b := range in.Keys {
		e.nav.AppendSearchKey(e.screen, rune(b))
	}
	return redraw()
}
