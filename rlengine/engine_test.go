package rlengine

import (
	"testing"

	"github.com/shimmer-term/shimmer/bindresolver"
	"github.com/shimmer-term/shimmer/binder"
	"github.com/shimmer-term/shimmer/editor"
	"github.com/shimmer-term/shimmer/history"
	"github.com/shimmer-term/shimmer/module"
)

func setup(t *testing.T) (*Engine, *editor.Screen, *bindresolver.Resolver) {
	t.Helper()
	var screen editor.Screen
	screen.Init()
	screen.Reset(nil)

	store, err := history.Open(t.TempDir(), history.Config{Dupe: history.DupeAdd})
	if err != nil {
		t.Fatal(err)
	}

	e := New(&screen, store, nil, nil)
	b := binder.New()
	group := b.GetGroup("default")
	modIdx, _ := b.AddModule(e.Name())
	e.BindInput(b, group, modIdx)

	r := bindresolver.New(b)
	r.SetGroup(group)
	return e, &screen, r
}

// feed drives bytes through the resolver and dispatches every resolved
// binding to the engine, mirroring what editor.Loop does.
func feed(t *testing.T, e *Engine, screen *editor.Screen, r *bindresolver.Resolver, bytes []byte) module.Result {
	t.Helper()
	var ctx module.Context
	e.OnBeginLine("$ ", &ctx)
	var last module.Result
	for _, b := range bytes {
		if !r.Step(b) {
			continue
		}
		for {
			bind := r.Next()
			if !bind.Valid() {
				break
			}
			in := module.Input{Keys: bind.Chord(), ID: bind.ID(), Params: bind.Params()}
			last = e.OnInput(in, &ctx)
			bind.Claim()
			if last.Kind == module.Done {
				return last
			}
		}
	}
	return last
}

func TestInsertAndBackspace(t *testing.T) {
	e, screen, r := setup(t)
	feed(t, e, screen, r, []byte("hi"))
	if got := string(screen.Text()); got != "hi" {
		t.Fatalf("got %q", got)
	}
	feed(t, e, screen, r, []byte{0x7f}) // DEL/backspace
	if got := string(screen.Text()); got != "h" {
		t.Fatalf("after backspace, got %q", got)
	}
}

func TestEnterAddsToHistory(t *testing.T) {
	e, screen, r := setup(t)
	res := feed(t, e, screen, r, []byte("echo hi\r"))
	if res.Kind != module.Done || res.EOF {
		t.Fatalf("res = %+v", res)
	}
	e.OnEndLine()
	lines := e.store.ReadLines()
	if len(lines) != 1 || lines[0].Text != "echo hi" {
		t.Fatalf("lines = %+v", lines)
	}
}

func TestCtrlDOnEmptyLineIsEOF(t *testing.T) {
	e, screen, r := setup(t)
	res := feed(t, e, screen, r, []byte{0x04})
	if res.Kind != module.Done || !res.EOF {
		t.Fatalf("res = %+v", res)
	}
}

func TestHistoryRecallViaCtrlP(t *testing.T) {
	e, screen, r := setup(t)
	e.store.Add("first command")
	e.store.Add("second command")
	feed(t, e, screen, r, []byte{0x10}) // Ctrl-P
	if got := string(screen.Text()); got != "second command" {
		t.Fatalf("got %q", got)
	}
}

func TestUndoRevertsAndRedoesLastEdit(t *testing.T) {
	e, screen, r := setup(t)
	feed(t, e, screen, r, []byte("ab"))
	feed(t, e, screen, r, []byte("c"))
	feed(t, e, screen, r, []byte{0x1a}) // Ctrl-Z
	if got := string(screen.Text()); got != "ab" {
		t.Fatalf("after undo, got %q", got)
	}
	feed(t, e, screen, r, []byte{0x1a}) // Ctrl-Z again toggles back
	if got := string(screen.Text()); got != "abc" {
		t.Fatalf("after second undo, got %q", got)
	}
}

func TestAltAInsertsDotDot(t *testing.T) {
	e, screen, r := setup(t)
	feed(t, e, screen, r, []byte{0x1b, 'a'}) // Alt-A
	if got := string(screen.Text()); got != `..\` {
		t.Fatalf("got %q", got)
	}
}

func TestUpDirectoryReplacesLineAndSubmits(t *testing.T) {
	e, screen, r := setup(t)
	feed(t, e, screen, r, []byte("dir /w"))
	res := feed(t, e, screen, r, []byte{0x1b, 0x15}) // Alt-Ctrl-U
	if res.Kind != module.Done || res.EOF {
		t.Fatalf("res = %+v", res)
	}
	if got := string(screen.Text()); got != "cd .." {
		t.Fatalf("got %q", got)
	}
}

func TestExpandEnvVarsUnderCursor(t *testing.T) {
	t.Setenv("SHIMMER_TEST_VAR", "expanded")
	e, screen, r := setup(t)
	feed(t, e, screen, r, []byte("echo %SHIMMER_TEST_VAR%"))
	feed(t, e, screen, r, []byte{0x1b, 0x05}) // Alt-Ctrl-E
	if got := string(screen.Text()); got != "echo expanded" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandEnvVarsLeavesUndefinedReferenceUntouched(t *testing.T) {
	e, screen, r := setup(t)
	feed(t, e, screen, r, []byte("echo %SHIMMER_NOT_SET_XYZ%"))
	feed(t, e, screen, r, []byte{0x1b, 0x05}) // Alt-Ctrl-E
	if got := string(screen.Text()); got != "echo %SHIMMER_NOT_SET_XYZ%" {
		t.Fatalf("got %q", got)
	}
}
