package scroller

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shimmer-term/shimmer/binder"
	"github.com/shimmer-term/shimmer/bindresolver"
	"github.com/shimmer-term/shimmer/editor"
	"github.com/shimmer-term/shimmer/module"
)

// fakeBuf records scroll calls instead of touching a real console.
type fakeBuf struct {
	log []string
}

func (f *fakeBuf) LineUp()   { f.log = append(f.log, "lineup") }
func (f *fakeBuf) LineDown() { f.log = append(f.log, "linedown") }
func (f *fakeBuf) PageUp()   { f.log = append(f.log, "pageup") }
func (f *fakeBuf) PageDown() { f.log = append(f.log, "pagedown") }

// insertModule is a minimal stand-in for rlengine: it binds plain
// character insertion via the printable-only catchall and appends
// straight into ctx.Buffer, so these tests can exercise scroller's exit
// re-dispatch without pulling in the full readline engine.
type insertModule struct {
	module.Base
}

func (insertModule) Name() string { return "insert" }

func (insertModule) BindInput(b *binder.Binder, defaultGroup int, moduleIndex int) {
	_ = b.Bind(defaultGroup, `\0`, moduleIndex, binder.CatchallOnlyPrintable, false)
}

func (insertModule) OnInput(in module.Input, ctx *module.Context) module.Result {
	if in.ID != binder.CatchallOnlyPrintable {
		return module.Result{Kind: module.Next}
	}
	ctx.Buffer = append(ctx.Buffer, []rune(string(in.Keys))...)
	ctx.Cursor = len(ctx.Buffer)
	return module.Result{Kind: module.Redraw}
}

func setup(t *testing.T, buf Buffer) *editor.Loop {
	t.Helper()
	b := binder.New()
	defaultGroup := b.GetGroup("default")

	sc := New(buf)
	scIdx, _ := b.AddModule(sc.Name())
	sc.BindInput(b, defaultGroup, scIdx)

	ins := insertModule{}
	insIdx, _ := b.AddModule(ins.Name())
	ins.BindInput(b, defaultGroup, insIdx)

	r := bindresolver.New(b)
	r.SetGroup(defaultGroup)

	loop := editor.NewLoop(r)
	loop.Register(sc, scIdx)
	loop.Register(ins, insIdx)
	return loop
}

func TestPageUpEntersScrollMode(t *testing.T) {
	fb := &fakeBuf{}
	loop := setup(t, fb)
	loop.BeginLine("$ ")

	var out bytes.Buffer
	if _, _, err := loop.Run(strings.NewReader("\x1b[5~"), &out); err != nil {
		t.Fatal(err)
	}
	if len(fb.log) != 1 || fb.log[0] != "pageup" {
		t.Fatalf("scroll log = %v, want [pageup]", fb.log)
	}
}

func TestScrollThenExitReinsertsKey(t *testing.T) {
	fb := &fakeBuf{}
	loop := setup(t, fb)
	loop.BeginLine("$ ")

	var out bytes.Buffer
	// Page Up (enter scroll mode + scroll), Up arrow (keep scrolling),
	// then 'a' (exits scroll mode and is re-dispatched as a plain insert).
	_, _, err := loop.Run(strings.NewReader("\x1b[5~\x1b[Aa"), &out)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"pageup", "lineup"}
	if len(fb.log) != len(want) {
		t.Fatalf("scroll log = %v, want %v", fb.log, want)
	}
	for i := range want {
		if fb.log[i] != want[i] {
			t.Fatalf("scroll log = %v, want %v", fb.log, want)
		}
	}

	if got := string(loop.Screen.Text()); got != "a" {
		t.Fatalf("buffer after exit = %q, want %q", got, "a")
	}
}

func TestCtrlCExitsScrollModeWithoutInserting(t *testing.T) {
	fb := &fakeBuf{}
	loop := setup(t, fb)
	loop.BeginLine("$ ")

	var out bytes.Buffer
	_, _, err := loop.Run(strings.NewReader("\x1b[5~\x03"), &out)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(loop.Screen.Text()); got != "" {
		t.Fatalf("buffer after Ctrl-C exit = %q, want empty", got)
	}
}
