package matches_test

import (
	"bytes"
	"sort"
	"strings"
	"testing"

	"github.com/shimmer-term/shimmer/binder"
	"github.com/shimmer-term/shimmer/bindresolver"
	"github.com/shimmer-term/shimmer/editor"
	"github.com/shimmer-term/shimmer/matches"
	"github.com/shimmer-term/shimmer/module"
)

// fakeGen returns candidates prefixed by word, sorted for deterministic
// LCD/layout behaviour.
type fakeGen struct{ words []string }

func (g fakeGen) Generate(line, word string) []string {
	var out []string
	for _, w := range g.words {
		if strings.HasPrefix(w, word) {
			out = append(out, w)
		}
	}
	sort.Strings(out)
	return out
}

// insertModule is a minimal stand-in for rlengine, binding plain
// character insertion so these tests can build up a word before Tab.
type insertModule struct{ module.Base }

func (insertModule) Name() string { return "insert" }

func (insertModule) BindInput(b *binder.Binder, defaultGroup int, moduleIndex int) {
	b.Bind(defaultGroup, `\0`, moduleIndex, binder.CatchallOnlyPrintable, false)
}

func (insertModule) OnInput(in module.Input, ctx *module.Context) module.Result {
	if in.ID != binder.CatchallOnlyPrintable {
		return module.Result{Kind: module.Next}
	}
	ctx.Buffer = append(ctx.Buffer, []rune(string(in.Keys))...)
	ctx.Cursor = len(ctx.Buffer)
	return module.Result{Kind: module.Redraw}
}

func setup(t *testing.T, gen matches.Generator) *editor.Loop {
	t.Helper()
	b := binder.New()
	defaultGroup := b.GetGroup("default")

	r := bindresolver.New(b)
	r.SetGroup(defaultGroup)
	loop := editor.NewLoop(r)

	m := matches.New(&loop.Screen, gen)
	mIdx, _ := b.AddModule(m.Name())
	m.BindInput(b, defaultGroup, mIdx)

	ins := insertModule{}
	insIdx, _ := b.AddModule(ins.Name())
	ins.BindInput(b, defaultGroup, insIdx)

	loop.Register(m, mIdx)
	loop.Register(ins, insIdx)
	return loop
}

func TestTabCompletesSoleMatchInFull(t *testing.T) {
	loop := setup(t, fakeGen{words: []string{"readme.txt"}})
	loop.BeginLine("$ ")

	var out bytes.Buffer
	if _, _, err := loop.Run(strings.NewReader("read\t"), &out); err != nil {
		t.Fatal(err)
	}
	if got := string(loop.Screen.Text()); got != "readme.txt" {
		t.Fatalf("buffer = %q, want %q", got, "readme.txt")
	}
}

func TestTabWithMultipleMatchesAppendsLCD(t *testing.T) {
	loop := setup(t, fakeGen{words: []string{"readme.txt", "readonly.go"}})
	loop.BeginLine("$ ")

	var out bytes.Buffer
	if _, _, err := loop.Run(strings.NewReader("re\t"), &out); err != nil {
		t.Fatal(err)
	}
	if got := string(loop.Screen.Text()); got != "read" {
		t.Fatalf("buffer = %q, want %q", got, "read")
	}
}

func TestTabWithNoMatchesLeavesBufferUnchanged(t *testing.T) {
	loop := setup(t, fakeGen{words: []string{"foo"}})
	loop.BeginLine("$ ")

	var out bytes.Buffer
	if _, _, err := loop.Run(strings.NewReader("zzz\t"), &out); err != nil {
		t.Fatal(err)
	}
	if got := string(loop.Screen.Text()); got != "zzz" {
		t.Fatalf("buffer = %q, want %q", got, "zzz")
	}
}
