package main

import (
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/shimmer-term/shimmer/binder"
	"github.com/shimmer-term/shimmer/bindresolver"
	"github.com/shimmer-term/shimmer/editor"
	"github.com/shimmer-term/shimmer/history"
	"github.com/shimmer-term/shimmer/luabridge"
	"github.com/shimmer-term/shimmer/matches"
	"github.com/shimmer-term/shimmer/rlengine"
	"github.com/shimmer-term/shimmer/scroller"
	"github.com/shimmer-term/shimmer/settings"
)

// rig bundles every component a driver (run, testbed) wires into one
// editor.Loop: the dispatch core itself, the history store feeding
// rlengine's navigation/expansion, and the scrollback buffer the
// scroller module drives.
type rig struct {
	loop   *editor.Loop
	store  *history.Store
	reg    *settings.Registry
	lua    *luabridge.Bridge
	scroll scroller.Buffer
	engine *rlengine.Engine
}

// luaFileGenerator tries Lua-registered match generators first (scripts
// loaded from cfgdir), falling back to filesystem completion when no
// script claims the word — the same chaining order
// luabridge.Bridge.GenerateMatches itself uses for multiple Lua
// generators, extended one level further to a non-Lua fallback.
type luaFileGenerator struct {
	lua  *luabridge.Bridge
	file matches.FileGenerator
}

func (g luaFileGenerator) Generate(line, word string) []string {
	cursor := len(line)
	out, err := g.lua.GenerateMatches(luabridge.LineState{Line: line, Cursor: cursor, Word: word})
	if err == nil && len(out) > 0 {
		return out
	}
	return g.file.Generate(line, word)
}

// buildRig wires the binder trie, bind resolver, editor loop, and every
// editor module (rlengine, matches, scroller) against a shared history
// store and settings registry. Modules register in this fixed order —
// readline commands first, then completion, then scroll mode — so Tab
// and Page Up/Down never shadow a plain readline binding.
func buildRig(cfgDir string, scroll scroller.Buffer) (*rig, error) {
	reg := settings.Default()
	if err := reg.LoadFile(cfgDir + "/settings"); err != nil {
		return nil, fmt.Errorf("shimmer: loading settings: %w", err)
	}

	cfg := history.Config{
		IgnoreSpace: reg.Bool("history.ignore_space"),
		Dupe:        dupeModeFromSetting(reg.String("history.dupe_mode")),
	}
	store, err := history.Open(cfgDir, cfg)
	if err != nil {
		return nil, fmt.Errorf("shimmer: opening history: %w", err)
	}

	lua := luabridge.New()
	if err := lua.LoadScripts(cfgDir + "/scripts"); err != nil {
		return nil, fmt.Errorf("shimmer: loading lua scripts: %w", err)
	}

	b := binder.New()
	defaultGroup := b.GetGroup("default")
	resolver := bindresolver.New(b)
	resolver.SetGroup(defaultGroup)
	loop := editor.NewLoop(resolver)

	engine := rlengine.New(&loop.Screen, store, clipboardCopy, clipboardPaste)
	engIdx, err := b.AddModule(engine.Name())
	if err != nil {
		return nil, err
	}
	engine.BindInput(b, defaultGroup, engIdx)
	loop.Register(engine, engIdx)

	gen := luaFileGenerator{lua: lua, file: matches.FileGenerator{CaseFold: true}}
	mod := matches.New(&loop.Screen, gen)
	mod.SetLayout(80, reg.Int("match.max_width"), reg.Bool("match.vertical"))
	matIdx, err := b.AddModule(mod.Name())
	if err != nil {
		return nil, err
	}
	mod.BindInput(b, defaultGroup, matIdx)
	loop.Register(mod, matIdx)

	if scroll != nil {
		sc := scroller.New(scroll)
		scIdx, err := b.AddModule(sc.Name())
		if err != nil {
			return nil, err
		}
		sc.BindInput(b, defaultGroup, scIdx)
		loop.Register(sc, scIdx)
	}

	return &rig{loop: loop, store: store, reg: reg, lua: lua, scroll: scroll, engine: engine}, nil
}

func clipboardCopy(text string) error {
	return clipboard.WriteAll(text)
}

func clipboardPaste() (string, error) {
	return clipboard.ReadAll()
}

func dupeModeFromSetting(s string) history.DupeMode {
	switch s {
	case "add":
		return history.DupeAdd
	case "ignore":
		return history.DupeIgnore
	default:
		return history.DupeErasePrev
	}
}

func quoteModeFromSetting(s string) history.QuoteMode {
	switch s {
	case "off":
		return history.QuoteOff
	case "on":
		return history.QuoteOn
	case "not_squoted":
		return history.QuoteNotSingle
	case "not_dquoted":
		return history.QuoteNotDouble
	default:
		return history.QuoteNotAny
	}
}
