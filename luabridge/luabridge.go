// Package luabridge embeds a Lua VM and exposes the two collaborator
// surfaces the line editor treats as opaque scripting: a match generator
// a completion word can be handed to, and a prompt filter chain the
// final displayed prompt is threaded through. It also wires a `path.*`
// helper table, grounded on path_lua_api.cpp, backed by strutil.
package luabridge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/golang/glog"
	lua "github.com/yuin/gopher-lua"

	"github.com/shimmer-term/shimmer/strutil"
)

type registered struct {
	fn       *lua.LFunction
	priority int
}

// Bridge owns an embedded Lua state plus whatever match generators and
// prompt filters scripts loaded into it have registered.
type Bridge struct {
	L *lua.LState

	matchGenerators []registered
	promptFilters   []registered
}

// New returns a Bridge with the path.* and clink.* native surfaces
// installed, ready for LoadScripts.
func New() *Bridge {
	b := &Bridge{L: lua.NewState()}
	b.registerPathAPI()
	b.registerClinkAPI()
	return b
}

// Close releases the underlying Lua state.
func (b *Bridge) Close() { b.L.Close() }

// LoadScripts loads every *.lua file directly under dir, in
// lexicographic order for deterministic registration order. A script
// that fails to load is reported through glog and skipped — mirroring
// lua_script_loader.cpp's "report the error, keep going" behaviour
// rather than aborting the whole load.
func (b *Bridge) LoadScripts(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		full := filepath.Join(dir, name)
		if err := b.L.DoFile(full); err != nil {
			glog.Warningf("luabridge: failed to load %s: %v", full, err)
		}
	}
	return nil
}

// registerPathAPI installs the "path" global table: clean, getbasename,
// getdirectory, getdrive, getextension, getname, join. One Go closure
// per entry rather than a method-table dispatch, since gopher-lua
// functions take no receiver.
func (b *Bridge) registerPathAPI() {
	L := b.L
	tbl := L.NewTable()

	set := func(name string, fn lua.LGFunction) { tbl.RawSetString(name, L.NewFunction(fn)) }

	set("clean", func(L *lua.LState) int {
		p := L.CheckString(1)
		sep := byte(0)
		if L.GetTop() >= 2 {
			if s := L.ToString(2); s != "" {
				sep = s[0]
			}
		}
		L.Push(lua.LString(strutil.Clean(p, sep)))
		return 1
	})
	set("getbasename", func(L *lua.LState) int {
		L.Push(lua.LString(strutil.GetBaseName(L.CheckString(1))))
		return 1
	})
	set("getdirectory", func(L *lua.LState) int {
		dir := strutil.GetDirectory(L.CheckString(1))
		if dir == "" {
			return 0
		}
		L.Push(lua.LString(dir))
		return 1
	})
	set("getdrive", func(L *lua.LState) int {
		drive := strutil.GetDrive(L.CheckString(1))
		if drive == "" {
			return 0
		}
		L.Push(lua.LString(drive))
		return 1
	})
	set("getextension", func(L *lua.LState) int {
		L.Push(lua.LString(strutil.GetExtension(L.CheckString(1))))
		return 1
	})
	set("getname", func(L *lua.LState) int {
		L.Push(lua.LString(strutil.GetName(L.CheckString(1))))
		return 1
	})
	set("join", func(L *lua.LState) int {
		L.Push(lua.LString(strutil.Join(L.CheckString(1), L.CheckString(2))))
		return 1
	})

	L.SetGlobal("path", tbl)
}

// registerClinkAPI installs the "clink" global table scripts call to
// register themselves: clink.register_match_generator(fn [, priority])
// and clink.register_prompt_filter(fn [, priority]), lower priority
// running first.
func (b *Bridge) registerClinkAPI() {
	L := b.L
	tbl := L.NewTable()
	tbl.RawSetString("register_match_generator", L.NewFunction(b.luaRegisterMatchGenerator))
	tbl.RawSetString("register_prompt_filter", L.NewFunction(b.luaRegisterPromptFilter))
	L.SetGlobal("clink", tbl)
}

func (b *Bridge) luaRegisterMatchGenerator(L *lua.LState) int {
	fn := L.CheckFunction(1)
	priority := 0
	if L.GetTop() >= 2 {
		priority = L.CheckInt(2)
	}
	b.matchGenerators = appendSorted(b.matchGenerators, registered{fn: fn, priority: priority})
	return 0
}

func (b *Bridge) luaRegisterPromptFilter(L *lua.LState) int {
	fn := L.CheckFunction(1)
	priority := 0
	if L.GetTop() >= 2 {
		priority = L.CheckInt(2)
	}
	b.promptFilters = appendSorted(b.promptFilters, registered{fn: fn, priority: priority})
	return 0
}

func appendSorted(list []registered, r registered) []registered {
	list = append(list, r)
	sort.SliceStable(list, func(i, j int) bool { return list[i].priority < list[j].priority })
	return list
}

// LineState is the subset of line_state a Lua match generator needs: the
// full line being edited, the cursor offset, and the word under the
// cursor that's being completed.
type LineState struct {
	Line   string
	Cursor int
	Word   string
}

// GenerateMatches calls each registered match generator in priority
// order, passing it the line state and a fresh match-builder table it
// can append candidate strings to. The first generator whose function
// returns true (claiming the word, per match_generator::generate's bool
// result) stops the chain and its builder contents are returned.
func (b *Bridge) GenerateMatches(ls LineState) ([]string, error) {
	L := b.L
	for _, g := range b.matchGenerators {
		lsTbl := L.NewTable()
		lsTbl.RawSetString("line", lua.LString(ls.Line))
		lsTbl.RawSetString("cursor", lua.LNumber(ls.Cursor))
		lsTbl.RawSetString("word", lua.LString(ls.Word))

		builder := L.NewTable()

		if err := L.CallByParam(lua.P{Fn: g.fn, NRet: 1, Protect: true}, lsTbl, builder); err != nil {
			glog.Warningf("luabridge: match generator error: %v", err)
			continue
		}
		ret := L.Get(-1)
		L.Pop(1)

		claimed, ok := ret.(lua.LBool)
		if !ok || !bool(claimed) {
			continue
		}

		var out []string
		builder.ForEach(func(_, v lua.LValue) {
			if s, ok := v.(lua.LString); ok {
				out = append(out, string(s))
			}
		})
		return out, nil
	}
	return nil, nil
}

// FilterPrompt threads prompt through every registered prompt filter in
// priority order, each getting the chance to rewrite what the previous
// one produced.
func (b *Bridge) FilterPrompt(prompt string) (string, error) {
	L := b.L
	cur := prompt
	for _, f := range b.promptFilters {
		if err := L.CallByParam(lua.P{Fn: f.fn, NRet: 1, Protect: true}, lua.LString(cur)); err != nil {
			glog.Warningf("luabridge: prompt filter %q failed: %v", f.fn.String(), err)
			return cur, fmt.Errorf("luabridge: prompt filter: %w", err)
		}
		ret := L.Get(-1)
		L.Pop(1)
		if s, ok := ret.(lua.LString); ok {
			cur = string(s)
		}
	}
	return cur, nil
}
