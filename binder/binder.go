// Package binder implements the key-chord binding trie: an arena of
// small-integer-indexed nodes (rather than owning pointers) that maps a
// sequence of input bytes to a (module, id) pair, optionally carrying
// numeric parameters captured along the way (the "*" wildcard parameter).
//
// The trie is organized into named groups; each group owns a root node
// that chords are bound under and that a bindresolver.Resolver starts
// matching from. The default group is created automatically.
package binder

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// CatchallOnlyPrintable is the sentinel id used with Key==0 to mean
// "bind every printable character that reaches this node, but never a
// control or extended (function/arrow/etc) key". It's distinguished from
// an ordinary wildcard leaf (which also has Key==0) by its id value.
const CatchallOnlyPrintable = 0xff

// Limits mirror the packed-field widths of the node representation:
// module indices fit in 5 bits, node indices in 9 bits, chord depth in 4
// bits. We don't literally bit-pack the Go struct (there's no portability
// reason to), but we enforce the same ranges so overflow is caught early
// rather than silently wrapping.
const (
	MaxNodes   = 1 << 9 // 512
	MaxModules = 1 << 5 // 32
	MaxDepth   = 1 << 4 // 16
)

type node struct {
	isGroup   bool
	next      int // sibling index; 0 = none
	module    int
	hasParams bool
	child     int // 0 = none
	depth     int
	bound     bool
	key       byte
	id        uint8
	nameHash  uint32 // only meaningful when isGroup
}

// Binder owns the node arena and the module name table. The zero value is
// not usable; call New.
type Binder struct {
	nodes   []node
	modules []string
}

// New returns a Binder with its arena pre-sized and a "default" group
// already created at group id 1 (group id 0 is reserved as "no group").
func New() *Binder {
	b := &Binder{
		nodes: make([]node, 1, MaxNodes), // index 0 is the null sentinel
	}
	b.CreateGroup("default")
	return b
}

// AddModule registers a module name (the binder only needs a stable small
// integer per module; the actual editor_module instance is looked up by
// the caller's own parallel table) and returns its index. Returns an
// error once MaxModules is exceeded, matching the 5-bit module index.
func (b *Binder) AddModule(name string) (int, error) {
	if len(b.modules) >= MaxModules {
		return 0, fmt.Errorf("binder: too many modules (max %d)", MaxModules)
	}
	b.modules = append(b.modules, name)
	return len(b.modules) - 1, nil
}

// ModuleName returns the name a module index was registered with.
func (b *Binder) ModuleName(idx int) string {
	if idx < 0 || idx >= len(b.modules) {
		return ""
	}
	return b.modules[idx]
}

func groupHash(name string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(name))
	return h.Sum32()
}

// GetGroup returns the id of an existing group, or 0 (the "no group"
// sentinel) if name hasn't been created.
func (b *Binder) GetGroup(name string) int {
	hash := groupHash(name)
	for i := 1; i < len(b.nodes); i++ {
		n := &b.nodes[i]
		if n.isGroup && n.nameHash == hash {
			return n.next // the group's root node, not the header cell
		}
	}
	return 0
}

// CreateGroup allocates a fresh named group: a group-header cell followed
// by its root node, and returns the root node's index (what bindings are
// registered against and what a resolver's set_group points to).
func (b *Binder) CreateGroup(name string) int {
	if g := b.GetGroup(name); g != 0 {
		return g
	}
	headerIdx := b.alloc()
	rootIdx := b.alloc()
	b.nodes[headerIdx] = node{isGroup: true, nameHash: groupHash(name), next: rootIdx}
	b.nodes[rootIdx] = node{}
	return rootIdx
}

func (b *Binder) alloc() int {
	b.nodes = append(b.nodes, node{})
	return len(b.nodes) - 1
}

// GetNode exposes read-only node data to the bindresolver package, which
// needs to walk the trie but shouldn't be able to mutate it. Index 0 is
// always the null/absent node.
type Node struct {
	IsGroup   bool
	Next      int
	Module    int
	HasParams bool
	Child     int
	Depth     int
	Bound     bool
	Key       byte
	ID        uint8
}

// GetNode returns the node at idx. Indices come from Bind/IsBound/GetGroup
// return values or from walking Next/Child of a previously returned Node.
func (b *Binder) GetNode(idx int) Node {
	if idx < 0 || idx >= len(b.nodes) {
		return Node{}
	}
	n := b.nodes[idx]
	return Node{
		IsGroup: n.isGroup, Next: n.next, Module: n.module, HasParams: n.hasParams,
		Child: n.child, Depth: n.depth, Bound: n.bound, Key: n.key, ID: n.id,
	}
}

// TranslateChord expands a chord grammar string into the literal key
// bytes it represents: "\M-x" adds ESC, "\C-x"/"^x" applies the control
// transform, "\e \t \n \r \0 \\" are their usual escapes, and "\M-C-x"
// combines meta and control. A lone ESC left over after translation (the
// chord was exactly "\e" or "^[") is rewritten to BindableESC so the
// binder can tell "the user pressed ESC alone" apart from "this sequence
// starts with ESC".
func TranslateChord(chord string) ([]byte, error) {
	var out []byte
	i := 0
	for i < len(chord) {
		c := chord[i]
		switch {
		case c == '^' && i+1 < len(chord):
			out = append(out, ctrlByte(chord[i+1]))
			i += 2
		case c == '\\' && i+1 < len(chord):
			n, adv, err := translateEscape(chord[i:])
			if err != nil {
				return nil, err
			}
			out = append(out, n...)
			i += adv
		default:
			out = append(out, c)
			i++
		}
	}
	if len(out) == 1 && out[0] == 0x1b {
		return append([]byte(nil), BindableESC...), nil
	}
	return out, nil
}

func ctrlByte(c byte) byte {
	switch {
	case c >= 'a' && c <= 'z':
		return c - 'a' + 1
	case c >= 'A' && c <= 'Z':
		return c - 'A' + 1
	case c == '[':
		return 0x1b
	case c == ']':
		return 0x1d
	case c == '\\':
		return 0x1c
	case c == '^':
		return 0x1e
	case c == '_':
		return 0x1f
	case c == '?':
		return 0x7f
	default:
		return c
	}
}

func translateEscape(s string) ([]byte, int, error) {
	// s[0] == '\\'
	if len(s) < 2 {
		return nil, 0, fmt.Errorf("binder: dangling backslash in chord")
	}
	switch s[1] {
	case 'M':
		if len(s) >= 4 && s[2] == '-' {
			if s[3] == 'C' && len(s) >= 6 && s[4] == '-' {
				return []byte{0x1b, ctrlByte(s[5])}, 6, nil
			}
			return []byte{0x1b, s[3]}, 4, nil
		}
		return nil, 0, fmt.Errorf("binder: malformed \\M- escape")
	case 'C':
		if len(s) >= 4 && s[2] == '-' {
			return []byte{ctrlByte(s[3])}, 4, nil
		}
		return nil, 0, fmt.Errorf("binder: malformed \\C- escape")
	case 'e':
		return []byte{0x1b}, 2, nil
	case 't':
		return []byte{'\t'}, 2, nil
	case 'n':
		return []byte{'\n'}, 2, nil
	case 'r':
		return []byte{'\r'}, 2, nil
	case '0':
		return []byte{0}, 2, nil
	case '\\':
		return []byte{'\\'}, 2, nil
	default:
		return []byte{s[1]}, 2, nil
	}
}

// BindableESC is substituted for a lone ESC chord at bind time. It's a
// fixed multi-byte sentinel that no ordinary keystroke produces, so a
// user pressing ESC alone can be distinguished from an unrecognised
// sequence that merely starts with ESC.
var BindableESC = []byte{0x1b, 0x1b, '~', 'b', 'E', 'S', 'C', '~'}

// Bind registers chord (in the backslash/caret grammar described by
// TranslateChord) against group, module, and id. hasParams marks the
// binding's trailing node as accepting a "*" numeric parameter. Returns
// an error if the chord is malformed or the trie/module tables overflow.
func (b *Binder) Bind(group int, chord string, module int, id uint8, hasParams bool) error {
	keys, err := TranslateChord(chord)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("binder: empty chord")
	}
	if len(keys) > MaxDepth {
		return fmt.Errorf("binder: chord too long (max depth %d)", MaxDepth)
	}
	if group <= 0 || group >= len(b.nodes) {
		return fmt.Errorf("binder: invalid group %d", group)
	}

	idx := group
	for depth, k := range keys {
		next := b.findChild(idx, k)
		if next == 0 {
			if len(b.nodes) >= MaxNodes {
				return fmt.Errorf("binder: trie full (max %d nodes)", MaxNodes)
			}
			next = b.addChild(idx, k, depth+1)
		}
		idx = next
	}

	target := &b.nodes[idx]
	if target.bound {
		// Duplicate binding: both owners stay in the sibling list. The
		// resolver's next() walks siblings in list order, so the newest
		// registration takes over the existing node and is tried first
		// (last registration wins); the earlier owner moves to a new
		// node right after it and is tried if the newer one passes.
		if len(b.nodes) >= MaxNodes {
			return fmt.Errorf("binder: trie full (max %d nodes)", MaxNodes)
		}
		dup := b.alloc()
		target = &b.nodes[idx]
		b.nodes[dup] = node{
			next: target.next, module: target.module, hasParams: target.hasParams,
			depth: target.depth, bound: true, key: target.key, id: target.id,
		}
		target.next = dup
		target.module = module
		target.hasParams = hasParams
		target.id = id
		return nil
	}

	target.module = module
	target.hasParams = hasParams
	target.bound = true
	target.id = id
	return nil
}

func (b *Binder) findChild(parent int, key byte) int {
	child := b.nodes[parent].child
	for child != 0 {
		n := &b.nodes[child]
		if n.key == key {
			return child
		}
		child = n.next
	}
	return 0
}

func (b *Binder) addChild(parent int, key byte, depth int) int {
	idx := b.alloc()
	b.nodes[idx] = node{key: key, depth: depth}
	p := &b.nodes[parent]
	if p.child == 0 {
		p.child = idx
	} else {
		// Append at the tail of the sibling list; invariant sibling >
		// self holds automatically since indices only ever increase.
		tail := p.child
		for b.nodes[tail].next != 0 {
			tail = b.nodes[tail].next
		}
		b.nodes[tail].next = idx
	}
	return idx
}

// IsBound reports whether seq reaches a bound leaf starting from group:
// 1 if yes, 0 if no, -1 ("redispatch") if seq is a strict prefix of some
// bound chord and the caller should keep accumulating bytes before
// deciding. The catchall-only-printable binding (id==CatchallOnlyPrintable,
// key==0) only counts as bound for the last byte of seq if that byte is a
// printable character (0x20-0x7e); control and extended keys fall through
// to the wildcard case as unbound here, signalling the outer handler
// should take them instead.
func (b *Binder) IsBound(group int, seq []byte) int {
	if group <= 0 || group >= len(b.nodes) {
		return 0
	}
	idx := group
	for i, k := range seq {
		child := b.findChild(idx, k)
		if child == 0 {
			// fall back to a wildcard (key==0) sibling at this depth
			child = b.findChild(idx, 0)
			if child == 0 {
				return 0
			}
		}
		n := &b.nodes[child]
		if n.id == CatchallOnlyPrintable && n.key == 0 {
			last := seq[len(seq)-1]
			if i == len(seq)-1 && !(last >= 0x20 && last <= 0x7e) {
				return 0
			}
		}
		idx = child
	}
	n := &b.nodes[idx]
	if n.bound {
		return 1
	}
	if n.child != 0 {
		return -1
	}
	return 0
}

// FindChild returns the child of parent bound to key, or 0 if none. It's
// exported for bindresolver, which needs to walk the trie byte-by-byte
// without mutating it.
func (b *Binder) FindChild(parent int, key byte) int {
	return b.findChild(parent, key)
}

// GetModule looks up the module index bound at node idx.
func (b *Binder) GetModule(idx int) int {
	if idx <= 0 || idx >= len(b.nodes) {
		return -1
	}
	return b.nodes[idx].module
}

// String renders the trie for debugging (not used on any hot path).
func (b *Binder) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "binder: %d nodes, %d modules\n", len(b.nodes), len(b.modules))
	return sb.String()
}
