// Package bindresolver feeds bytes one at a time into a binder.Binder and
// emits resolved bindings: a small incremental state machine that walks
// the trie, accumulates "*" numeric parameters along the way, and
// backtracks through a node's sibling list when the exact path doesn't
// lead to a bound leaf.
package bindresolver

import "github.com/shimmer-term/shimmer/binder"

// MaxKeys bounds the resolver's pending-byte buffer. Spec: capacity ≤16
// bytes; overflow resets the resolver and drops the buffer.
const MaxKeys = 16

// MaxParams bounds the number of "*" parameters a single chord can
// accumulate.
const MaxParams = 8

// Params holds the numeric parameters captured while resolving a chord
// (the "*" wildcard, e.g. a repeat count).
type Params struct {
	values [MaxParams]uint32
	num    int
	len    int // digit bytes across all params, minus one per param for its '*' key
}

// Get returns the value of the paramth captured parameter (0-indexed) and
// whether it exists.
func (p *Params) Get(param int) (uint32, bool) {
	if param < 0 || param >= p.num {
		return 0, false
	}
	return p.values[param], true
}

// Count returns how many parameters were captured.
func (p *Params) Count() int { return p.num }

func (p *Params) add(value uint32, digitLen int) bool {
	if p.num >= MaxParams {
		return false
	}
	p.values[p.num] = value
	p.num++
	// Offset the '*' key itself so depth+len is always the full key
	// sequence length, even when the param carried zero digits.
	p.len += digitLen - 1
	return true
}

func (p *Params) clear() {
	p.num = 0
	p.len = 0
}

// Binding is a resolved trie leaf: which module and id it's bound to, how
// many bytes of the input it consumed, and any captured parameters. The
// zero Binding is invalid (Valid() == false).
type Binding struct {
	r         *Resolver
	nodeIndex int
	module    int
	id        uint8
	length    int // consumed_length
	params    Params
}

// Valid reports whether b is a real binding (as opposed to the zero value
// returned when resolution fails).
func (b Binding) Valid() bool { return b.r != nil }

// Module returns the bound module index.
func (b Binding) Module() int { return b.module }

// ID returns the bound command id.
func (b Binding) ID() uint8 { return b.id }

// Params returns the captured numeric parameters.
func (b Binding) Params() Params { return b.params }

// Chord reproduces the exact bytes this binding matched.
func (b Binding) Chord() []byte {
	if b.r == nil {
		return nil
	}
	out := make([]byte, b.length)
	copy(out, b.r.keys[b.r.tail:b.r.tail+b.length])
	return out
}

// Claim advances the resolver's tail past this binding's bytes. After
// Claim, the resolver may still emit additional sibling bindings at the
// same node before moving on to fresh input.
func (b *Binding) Claim() {
	if b.r != nil {
		b.r.claim(*b)
		b.r = nil
	}
}

// Resolver is a bindresolver instance bound to a single binder.Binder. The
// zero value is not usable; call New.
type Resolver struct {
	b *binder.Binder

	group     int
	nodeIndex int

	keys    [MaxKeys]byte
	keyCont int // count of valid bytes in keys

	tail int // index into keys of the first unclaimed byte

	pendingInput bool

	params          Params
	paramAccum      uint32
	paramDigitLen   int
	pendingParam    bool
}

// New returns a Resolver over b, starting with no group selected.
func New(b *binder.Binder) *Resolver {
	return &Resolver{b: b}
}

// SetGroup switches the resolver to start matching from group's root
// (typically the return value of binder.CreateGroup/GetGroup). A no-op if
// group isn't a valid group root.
func (r *Resolver) SetGroup(group int) {
	if group == r.group {
		return
	}
	// The group's header cell sits immediately before its root in the
	// arena (see binder.CreateGroup), so group-1 must be a group header.
	if group <= 0 || !r.b.GetNode(group-1).IsGroup {
		return
	}
	r.group = group
	r.nodeIndex = group
	r.pendingInput = true
	r.params.clear()
	r.paramAccum = 0
	r.paramDigitLen = 0
	r.pendingParam = false
}

// Group returns the currently active group root.
func (r *Resolver) Group() int { return r.group }

// Reset returns the resolver to its group's root, preserving the active
// group but dropping any partially-matched input.
func (r *Resolver) Reset() {
	group := r.group
	*r = Resolver{b: r.b}
	r.group = group
	r.nodeIndex = group
}

// Step feeds one byte to the resolver. It returns true if a trie leaf (no
// further children) was reached or the byte matched nothing at the
// current node, and the caller should call Next to drain any bindings,
// or false to keep feeding bytes.
func (r *Resolver) Step(key byte) bool {
	if r.keyCont >= MaxKeys {
		r.Reset()
		return false
	}
	r.keys[r.keyCont] = key
	r.keyCont++
	return r.stepImpl(key)
}

func (r *Resolver) stepImpl(key byte) bool {
	if key >= '0' && key <= '9' {
		// A "*" node captures a run of decimal digits: the first digit
		// enters it, later digits accumulate without advancing.
		star := r.nodeIndex
		if !r.pendingParam {
			star = 0
			if r.b.FindChild(r.nodeIndex, key) == 0 {
				star = r.b.FindChild(r.nodeIndex, '*')
			}
		}
		if star != 0 {
			r.paramAccum = r.paramAccum*10 + uint32(key-'0')
			r.paramDigitLen++
			r.pendingParam = true
			r.nodeIndex = star
			return false
		}
	}
	next := r.b.FindChild(r.nodeIndex, key)
	if next == 0 {
		// Fall back to a wildcard (key==0) child at this depth, mirroring
		// binder.IsBound's own fallback. The catchall-only-printable
		// binding only ever matches a printable final byte; any other
		// unmatched byte is genuinely unbound.
		next = r.b.FindChild(r.nodeIndex, 0)
		if next == 0 {
			return true
		}
		if n := r.b.GetNode(next); n.ID == binder.CatchallOnlyPrintable && !(key >= 0x20 && key <= 0x7e) {
			return true
		}
	}
	node := r.b.GetNode(next)
	if r.pendingParam {
		r.params.add(r.paramAccum, r.paramDigitLen)
		r.paramAccum = 0
		r.paramDigitLen = 0
		r.pendingParam = false
	}
	r.nodeIndex = next
	return node.Child == 0
}

// Next drains the next resolved binding, walking the current node's
// sibling list for a bound leaf. Returns an invalid Binding once no more
// bindings are available at this position (the caller should then feed
// more bytes via Step).
func (r *Resolver) Next() Binding {
	if r.pendingInput {
		r.pendingInput = false

		keysRemaining := r.keyCont - r.tail
		if keysRemaining <= 0 || keysRemaining >= MaxKeys {
			r.Reset()
			return Binding{}
		}
		for i := r.tail; i < r.keyCont; i++ {
			if r.stepImpl(r.keys[i]) {
				break
			}
		}
	}

	for r.nodeIndex != 0 {
		node := r.b.GetNode(r.nodeIndex)
		nodeIndex := r.nodeIndex
		r.nodeIndex = node.Next

		keyIndex := r.tail + node.Depth + r.params.len - 1
		if node.Bound && (node.Key == 0 || (keyIndex >= 0 && keyIndex < r.keyCont && node.Key == r.keys[keyIndex])) {
			length := node.Depth
			if length < 1 {
				length = 1
			}
			length += r.params.len
			return Binding{
				r: r, nodeIndex: nodeIndex, module: node.Module, id: node.ID,
				length: length, params: r.params,
			}
		}
	}

	r.Reset()
	return Binding{}
}

// IsBound reports the binder's IsBound result (1/0/-1, see binder.IsBound)
// for seq under the resolver's active group.
func (r *Resolver) IsBound(seq []byte) int {
	return r.b.IsBound(r.group, seq)
}

// MoreThan reports whether more than length bytes beyond the claimed tail
// have been fed to the resolver since the last claim.
func (r *Resolver) MoreThan(length int) bool {
	return r.keyCont > r.tail+length
}

func (r *Resolver) claim(b Binding) {
	r.tail += b.length
	r.nodeIndex = r.group
	r.pendingInput = true
}
