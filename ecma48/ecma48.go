// Package ecma48 decodes a byte stream into a lazy sequence of typed
// ECMA-48 codes: ordinary text runs, C0 controls, C1 (ESC Fe) sequences,
// independent control functions (ESC Fs), and CSI sequences with up to
// eight numeric parameters. Decoding is resumable: a partial sequence at
// the end of a buffer is held in the Decoder and completed on the next
// Feed call, so callers can hand it bytes as they arrive off the wire.
package ecma48

// Kind identifies the shape of a decoded Code.
type Kind int

const (
	// Chars is a run of ordinary printable/text bytes (including UTF-8
	// continuation bytes); Code.Text holds the run verbatim.
	Chars Kind = iota
	// C0 is a single control byte in 0x00-0x1F (other than ESC, which
	// always begins a C1/ICF/CSI code instead).
	C0
	// C1 is ESC followed by a byte in 0x40-0x5F (Fe final byte).
	C1
	// ICF is ESC followed by a byte in 0x60-0x7E (Fs/Fp independent
	// control function final byte).
	ICF
	// CSI is ESC '[' params... final, optionally with an intermediate
	// byte and a leading private-use marker ('?', '>', '=', etc).
	CSI
)

// MaxParams bounds the number of numeric parameters a CSI code can carry;
// additional parameters are dropped (not an error).
const MaxParams = 8

// Code is one decoded unit of the byte stream.
type Code struct {
	Kind Kind

	// Text holds the raw run of bytes for a Chars code.
	Text []byte

	// Final is the terminating byte for C0/C1/ICF/CSI codes: the control
	// byte itself for C0, the Fe/Fs byte for C1/ICF, or the CSI final
	// byte (e.g. 'm' for SGR).
	Final byte

	// Private is the CSI private-use marker byte ('?', '>', '=', '<'),
	// or 0 if none was present. Only meaningful for CSI.
	Private byte

	// Intermediate is a single CSI intermediate byte (0x20-0x2F), or 0.
	Intermediate byte

	// Params holds the parsed CSI parameters, defaulting missing values
	// to 0 per ECMA-48. Only meaningful for CSI.
	Params []int

	// Raw is the exact byte sequence this code was decoded from,
	// including the leading ESC/control byte. Writers that don't
	// recognize a code can pass Raw through untouched.
	Raw []byte
}

type parseState int

const (
	stateGround parseState = iota
	stateEscape
	stateCSI
)

// Decoder holds the partial-sequence state needed to resume decoding
// across Feed calls.
type Decoder struct {
	state   parseState
	pending []byte // bytes of the in-progress escape/CSI sequence, including leading ESC
	params  []int
	curNum  int
	haveNum bool
	private byte
	inter   byte
}

// New returns a Decoder starting in ground state.
func New() *Decoder {
	return &Decoder{}
}

// Feed decodes as many complete codes as possible from b, calling emit for
// each in stream order. Any trailing partial sequence is retained in the
// Decoder and completed on the next Feed call; callers that reach true
// end-of-stream with a nonempty partial sequence should call Flush.
func (d *Decoder) Feed(b []byte, emit func(Code)) {
	i := 0
	for i < len(b) {
		c := b[i]
		switch d.state {
		case stateGround:
			if c == 0x1b {
				d.beginEscape()
				i++
				continue
			}
			if c < 0x20 || c == 0x7f {
				emit(Code{Kind: C0, Final: c, Raw: []byte{c}})
				i++
				continue
			}
			start := i
			for i < len(b) && b[i] != 0x1b && (b[i] >= 0x20 && b[i] != 0x7f || b[i] >= 0x80) {
				i++
			}
			if i > start {
				run := append([]byte(nil), b[start:i]...)
				emit(Code{Kind: Chars, Text: run, Raw: run})
			}
		case stateEscape:
			d.pending = append(d.pending, c)
			i++
			switch {
			case c == '[':
				d.state = stateCSI
				d.resetParams()
			case c >= 0x40 && c <= 0x5f:
				emit(Code{Kind: C1, Final: c, Raw: append([]byte(nil), d.pending...)})
				d.reset()
			case c >= 0x60 && c <= 0x7e:
				emit(Code{Kind: ICF, Final: c, Raw: append([]byte(nil), d.pending...)})
				d.reset()
			default:
				// Not a legal ESC-final byte at all (e.g. another ESC,
				// or a C0 control arriving mid-sequence): per spec,
				// invalid sequences rewind and emit the initial ESC as
				// a C1 code, then reprocess this byte from ground.
				emit(Code{Kind: C1, Final: 0x1b, Raw: []byte{0x1b}})
				d.reset()
				i--
			}
		case stateCSI:
			d.pending = append(d.pending, c)
			switch {
			case c >= '0' && c <= '9':
				d.curNum = d.curNum*10 + int(c-'0')
				d.haveNum = true
			case c == ';':
				d.pushParam()
			case c == '?' || c == '>' || c == '=' || c == '<':
				if len(d.params) == 0 && !d.haveNum && d.private == 0 {
					d.private = c
				}
			case c >= 0x20 && c <= 0x2f:
				d.inter = c
			case c >= 0x40 && c <= 0x7e:
				d.pushParam()
				emit(Code{
					Kind:         CSI,
					Final:        c,
					Private:      d.private,
					Intermediate: d.inter,
					Params:       d.params,
					Raw:          append([]byte(nil), d.pending...),
				})
				d.reset()
			default:
				// Invalid CSI byte: abandon, emit the leading ESC as C1,
				// and reprocess from ground.
				emit(Code{Kind: C1, Final: 0x1b, Raw: []byte{0x1b}})
				d.reset()
				i--
			}
			i++
		}
	}
}

// Flush emits the decoder's partial sequence, if any, as a lone ESC C1
// code (the same recovery the parser uses for an invalid sequence), and
// resets to ground state. Call this at true end-of-stream if a sequence
// might legitimately never complete (e.g. the peer disconnected).
func (d *Decoder) Flush(emit func(Code)) {
	if d.state != stateGround {
		emit(Code{Kind: C1, Final: 0x1b, Raw: []byte{0x1b}})
		d.reset()
	}
}

func (d *Decoder) beginEscape() {
	d.state = stateEscape
	d.pending = []byte{0x1b}
}

func (d *Decoder) resetParams() {
	d.params = nil
	d.curNum = 0
	d.haveNum = false
	d.private = 0
	d.inter = 0
}

func (d *Decoder) pushParam() {
	if len(d.params) < MaxParams {
		d.params = append(d.params, d.curNum)
	}
	d.curNum = 0
	d.haveNum = false
}

func (d *Decoder) reset() {
	d.state = stateGround
	d.pending = nil
	d.resetParams()
}
