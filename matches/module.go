package matches

import (
	"strings"

	"github.com/shimmer-term/shimmer/binder"
	"github.com/shimmer-term/shimmer/module"
)

const bindComplete uint8 = iota

// SuffixWriter is the part of editor.Screen the pager needs: a way to
// render the candidate grid below the input line. Kept as a narrow
// interface rather than importing editor directly, which otherwise
// would cycle back here through editor's own use of matches.LCD.
type SuffixWriter interface {
	SetSuffix(newSuffix []rune)
}

// Module is the classic-pager completion editor module: Tab generates
// candidates from Gen for the word under the cursor, then either
// completes the single unambiguous match in full or inserts the
// lowest-common-denominator prefix shared by all of them, leaving the
// remaining candidates in Context.Matches for a pager to display.
type Module struct {
	module.Base

	screen SuffixWriter
	gen    Generator

	termCols, maxWidth int
	vertical           bool
}

// New returns a Module generating candidates from gen and splicing them
// into screen.
func New(screen SuffixWriter, gen Generator) *Module {
	return &Module{screen: screen, gen: gen, vertical: true}
}

// SetLayout configures the pager's column math; termCols is the current
// terminal width, maxWidth mirrors the match.max_width setting (0 =
// unlimited), vertical mirrors match.vertical.
func (m *Module) SetLayout(termCols, maxWidth int, vertical bool) {
	m.termCols, m.maxWidth, m.vertical = termCols, maxWidth, vertical
}

// Name identifies this module to binder.AddModule.
func (m *Module) Name() string { return "matches" }

// BindInput binds Tab to the completion command.
func (m *Module) BindInput(b *binder.Binder, defaultGroup int, moduleIndex int) {
	b.Bind(defaultGroup, "\\t", moduleIndex, bindComplete, false)
}

// OnInput generates candidates for the word ending at the cursor and
// either completes the sole match or appends their shared prefix.
func (m *Module) OnInput(in module.Input, ctx *module.Context) module.Result {
	if in.ID != bindComplete {
		return module.Result{Kind: module.Next}
	}

	line := string(ctx.Buffer)
	start := ctx.Cursor
	for start > 0 && ctx.Buffer[start-1] != ' ' {
		start--
	}
	word := string(ctx.Buffer[start:ctx.Cursor])

	var candidates []string
	if m.gen != nil {
		candidates = m.gen.Generate(line, word)
	}
	ctx.Matches = candidates

	if len(candidates) == 0 {
		return module.Result{Kind: module.Redraw}
	}
	if len(candidates) == 1 {
		full := append([]rune(nil), ctx.Buffer[:start]...)
		full = append(full, []rune(candidates[0])...)
		full = append(full, ctx.Buffer[ctx.Cursor:]...)
		ctx.Buffer = full
		ctx.Cursor = start + len([]rune(candidates[0]))
		return module.Result{Kind: module.Redraw}
	}
	return module.Result{Kind: module.AppendMatchLCD}
}

// OnMatchesChanged renders the candidate list below the line whenever
// Tab leaves more than one match, using ComputeLayout/Page for the
// classic multi-column pager.
func (m *Module) OnMatchesChanged(ctx *module.Context) {
	if len(ctx.Matches) < 2 {
		m.screen.SetSuffix(nil)
		return
	}
	cols := m.termCols
	if cols <= 0 {
		cols = ctx.TermCols
	}
	layout := ComputeLayout(ctx.Matches, cols, m.maxWidth)
	grid := Page(ctx.Matches, layout, m.vertical)

	var out strings.Builder
	for _, row := range grid {
		out.WriteByte('\n')
		for _, cell := range row {
			out.WriteString(PadCell(cell, layout.Width/layout.Columns))
		}
	}
	m.screen.SetSuffix([]rune(out.String()))
}
