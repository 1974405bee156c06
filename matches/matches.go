// Package matches implements the completion match pipeline: a generator
// interface, a filesystem-backed generator, lowest-common-denominator
// (LCD) computation, and the column layout math the classic pager UI
// needs to lay candidates out on screen.
package matches

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/shimmer-term/shimmer/strutil"
	"github.com/shimmer-term/shimmer/wildmatch"
)

// Generator produces completion candidates for the word under the
// cursor. Implementations might complete files, history entries, or
// Lua-registered match generators (luabridge.Bridge.GenerateMatches runs
// those; Bridge itself does not implement this interface).
type Generator interface {
	// Generate returns candidate completions for word (the partial text
	// being completed) given line (the full input so far, for context-
	// sensitive generators).
	Generate(line, word string) []string
}

// FileGenerator completes path names from the filesystem, with optional
// glob-style filtering.
type FileGenerator struct {
	// Dir is the directory to list; if empty, the word's own directory
	// component (if any) is used, else the current directory.
	Dir string
	// CaseFold enables case-insensitive matching of the partial word
	// against directory entries (Windows default).
	CaseFold bool
}

// Generate implements Generator.
func (g FileGenerator) Generate(line, word string) []string {
	dir := g.Dir
	base := word
	if d := strutil.GetDirectory(word); d != "" {
		dir = d
		base = strutil.GetName(word)
	}
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	flags := wildmatch.Flags(0)
	if g.CaseFold {
		flags |= wildmatch.CaseFold
	}
	var out []string
	pattern := base + "*"
	for _, e := range entries {
		name := e.Name()
		if !wildmatch.Match(pattern, name, flags) {
			continue
		}
		full := name
		if d := strutil.GetDirectory(word); d != "" {
			full = filepath.Join(d, name)
		}
		if e.IsDir() {
			full += string(filepath.Separator)
		}
		out = append(out, full)
	}
	sort.Strings(out)
	return out
}

// LCD returns the lowest common denominator prefix shared by every
// string in matches: the longest prefix such that every match begins
// with it. Runs in O(N*L) by comparing each candidate against a running
// prefix, shrinking the prefix as mismatches are found.
func LCD(matches []string) string {
	if len(matches) == 0 {
		return ""
	}
	prefix := []rune(matches[0])
	for _, m := range matches[1:] {
		r := []rune(m)
		n := len(prefix)
		if len(r) < n {
			n = len(r)
		}
		i := 0
		for i < n && prefix[i] == r[i] {
			i++
		}
		prefix = prefix[:i]
		if len(prefix) == 0 {
			break
		}
	}
	return string(prefix)
}

// Layout describes how the classic pager UI should lay candidates out:
// the column width and number of columns. width = min(termCols-3,
// maxWidth); columns = max(1, width/(longest+1)).
type Layout struct {
	Columns int
	Width   int
}

// ComputeLayout returns the column layout for matches given the
// terminal's width and the match.max_width setting.
func ComputeLayout(matches []string, termCols, maxWidth int) Layout {
	longest := 0
	for _, m := range matches {
		w := runewidth.StringWidth(m)
		if w > longest {
			longest = w
		}
	}
	width := termCols - 3
	if maxWidth > 0 && maxWidth < width {
		width = maxWidth
	}
	if width < 1 {
		width = 1
	}
	cols := width / (longest + 1)
	if cols < 1 {
		cols = 1
	}
	return Layout{Columns: cols, Width: width}
}

// Page lays out matches into rows of Columns, for vertical=false (fill
// rows left-to-right); vertical=true fills columns top-to-bottom, matching
// the two classic-pager layout modes gated by match.vertical.
func Page(matches []string, layout Layout, vertical bool) [][]string {
	if layout.Columns < 1 {
		layout.Columns = 1
	}
	rows := (len(matches) + layout.Columns - 1) / layout.Columns
	grid := make([][]string, rows)
	for i := range grid {
		grid[i] = make([]string, 0, layout.Columns)
	}
	if vertical {
		for i, m := range matches {
			row := i % rows
			grid[row] = append(grid[row], m)
		}
	} else {
		for i, m := range matches {
			row := i / layout.Columns
			grid[row] = append(grid[row], m)
		}
	}
	return grid
}

// PadCell right-pads s with spaces to width columns (rune-width aware),
// for aligning a column in the pager grid.
func PadCell(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
