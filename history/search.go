package history

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// LineView is the subset of the line-buffer/screen contract that history
// navigation and incremental search need: enough to read the current
// text/cursor and splice in a recalled entry. editor's screen type
// implements this directly (MoveTo/EraseTo/Insert/Text/Position all
// appear on it with this exact signature).
type LineView interface {
	Text() []rune
	Position() int
	MoveTo(pos int)
	EraseTo(pos int) string
	Insert(text ...rune)
	SetSuffix(suffix []rune)
}

// Nav drives Up/Down history recall and Ctrl-R/Ctrl-S incremental search
// against a Store, with sticky search semantics: the position of the
// last recalled line is remembered across edit() calls so repeated
// Up/Enter replays a sequence, and is cleared once the user types text
// that no longer matches the remembered line.
type Nav struct {
	store *Store

	entries []Entry // live entries snapshotted at the start of navigation, newest first
	pending string  // saved text of the line being edited, for index==-1

	index int // -1 == "not navigating, editing the pending line"

	searchDir        int // 0 = inactive, +1 = forward, -1 = reverse
	searchMatched    bool
	searchKey        string
	searchMatchedKey string
}

// NewNav returns a Nav bound to store, starting at the store's sticky
// position if one was remembered from a previous edit.
func NewNav(store *Store) *Nav {
	n := &Nav{store: store, index: -1}
	n.entries = store.ReadLines()
	// Newest first: index 0 is the most recent entry, so Previous
	// (index+1) walks back in time.
	for i, j := 0, len(n.entries)-1; i < j; i, j = i+1, j-1 {
		n.entries[i], n.entries[j] = n.entries[j], n.entries[i]
	}
	if store.stickyIndex >= 0 && store.stickyIndex < len(n.entries) {
		n.index = store.stickyIndex
	}
	return n
}

// Searching reports whether an incremental search (Ctrl-R/Ctrl-S) is
// currently active, so the caller can route ordinary typed characters to
// AppendSearchKey instead of inserting them into the line.
func (n *Nav) Searching() bool { return n.searchDir != 0 }

// Forget clears any remembered sticky position (called when the user
// types text that doesn't match the remembered entry).
func (n *Nav) Forget() {
	n.index = -1
	n.store.stickyIndex = -1
}

// Commit saves the current sticky position back to the Store for the
// next edit() call to pick up.
func (n *Nav) Commit() {
	n.store.stickyIndex = n.index
}

func (n *Nav) entry(i int) string {
	if i == -1 {
		return n.pending
	}
	if i < 0 || i >= len(n.entries) {
		return ""
	}
	return n.entries[i].Text
}

func (n *Nav) save(cur []rune) {
	if n.index == -1 {
		n.pending = string(cur)
		return
	}
	if n.index >= 0 && n.index < len(n.entries) {
		n.entries[n.index].Text = string(cur)
	}
}

// Previous recalls the chronologically previous entry (older), or
// continues a reverse search if one is active.
func (n *Nav) Previous(v LineView) bool {
	if n.searchDir != 0 {
		return n.ReverseSearch(v)
	}
	if n.index+1 >= len(n.entries) {
		return false
	}
	n.save(v.Text())
	n.index++
	n.replace(v, n.entry(n.index))
	return true
}

// Next recalls the chronologically next entry (newer), or continues a
// forward search if one is active.
func (n *Nav) Next(v LineView) bool {
	if n.searchDir != 0 {
		return n.ForwardSearch(v)
	}
	if n.index == -1 {
		return false
	}
	n.save(v.Text())
	n.index--
	n.replace(v, n.entry(n.index))
	return true
}

func (n *Nav) replace(v LineView, text string) {
	v.MoveTo(0)
	v.EraseTo(len([]rune(v.Text())))
	v.Insert([]rune(text)...)
}

// ReverseSearch begins (or advances) an incremental reverse (Ctrl-R) search.
func (n *Nav) ReverseSearch(v LineView) bool {
	n.maybeInitSearch(v)
	n.searchDir = -1
	n.updateSearch(v, true)
	return true
}

// ForwardSearch begins (or advances) an incremental forward (Ctrl-S) search.
func (n *Nav) ForwardSearch(v LineView) bool {
	n.maybeInitSearch(v)
	n.searchDir = +1
	n.updateSearch(v, true)
	return true
}

// AppendSearchKey appends a typed character to the active search key.
func (n *Nav) AppendSearchKey(v LineView, r rune) bool {
	if n.searchDir == 0 {
		return false
	}
	n.searchKey += string(r)
	n.updateSearch(v, false)
	return true
}

// TruncateSearchKey removes the last character of the active search key
// (Backspace during search).
func (n *Nav) TruncateSearchKey(v LineView) bool {
	if n.searchDir == 0 {
		return false
	}
	if len(n.searchKey) > 0 {
		_, size := utf8.DecodeLastRuneInString(n.searchKey)
		n.searchKey = n.searchKey[:len(n.searchKey)-size]
		n.updateSearch(v, false)
	}
	return true
}

// Abort reverts to the last search key that matched, or cancels the
// search entirely if the last attempt never matched anything.
func (n *Nav) Abort(v LineView) bool {
	if n.searchDir == 0 {
		return false
	}
	if !n.searchMatched {
		n.searchKey = n.searchMatchedKey
		n.updateSearch(v, false)
		return true
	}
	return n.Cancel(v)
}

// Cancel ends an active search, restoring normal line editing.
func (n *Nav) Cancel(v LineView) bool {
	if n.searchDir == 0 {
		return false
	}
	v.SetSuffix(nil)
	n.searchDir = 0
	n.searchMatched = false
	n.searchKey = ""
	n.searchMatchedKey = ""
	return true
}

func (n *Nav) maybeInitSearch(v LineView) {
	if n.searchDir != 0 {
		return
	}
	n.save(v.Text())
	n.searchMatchedKey = ""
}

func (n *Nav) searchEntry(v LineView, i int, advance bool) bool {
	entry := n.entry(i)
	var pos int

	switch n.searchDir {
	case +1:
		start := 0
		if i == n.index {
			start = v.Position()
			if advance {
				start++
			}
			if start > len(entry) {
				start = len(entry)
			}
		}
		idx := strings.Index(entry[start:], n.searchKey)
		if idx == -1 {
			return false
		}
		pos = start + idx
	case -1:
		end := len(entry)
		if i == n.index {
			end = v.Position() + len(n.searchKey)
			if advance {
				end--
			}
			if end < 0 {
				end = 0
			}
			if end > len(entry) {
				end = len(entry)
			}
		}
		idx := strings.LastIndex(entry[:end], n.searchKey)
		if idx == -1 {
			return false
		}
		pos = idx
	}

	n.save(v.Text())
	n.index = i
	n.replace(v, entry)
	v.MoveTo(utf8.RuneCountInString(entry[:pos]))
	return true
}

func (n *Nav) updateSearch(v LineView, advance bool) {
	n.searchMatched = false
	if len(n.searchKey) > 0 {
		switch n.searchDir {
		case +1:
			for i := n.index; i >= -1; i-- {
				if n.searchEntry(v, i, advance) {
					n.searchMatched = true
					n.searchMatchedKey = n.searchKey
					break
				}
			}
		case -1:
			for i := n.index; i < len(n.entries); i++ {
				if n.searchEntry(v, i, advance) {
					n.searchMatched = true
					n.searchMatchedKey = n.searchKey
					break
				}
			}
		}
	}

	dir := "fwd"
	if n.searchDir < 0 {
		dir = "bck"
	}
	matched := "?"
	if len(n.searchKey) == 0 || n.searchMatched {
		matched = ":"
	}
	v.SetSuffix([]rune(fmt.Sprintf("\n%s%s`%s'", dir, matched, n.searchKey)))
}
