// Package history implements the two-bank (master/session) history
// store: add/remove with tombstone-based deletion, compaction, a
// concurrency tag for detecting a concurrent rewrite by another process,
// the libedit-style on-disk encoding, the "!"-expansion grammar, and
// sticky incremental search.
package history

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/golang/glog"
)

// Bank identifies which of the two history banks an entry belongs to.
type Bank int

const (
	BankNone Bank = iota
	BankMaster
	BankSession
)

// minCompactThreshold is the master-bank tombstone count at which an
// unforced Store.Compact rewrites the master file; below it, an
// unforced Compact does nothing.
const minCompactThreshold = 200

// Entry is one history line.
type Entry struct {
	ID        int // stable offset within its bank's entries slice
	Text      string
	Bank      Bank
	tombstone bool
}

// DupeMode controls Store.Add's duplicate-handling behaviour.
type DupeMode int

const (
	DupeAdd DupeMode = iota
	DupeIgnore
	DupeErasePrev
)

// Config bundles the knobs Store.Add/Compact consult. Callers normally
// populate this from a settings.Registry (history.dupe_mode,
// history.ignore_space) once per begin_line, since these settings are
// meant to be re-read at the start of every edit rather than cached.
type Config struct {
	IgnoreSpace bool
	Dupe        DupeMode
}

// Store owns the master and session banks for one history file pair.
type Store struct {
	mu sync.Mutex

	masterPath string
	sessionPath string
	removalsPath string

	master  []Entry
	session []Entry

	concurrencyTag string
	diagnostics    bool

	cfg Config

	// stickyIndex carries the position of the last recalled history line
	// across edit() calls, so
	// a fresh Nav resumes where the previous one left off until Forget
	// is called.
	stickyIndex int
}

// Open creates a Store rooted at dir (masterPath = dir/history,
// sessionPath = dir/history.session, removalsPath =
// dir/history.removals), loading any existing master/session content.
func Open(dir string, cfg Config) (*Store, error) {
	s := &Store{
		masterPath:   dir + "/history",
		sessionPath:  dir + "/history.session",
		removalsPath: dir + "/history.removals",
		cfg:          cfg,
		stickyIndex:  -1,
	}
	if err := s.loadBank(s.masterPath, BankMaster); err != nil {
		glog.Warningf("history: master bank load failed, continuing with empty bank: %v", err)
	}
	if err := s.loadBank(s.sessionPath, BankSession); err != nil {
		glog.Warningf("history: session bank load failed, continuing with empty bank: %v", err)
	}
	s.applyRemovals()
	s.concurrencyTag = s.readConcurrencyTag()
	return s, nil
}

// EnableDiagnostics toggles mirroring of bank load/compact/reap decisions
// to the operational logger.
func (s *Store) EnableDiagnostics() { s.diagnostics = true }

func (s *Store) logf(format string, args ...interface{}) {
	if s.diagnostics {
		glog.Infof("history: "+format, args...)
	}
}

func (s *Store) loadBank(path string, bank Bank) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	n := 0
	for scanner.Scan() {
		line := scanner.Text()
		if n == 0 && strings.HasPrefix(line, "#tag:") {
			if bank == BankMaster {
				s.concurrencyTag = strings.TrimPrefix(line, "#tag:")
			}
			n++
			continue
		}
		text, err := decodeVis(line)
		if err != nil {
			glog.Warningf("history: skipping malformed line in %s: %v", path, err)
			n++
			continue
		}
		id := len(s.session)
		if bank == BankMaster {
			id = len(s.master)
		}
		entry := Entry{ID: id, Text: text, Bank: bank}
		if bank == BankMaster {
			s.master = append(s.master, entry)
		} else {
			s.session = append(s.session, entry)
		}
		n++
	}
	return scanner.Err()
}

func (s *Store) applyRemovals() {
	f, err := os.Open(s.removalsPath)
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var id int
		if _, err := fmt.Sscanf(scanner.Text(), "%d", &id); err != nil {
			continue
		}
		for i := range s.master {
			if s.master[i].ID == id {
				s.master[i].tombstone = true
			}
		}
	}
}

func (s *Store) readConcurrencyTag() string {
	if s.concurrencyTag != "" {
		return s.concurrencyTag
	}
	return newConcurrencyTag()
}

func newConcurrencyTag() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(buf[:])
}

// Add appends line to the active bank (session, which is merged into
// master at process exit), subject to ignore-space,
// empty-after-trim, and dupe-mode filtering.
func (s *Store) Add(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.IgnoreSpace && len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
		s.logf("add: skipped (leading whitespace)")
		return
	}
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		s.logf("add: skipped (empty after trim)")
		return
	}

	if dup := s.findDuplicate(line); dup >= 0 {
		switch s.cfg.Dupe {
		case DupeIgnore:
			s.logf("add: skipped (duplicate, dupe_mode=ignore)")
			return
		case DupeErasePrev:
			s.session[dup].tombstone = true
			s.logf("add: erased prior duplicate at session[%d]", dup)
		case DupeAdd:
			// fall through, add unconditionally
		}
	}

	id := len(s.session)
	s.session = append(s.session, Entry{ID: id, Text: line, Bank: BankSession})
}

func (s *Store) findDuplicate(line string) int {
	for i := len(s.session) - 1; i >= 0; i-- {
		if s.session[i].tombstone {
			continue
		}
		if s.session[i].Text == line {
			return i
		}
	}
	return -1
}

// Remove tombstones entry id in the given bank. The line stays physically
// present until the next Compact.
func (s *Store) Remove(bank Bank, id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.bankSlice(bank)
	for i := range entries {
		if entries[i].ID == id {
			entries[i].tombstone = true
			return
		}
	}
}

func (s *Store) bankSlice(bank Bank) []Entry {
	switch bank {
	case BankMaster:
		return s.master
	case BankSession:
		return s.session
	default:
		return nil
	}
}

// ReadLines returns the live (non-tombstoned) entries across both banks,
// master first, in id order within each bank.
func (s *Store) ReadLines() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.master {
		if !e.tombstone {
			out = append(out, e)
		}
	}
	for _, e := range s.session {
		if !e.tombstone {
			out = append(out, e)
		}
	}
	return out
}

// Compact rewrites the master bank, dropping tombstoned lines. uniq
// additionally de-duplicates identical lines anywhere in the bank
// (keeping the most recent occurrence), and if limit > 0 only the
// most recent limit live entries are kept. Without force, Compact does
// nothing until the master bank holds at least minCompactThreshold
// tombstones; force runs it regardless of that threshold. Store never
// calls Compact on its own.
func (s *Store) Compact(force, uniq bool, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tombstones := 0
	for _, e := range s.master {
		if e.tombstone {
			tombstones++
		}
	}
	if !force && tombstones < minCompactThreshold {
		return nil
	}

	live := make([]Entry, 0, len(s.master))
	for _, e := range s.master {
		if !e.tombstone {
			live = append(live, e)
		}
	}
	if uniq {
		seen := make(map[string]bool, len(live))
		deduped := make([]Entry, 0, len(live))
		for i := len(live) - 1; i >= 0; i-- {
			if seen[live[i].Text] {
				continue
			}
			seen[live[i].Text] = true
			deduped = append(deduped, live[i])
		}
		for i, j := 0, len(deduped)-1; i < j; i, j = i+1, j-1 {
			deduped[i], deduped[j] = deduped[j], deduped[i]
		}
		live = deduped
	}
	if limit > 0 && len(live) > limit {
		live = live[len(live)-limit:]
	}
	for i := range live {
		live[i].ID = i
	}
	s.master = live
	s.concurrencyTag = newConcurrencyTag()

	if err := s.writeBank(s.masterPath, s.master); err != nil {
		return err
	}
	if err := os.Remove(s.removalsPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	s.logf("compact: rewrote master with %d live entries (force=%v uniq=%v limit=%d)", len(live), force, uniq, limit)
	return nil
}

func (s *Store) writeBank(path string, entries []Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "#tag:%s\n", s.concurrencyTag); err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, e := range entries {
		if _, err := fmt.Fprintln(w, encodeVis(e.Text)); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Flush writes the session bank out, merging it into master on disk.
// Call once at process exit.
func (s *Store) Flush(mergeIntoMaster bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := make([]Entry, 0, len(s.session))
	for _, e := range s.session {
		if !e.tombstone {
			live = append(live, e)
		}
	}
	if err := s.writeBank(s.sessionPath, live); err != nil {
		return err
	}
	if !mergeIntoMaster {
		return nil
	}
	if s.staleMasterTag() {
		if err := s.reloadMaster(); err != nil {
			glog.Warningf("history: failed to reload stale master before merge: %v", err)
		}
	}
	for _, e := range live {
		e.ID = len(s.master)
		s.master = append(s.master, e)
	}
	return s.writeBank(s.masterPath, s.master)
}

// staleMasterTag reports whether another process has rewritten master
// since we last read its concurrency tag (another
// process may have rewritten master between our begin_line and add; we
// detect via the concurrency tag and reload before appending").
func (s *Store) staleMasterTag() bool {
	f, err := os.Open(s.masterPath)
	if err != nil {
		return false
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return false
	}
	line := scanner.Text()
	return strings.HasPrefix(line, "#tag:") && strings.TrimPrefix(line, "#tag:") != s.concurrencyTag
}

func (s *Store) reloadMaster() error {
	s.master = nil
	return s.loadBank(s.masterPath, BankMaster)
}
