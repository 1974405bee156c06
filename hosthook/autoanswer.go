//go:build windows

package hosthook

import (
	"strings"

	"github.com/golang/glog"
	"golang.org/x/sys/windows"

	"github.com/shimmer-term/shimmer/prompttag"
)

// terminateBatchPrompt is the English text of cmd.exe's "Terminate
// batch job (Y/N)?" prompt — matched directly rather than resolved
// from cmd.exe.mui's localised message table, which would need a
// loaded cmd.exe module handle and FormatMessage flags this package
// has no other reason to carry (see the design notes).
const terminateBatchPrompt = "Terminate batch job (Y/N)?"

// tryAutoAnswer implements the single-char-read trick cmd.exe's own
// PromptUser() forces on callers: it reads one character at a time
// until it sees '\n', so answering "yes" takes two single-character
// reads — the answer itself, then a synthetic newline. visitCount
// tracks which of the two reads this call is.
func (r *Runtime) tryAutoAnswer(console windows.Handle) (reply byte, ok bool) {
	prompt, err := prompttag.Extract(console)
	if err != nil {
		glog.V(1).Infof("hosthook: extracting prompt for auto-answer: %v", err)
		return 0, false
	}
	if !matchesTerminatePrompt(prompt) {
		return 0, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.autoAnswerVisits++
	if r.autoAnswerVisits >= 2 {
		r.autoAnswerVisits = 0
		return '\n', true
	}
	return 'y', true
}

// matchesTerminatePrompt reports whether text contains cmd.exe's
// terminate-batch-job prompt.
func matchesTerminatePrompt(text string) bool {
	return strings.Contains(text, terminateBatchPrompt)
}
