// Package prompttag implements the hidden/plain prompt-tagging
// convention the host interception layer uses to recognise its own
// WriteConsoleW calls: a short marker that renders as no visible
// columns, plus capture of the visible prompt text already on screen.
package prompttag

import "strings"

// tagLetters are the letters of this package's own marker; TagHidden
// follows each with a backspace so the cursor ends exactly where it
// started, leaving no visible trace on the console.
const tagLetters = "clink"

// TagPlain is a visible sentinel some other tool (a pasted value, a
// reinjected PROMPT variable) may already have prefixed a prompt with;
// recognised on read so double-tagging never happens.
const TagPlain = "\x01clink\x01"

// TagHidden is the hidden tag string itself, built once at init: each
// letter of tagLetters followed by a backspace.
var TagHidden = buildHiddenTag()

func buildHiddenTag() string {
	var b strings.Builder
	for _, c := range tagLetters {
		b.WriteRune(c)
		b.WriteByte('\b')
	}
	return b.String()
}

// Tag prepends TagHidden to value, unless value already begins with
// either recognised tag (TagHidden or TagPlain), in which case it's
// returned verbatim — Tag is idempotent across both forms, since both
// a hidden and a plain tag form are accepted on read.
func Tag(value string) string {
	if HasTag(value) {
		return value
	}
	return TagHidden + value
}

// HasTag reports whether value already begins with a recognised tag.
func HasTag(value string) bool {
	return strings.HasPrefix(value, TagHidden) || strings.HasPrefix(value, TagPlain)
}

// Strip removes a leading recognised tag from value, if present,
// returning the untagged prompt text.
func Strip(value string) string {
	if strings.HasPrefix(value, TagHidden) {
		return value[len(TagHidden):]
	}
	if strings.HasPrefix(value, TagPlain) {
		return value[len(TagPlain):]
	}
	return value
}
