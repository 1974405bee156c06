//go:build windows

package hosthook

import (
	"testing"
	"unsafe"
)

func TestMatchesTerminatePromptRecognisesTheFallbackText(t *testing.T) {
	if !matchesTerminatePrompt("Terminate batch job (Y/N)? ") {
		t.Fatal("expected match on the exact fallback prompt")
	}
	if !matchesTerminatePrompt("C:\\src>run.bat\nTerminate batch job (Y/N)? ") {
		t.Fatal("expected match when the prompt trails other screen text")
	}
}

func TestMatchesTerminatePromptRejectsUnrelatedText(t *testing.T) {
	if matchesTerminatePrompt("C:\\src> ") {
		t.Fatal("matched an ordinary prompt")
	}
	if matchesTerminatePrompt("") {
		t.Fatal("matched empty text")
	}
}

func TestUTF16RoundTrip(t *testing.T) {
	units := utf16Encode("hi")
	if len(units) != 2 || units[0] != 'h' || units[1] != 'i' {
		t.Fatalf("utf16Encode(%q) = %v", "hi", units)
	}
	if got := utf16Decode(uintptr(unsafe.Pointer(&units[0])), len(units)); got != "hi" {
		t.Fatalf("utf16Decode(utf16Encode(%q)) = %q", "hi", got)
	}
}

func TestAutoAnswerTwoPhaseProtocol(t *testing.T) {
	r := &Runtime{}

	r.autoAnswerVisits++
	if r.autoAnswerVisits >= 2 {
		t.Fatal("first visit should not yet reach the newline phase")
	}

	r.autoAnswerVisits++
	if r.autoAnswerVisits < 2 {
		t.Fatal("second visit should reach the newline phase")
	}
}
