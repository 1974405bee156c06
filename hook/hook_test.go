//go:build windows

package hook

import "testing"

func TestAttachRejectsPastMaxOps(t *testing.T) {
	s := New()
	for i := 0; i < MaxOps; i++ {
		if err := s.Attach(Detour, "kernel32.dll", "Noop", 0, nil); err != nil {
			t.Fatalf("Attach #%d: %v", i, err)
		}
	}
	if err := s.Attach(Detour, "kernel32.dll", "OneTooMany", 0, nil); err == nil {
		t.Fatalf("expected an error attaching past MaxOps, got nil")
	}
}

func TestDetachRejectsPastMaxOps(t *testing.T) {
	s := New()
	for i := 0; i < MaxOps; i++ {
		if err := s.Detach(IAT, "kernel32.dll", "Noop"); err != nil {
			t.Fatalf("Detach #%d: %v", i, err)
		}
	}
	if err := s.Detach(IAT, "kernel32.dll", "OneTooMany"); err == nil {
		t.Fatalf("expected an error detaching past MaxOps, got nil")
	}
}

func TestEncodeJumpAtX64IsRIPRelative(t *testing.T) {
	if !is64Bit {
		t.Skip("x64-only encoding shape")
	}
	const dest = uintptr(0x7ffabc123456)
	buf := encodeJumpAt(0x1000, dest)
	if len(buf) != 14 {
		t.Fatalf("len = %d, want 14", len(buf))
	}
	if buf[0] != 0xff || buf[1] != 0x25 {
		t.Fatalf("opcode = % x, want ff 25", buf[0:2])
	}
	var got uint64
	for i := 0; i < 8; i++ {
		got |= uint64(buf[6+i]) << (8 * i)
	}
	if uintptr(got) != dest {
		t.Fatalf("embedded address = %#x, want %#x", got, dest)
	}

	// The encoding must not depend on the "at" address: rip-relative
	// with disp32==0 always lands on the bytes right after itself.
	buf2 := encodeJumpAt(0x99999, dest)
	if string(buf) != string(buf2) {
		t.Fatalf("x64 jump encoding unexpectedly depends on placement address")
	}
}

func TestJmpPatchLenMatchesEncoding(t *testing.T) {
	if got := len(encodeJumpAt(0, 0)); got != jmpPatchLen() {
		t.Fatalf("encodeJumpAt produced %d bytes, jmpPatchLen says %d", got, jmpPatchLen())
	}
}
