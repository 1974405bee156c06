//go:build windows

package winapi

import (
	"testing"
	"unsafe"
)

func TestEqualFoldDLL(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"KERNEL32.dll", "kernel32.DLL", true},
		{"kernel32.dll", "user32.dll", false},
		{"msvcrt.dll", "msvcrt.dl", false},
	}
	for _, c := range cases {
		if got := equalFoldDLL(c.a, c.b); got != c.want {
			t.Errorf("equalFoldDLL(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestFollowJumpStubDirectJmp(t *testing.T) {
	// A thin x86 thunk: "jmp disp32" (0xe9) to a target 16 bytes ahead
	// of the instruction's own end.
	code := make([]byte, 5, 32)
	code[0] = 0xe9
	const disp = 16
	code[1] = disp
	code[2] = 0
	code[3] = 0
	code[4] = 0

	addr := uintptr(unsafe.Pointer(&code[0]))
	got := FollowJumpStub(addr)
	want := addr + 5 + disp
	if got != want {
		t.Fatalf("FollowJumpStub = %#x, want %#x", got, want)
	}
}

func TestFollowJumpStubNonJump(t *testing.T) {
	code := []byte{0x55, 0x48, 0x89, 0xe5, 0xc3} // push rbp; mov rbp,rsp; ret
	addr := uintptr(unsafe.Pointer(&code[0]))
	if got := FollowJumpStub(addr); got != addr {
		t.Fatalf("FollowJumpStub = %#x, want unchanged %#x", got, addr)
	}
}
