//go:build windows

package procinject

import "testing"

func TestU16ToBytesLittleEndian(t *testing.T) {
	got := u16ToBytes([]uint16{0x0041, 0x4243, 0})
	want := []byte{0x41, 0x00, 0x43, 0x42, 0x00, 0x00}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, got[i], want[i])
		}
	}
}
