package conv

import "testing"

func TestUtoa(t *testing.T) {
	var b [20]byte
	if got := string(Utoa(b[:], 0)); got != "0" {
		t.Fatalf("Utoa(0)=%q", got)
	}
	if got := string(Utoa(b[:], 1200)); got != "1200" {
		t.Fatalf("Utoa(1200)=%q", got)
	}
}

func TestU16Hex(t *testing.T) {
	var b [4]byte
	if got := string(U16Hex(b[:], 0x0FFF)); got != "0FFF" {
		t.Fatalf("U16Hex=%q", got)
	}
	if got := U16Hex(b[:2], 1); len(got) != 0 {
		t.Fatalf("short buffer should yield empty slice, got %q", got)
	}
}
