package buf

import "testing"

func TestU64LERoundTrip(t *testing.T) {
	b := make([]byte, 24)
	if !PutU64LE(b, 8, 0x0102030405060708) {
		t.Fatalf("PutU64LE failed on in-bounds word")
	}
	if b[8] != 0x08 || b[15] != 0x01 {
		t.Fatalf("unexpected byte order: % x", b[8:16])
	}
	if got := U64LE(b, 8); got != 0x0102030405060708 {
		t.Fatalf("U64LE=%#x", got)
	}
}

func TestU64LEOutOfBounds(t *testing.T) {
	b := make([]byte, 12)
	if got := U64LE(b, 8); got != 0 {
		t.Fatalf("U64LE past end should return 0, got %#x", got)
	}
	if PutU64LE(b, 5, 1) {
		t.Fatalf("PutU64LE past end should fail")
	}
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d modified by failed write", i)
		}
	}
}
