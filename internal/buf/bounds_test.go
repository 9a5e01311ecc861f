package buf

import (
	"math"
	"testing"
)

func TestAddOverflowSafe(t *testing.T) {
	if sum, ok := AddOverflowSafe(10, 5); !ok || sum != 15 {
		t.Fatalf("AddOverflowSafe(10,5)=%d,%v want 15,true", sum, ok)
	}
	if _, ok := AddOverflowSafe(math.MaxInt, 1); ok {
		t.Fatalf("expected overflow when adding to MaxInt")
	}
	if _, ok := AddOverflowSafe(math.MinInt, -1); ok {
		t.Fatalf("expected underflow when subtracting from MinInt")
	}
}

func TestSlice(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4}
	if got, ok := Slice(data, 1, 3); !ok || len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("Slice returned unexpected result: %v, %v", got, ok)
	}
	if _, ok := Slice(data, 4, 2); ok {
		t.Fatalf("Slice should fail when extending beyond len")
	}
	if _, ok := Slice(data, -1, 1); ok {
		t.Fatalf("Slice should reject negative offset")
	}
	if _, ok := Slice(data, 1, -1); ok {
		t.Fatalf("Slice should reject negative length")
	}
}

func TestAlignHelpers(t *testing.T) {
	cases := []struct {
		x, align, up, down int
	}{
		{0, 8, 0, 0},
		{1, 8, 8, 0},
		{8, 8, 8, 8},
		{13, 4, 16, 12},
		{4097, 4096, 8192, 4096},
	}
	for _, c := range cases {
		if got := AlignUp(c.x, c.align); got != c.up {
			t.Fatalf("AlignUp(%d,%d)=%d want %d", c.x, c.align, got, c.up)
		}
		if got := AlignDown(c.x, c.align); got != c.down {
			t.Fatalf("AlignDown(%d,%d)=%d want %d", c.x, c.align, got, c.down)
		}
	}
	if got := AlignAddr(0x1001, 0x100); got != 0x1100 {
		t.Fatalf("AlignAddr=%#x want 0x1100", got)
	}
	for _, x := range []int{1, 2, 64, 1 << 20} {
		if !IsPow2(x) {
			t.Fatalf("IsPow2(%d) should be true", x)
		}
	}
	for _, x := range []int{0, -4, 3, 12} {
		if IsPow2(x) {
			t.Fatalf("IsPow2(%d) should be false", x)
		}
	}
}
