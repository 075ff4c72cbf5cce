package minix

import "testing"

func TestBitmapSetClrBit(t *testing.T) {
	changed := false
	buf := make([]byte, 4)
	bm := NewBitmap(buf, &changed)

	if bm.Bit(3) {
		t.Fatalf("bit 3 should start clear")
	}

	bm.SetBit(3)
	if !bm.Bit(3) {
		t.Fatalf("bit 3 should be set")
	}
	if !changed {
		t.Fatalf("SetBit should raise changed")
	}

	changed = false
	bm.ClrBit(3)
	if bm.Bit(3) {
		t.Fatalf("bit 3 should be clear")
	}
	if !changed {
		t.Fatalf("ClrBit should raise changed")
	}
}

func TestBitmapLSBFirst(t *testing.T) {
	buf := make([]byte, 1)
	bm := NewBitmap(buf, nil)
	bm.SetBit(0)
	if buf[0] != 0x01 {
		t.Fatalf("bit 0 should map to the low bit of byte 0, got %#x", buf[0])
	}
	bm.SetBit(7)
	if buf[0] != 0x81 {
		t.Fatalf("bit 7 should map to the high bit of byte 0, got %#x", buf[0])
	}
}

func TestBitmapOutOfRangeIsSafe(t *testing.T) {
	buf := make([]byte, 1)
	bm := NewBitmap(buf, nil)
	if bm.Bit(1000) {
		t.Fatalf("out-of-range bit should read false")
	}
	bm.SetBit(1000) // must not panic
	bm.ClrBit(1000) // must not panic
}
