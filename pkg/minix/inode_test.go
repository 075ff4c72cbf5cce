package minix

import "testing"

func TestInodeV1EncodeDecode(t *testing.T) {
	n := &InodeV1{
		IMode:   ModeReg | 0644,
		IUid:    1,
		ISize:   4096,
		IMtime:  12345,
		IGid:    2,
		INlinks: 3,
	}
	n.IZone[0] = 55

	raw := n.Encode()
	if len(raw) != 32 {
		t.Fatalf("encoded v1 inode is %d bytes, want 32", len(raw))
	}

	back := decodeInodeV1(raw)
	if back.Mode() != n.Mode() || back.Nlinks() != n.Nlinks() || back.Size() != n.Size() || back.Zone(0) != n.Zone(0) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", back, n)
	}
}

func TestInodeV2EncodeDecode(t *testing.T) {
	n := &InodeV2{
		IMode:   ModeDir | 0755,
		INlinks: 2,
		IUid:    10,
		IGid:    20,
		ISize:   1024,
	}
	n.IZone[9] = 777

	raw := n.Encode()
	if len(raw) != 64 {
		t.Fatalf("encoded v2 inode is %d bytes, want 64", len(raw))
	}

	back := decodeInodeV2(raw)
	if back.Mode() != n.Mode() || back.Nlinks() != n.Nlinks() || back.Zone(9) != n.Zone(9) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", back, n)
	}
}

func TestInodeTableGetPut(t *testing.T) {
	raw := make([]byte, 32*4)
	tab := LoadInodeTable(V1, raw, 4)

	n := tab.Get(1)
	n.SetMode(ModeReg | 0644)
	n.SetNlinks(1)
	n.SetZone(0, 99)
	tab.Put(1, n)

	got := tab.Get(1)
	if got.Mode() != ModeReg|0644 || got.Nlinks() != 1 || got.Zone(0) != 99 {
		t.Fatalf("Get after Put mismatch: %+v", got)
	}

	// An untouched inode slot stays zeroed.
	other := tab.Get(2)
	if other.Mode() != 0 {
		t.Fatalf("expected zeroed inode 2, got mode %#o", other.Mode())
	}
}

func TestModeClassification(t *testing.T) {
	if !IsDir(ModeDir | 0755) {
		t.Errorf("expected ModeDir to classify as directory")
	}
	if !IsReg(ModeReg | 0644) {
		t.Errorf("expected ModeReg to classify as regular file")
	}
	if !IsLnk(ModeLnk | 0777) {
		t.Errorf("expected ModeLnk to classify as symlink")
	}
	if IsDir(ModeReg) {
		t.Errorf("ModeReg should not classify as directory")
	}
}
