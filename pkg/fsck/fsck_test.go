package fsck

import (
	"encoding/binary"
	"testing"

	"github.com/minixfs/mfsck/pkg/elog"
	"github.com/minixfs/mfsck/pkg/minix"
	"github.com/minixfs/mfsck/pkg/operator"
)

// memDevice is an in-memory Device used to build exact-byte Minix v1
// fixtures without touching the filesystem.
type memDevice struct {
	blocks [][]byte
}

func newMemDevice(nblocks int) *memDevice {
	d := &memDevice{blocks: make([][]byte, nblocks)}
	for i := range d.blocks {
		d.blocks[i] = make([]byte, minix.BlockSize)
	}
	return d
}

func (d *memDevice) ReadZone(nr uint32) []byte {
	if int(nr) >= len(d.blocks) {
		return make([]byte, minix.BlockSize)
	}
	out := make([]byte, minix.BlockSize)
	copy(out, d.blocks[nr])
	return out
}

func (d *memDevice) WriteZone(nr uint32, buf []byte) error {
	if int(nr) >= len(d.blocks) {
		return nil
	}
	copy(d.blocks[nr], buf)
	return nil
}

func (d *memDevice) Probe(nr uint32) bool {
	return int(nr) < len(d.blocks)
}

func (d *memDevice) NumBlocks() uint32 {
	return uint32(len(d.blocks))
}

// testLogger discards everything; it satisfies elog.Logger without
// depending on the elog package's terminal machinery.
type testLogger struct{}

func (testLogger) Debugf(format string, x ...interface{})   {}
func (testLogger) Errorf(format string, x ...interface{})   {}
func (testLogger) Infof(format string, x ...interface{})    {}
func (testLogger) Printf(format string, x ...interface{})   {}
func (testLogger) Warnf(format string, x ...interface{})    {}
func (testLogger) IsInfoEnabled() bool                       { return false }
func (testLogger) IsDebugEnabled() bool                      { return false }

var _ elog.Logger = testLogger{}

// decodeInodeV1 decodes one 32-byte v1 inode record.
func decodeInodeV1(raw []byte) *minix.InodeV1 {
	return minix.LoadInodeTable(minix.V1, raw, 1).Get(1).(*minix.InodeV1)
}

// fixtureV1 builds a minimal, valid v1 filesystem with a root directory
// containing only "." and "..". Layout: block 0 boot, block 1 super,
// block 2 imap (1 block), block 3 zmap (1 block), blocks 4 inode table
// (inodes are 32 bytes; with 32 inodes that's 1024 bytes -> 1 block),
// first data zone at block 5.
func fixtureV1(t *testing.T, nblocks int) *memDevice {
	t.Helper()

	const (
		ninodes   = 32
		nzones    = 64
		imapBlk   = 1
		zmapBlk   = 1
		firstZone = 5
	)

	dev := newMemDevice(nblocks)

	sb := &minix.Superblock{
		Variant:     minix.V1,
		Inodes:      ninodes,
		Zones:       nzones,
		ImapBlocks:  imapBlk,
		ZmapBlocks:  zmapBlk,
		FirstZone:   firstZone,
		LogZoneSize: 0,
		Magic:       minix.MagicV1,
		State:       0,
	}
	dev.WriteZone(1, sb.Encode())

	imap := make([]byte, minix.BlockSize)
	imap[0] = 0x03 // bit 0 sentinel + inode 1 (root) in use
	dev.WriteZone(2, imap)

	zmap := make([]byte, minix.BlockSize)
	zmap[0] = 0x03 // bit 0 sentinel + zone `firstZone` (bit 1) in use
	dev.WriteZone(3, zmap)

	itab := make([]byte, minix.BlockSize)
	root := &minix.InodeV1{
		IMode:   minix.ModeDir | 0755,
		INlinks: 2,
		ISize:   32, // two entries * stride 16
	}
	root.IZone[0] = firstZone
	copy(itab[0:32], root.Encode()) // slot 0 unused; root is inode 1 at offset 0

	dev.WriteZone(4, itab)

	rootBlock := make([]byte, minix.BlockSize)
	binary.LittleEndian.PutUint16(rootBlock[0:2], 1)
	copy(rootBlock[2:16], ".")
	binary.LittleEndian.PutUint16(rootBlock[16:18], 1)
	copy(rootBlock[18:32], "..")
	dev.WriteZone(firstZone, rootBlock)

	return dev
}

func TestRunCleanGateSkipsUntouchedImage(t *testing.T) {
	dev := fixtureV1(t, 16)

	sbBlock := dev.ReadZone(1)
	sb, _ := minix.ReadSuperblock(sbBlock)
	sb.SetValid(false)
	dev.WriteZone(1, sb.Encode())

	before := make([]byte, minix.BlockSize)
	copy(before, dev.ReadZone(4))

	report, code := Run(dev, operator.Automatic{}, testLogger{}, Options{Automatic: true, Repair: true})

	if code != ExitClean {
		t.Fatalf("exit code = %d, want %d", code, ExitClean)
	}
	if !report.Gated {
		t.Fatalf("expected the boot gate to fire")
	}
	after := dev.ReadZone(4)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("gated run modified the inode table at byte %d", i)
		}
	}
}

func TestRunForceOnCleanImageMakesNoChanges(t *testing.T) {
	dev := fixtureV1(t, 16)
	sbBlock := dev.ReadZone(1)
	sb, _ := minix.ReadSuperblock(sbBlock)
	sb.SetValid(false)
	dev.WriteZone(1, sb.Encode())

	report, code := Run(dev, operator.Automatic{}, testLogger{}, Options{Automatic: true, Repair: true, Force: true})

	if report.Changed {
		t.Fatalf("expected no changes on an already-consistent image")
	}
	if code&ExitChanged != 0 {
		t.Fatalf("exit code %d should not have the changed bit set", code)
	}
	if report.Directories != 1 {
		t.Fatalf("directories = %d, want 1", report.Directories)
	}
}

func TestRunIdempotence(t *testing.T) {
	dev := fixtureV1(t, 16)

	// Corrupt the root directory the same way as the dangling-entry
	// scenario, so the first pass has real repair work to do.
	itab := dev.ReadZone(4)
	root := decodeInodeV1(itab[0:32])
	root.ISize = 48
	copy(itab[0:32], root.Encode())
	dev.WriteZone(4, itab)

	rootBlock := dev.ReadZone(5)
	binary.LittleEndian.PutUint16(rootBlock[32:34], 40)
	copy(rootBlock[34:48], "dangling")
	dev.WriteZone(5, rootBlock)

	opt := Options{Automatic: true, Repair: true, Force: true}

	_, code1 := Run(dev, operator.Automatic{}, testLogger{}, opt)
	_, code2 := Run(dev, operator.Automatic{}, testLogger{}, opt)

	if code1&ExitChanged == 0 {
		t.Fatalf("expected the first run to repair the dangling entry")
	}
	if code2&ExitChanged != 0 {
		t.Fatalf("second run should make no further changes, got exit %d", code2)
	}
}

func TestRunDanglingDirectoryEntry(t *testing.T) {
	dev := fixtureV1(t, 16)

	// Corrupt the root directory: grow it to 3 entries and point the
	// third at an out-of-range inode number.
	itab := dev.ReadZone(4)
	root := decodeInodeV1(itab[0:32])
	root.ISize = 48
	copy(itab[0:32], root.Encode())
	dev.WriteZone(4, itab)

	rootBlock := dev.ReadZone(5)
	// An inode number greater than ninodes (32): genuinely out of range.
	binary.LittleEndian.PutUint16(rootBlock[32:34], 40)
	copy(rootBlock[34:48], "dangling")
	dev.WriteZone(5, rootBlock)

	report, code := Run(dev, operator.Automatic{}, testLogger{}, Options{Automatic: true, Repair: true})

	if !report.Changed {
		t.Fatalf("expected the dangling entry to be repaired")
	}
	if code&ExitChanged == 0 {
		t.Fatalf("exit code %d missing the changed bit", code)
	}
	if report.Uncorrectable {
		t.Fatalf("did not expect an uncorrectable error from a clean automatic repair")
	}

	after := dev.ReadZone(5)
	if ino := binary.LittleEndian.Uint16(after[32:34]); ino != 0 {
		t.Fatalf("dangling entry's inode field = %d, want 0 after repair", ino)
	}
}

func TestRunReadOnlyNeverWrites(t *testing.T) {
	dev := fixtureV1(t, 16)

	itab := dev.ReadZone(4)
	root := decodeInodeV1(itab[0:32])
	root.ISize = 48
	copy(itab[0:32], root.Encode())
	dev.WriteZone(4, itab)

	rootBlock := dev.ReadZone(5)
	binary.LittleEndian.PutUint16(rootBlock[32:34], 40)
	copy(rootBlock[34:48], "dangling")
	dev.WriteZone(5, rootBlock)

	before := make([][]byte, len(dev.blocks))
	for i, b := range dev.blocks {
		before[i] = append([]byte(nil), b...)
	}

	_, code := Run(dev, operator.ReadOnly{}, testLogger{}, Options{List: true})

	if code&ExitUncorrectable == 0 {
		t.Fatalf("exit code %d missing the uncorrectable bit", code)
	}
	for i := range dev.blocks {
		if string(before[i]) != string(dev.blocks[i]) {
			t.Fatalf("read-only run modified block %d", i)
		}
	}
}

func TestRunWrongLinkCount(t *testing.T) {
	dev := fixtureV1(t, 16)
	sbBlock := dev.ReadZone(1)
	sb, _ := minix.ReadSuperblock(sbBlock)
	sb.SetValid(false)
	dev.WriteZone(1, sb.Encode())

	itab := dev.ReadZone(4)
	root := decodeInodeV1(itab[0:32])
	root.INlinks = 5
	copy(itab[0:32], root.Encode())
	dev.WriteZone(4, itab)

	report, code := Run(dev, operator.Automatic{}, testLogger{}, Options{Automatic: true, Repair: true, Force: true})

	if !report.Changed {
		t.Fatalf("expected the link count fix to register as a change")
	}
	if code&ExitChanged == 0 {
		t.Fatalf("exit code %d missing the changed bit", code)
	}

	after := decodeInodeV1(dev.ReadZone(4)[0:32])
	if after.Nlinks() != 2 {
		t.Fatalf("i_nlinks = %d, want 2 after reconciliation", after.Nlinks())
	}
}
