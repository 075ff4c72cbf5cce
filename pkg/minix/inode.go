package minix

import (
	"bytes"
	"encoding/binary"
)

// Mode bits this checker cares about when classifying an inode (the
// permission bits themselves are opaque and passed through unchanged).
const (
	ModeFmt   uint16 = 0170000
	ModeDir   uint16 = 0040000
	ModeReg   uint16 = 0100000
	ModeChr   uint16 = 0020000
	ModeBlk   uint16 = 0060000
	ModeLnk   uint16 = 0120000
	ModeSock  uint16 = 0140000
	ModeFifo  uint16 = 0010000
)

// Inode is the variant-independent view of one inode record that the
// checker operates on. Both InodeV1 and InodeV2 implement it so that the
// block-map resolver (component G) and reachability pass (component H)
// need not branch on variant.
type Inode interface {
	Mode() uint16
	SetMode(uint16)
	Nlinks() uint32
	SetNlinks(uint32)
	Size() uint32
	NumZones() int
	Zone(i int) uint32
	SetZone(i int, z uint32)
	Encode() []byte
}

// IsDir, IsReg, IsLnk classify an inode's mode field.
func IsDir(mode uint16) bool  { return mode&ModeFmt == ModeDir }
func IsReg(mode uint16) bool  { return mode&ModeFmt == ModeReg }
func IsLnk(mode uint16) bool  { return mode&ModeFmt == ModeLnk }
func IsChr(mode uint16) bool  { return mode&ModeFmt == ModeChr }
func IsBlk(mode uint16) bool  { return mode&ModeFmt == ModeBlk }
func IsSock(mode uint16) bool { return mode&ModeFmt == ModeSock }
func IsFifo(mode uint16) bool { return mode&ModeFmt == ModeFifo }

// InodeV1 is the 32-byte Minix v1 on-disk inode layout.
type InodeV1 struct {
	IMode   uint16
	IUid    uint16
	ISize   uint32
	IMtime  uint32
	IGid    uint8
	INlinks uint8
	IZone   [9]uint16
}

func (n *InodeV1) Mode() uint16        { return n.IMode }
func (n *InodeV1) SetMode(m uint16)    { n.IMode = m }
func (n *InodeV1) Nlinks() uint32      { return uint32(n.INlinks) }
func (n *InodeV1) SetNlinks(c uint32)  { n.INlinks = uint8(c) }
func (n *InodeV1) Size() uint32        { return n.ISize }
func (n *InodeV1) NumZones() int       { return len(n.IZone) }
func (n *InodeV1) Zone(i int) uint32   { return uint32(n.IZone[i]) }
func (n *InodeV1) SetZone(i int, z uint32) { n.IZone[i] = uint16(z) }

func (n *InodeV1) Encode() []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, n)
	return buf.Bytes()
}

func decodeInodeV1(raw []byte) *InodeV1 {
	n := new(InodeV1)
	_ = binary.Read(bytes.NewReader(raw), binary.LittleEndian, n)
	return n
}

// InodeV2 is the 64-byte Minix v2/v3 on-disk inode layout.
type InodeV2 struct {
	IMode   uint16
	INlinks uint16
	IUid    uint16
	IGid    uint16
	ISize   uint32
	IAtime  uint32
	IMtime  uint32
	ICtime  uint32
	IZone   [10]uint32
}

func (n *InodeV2) Mode() uint16        { return n.IMode }
func (n *InodeV2) SetMode(m uint16)    { n.IMode = m }
func (n *InodeV2) Nlinks() uint32      { return uint32(n.INlinks) }
func (n *InodeV2) SetNlinks(c uint32)  { n.INlinks = uint16(c) }
func (n *InodeV2) Size() uint32        { return n.ISize }
func (n *InodeV2) NumZones() int       { return len(n.IZone) }
func (n *InodeV2) Zone(i int) uint32   { return n.IZone[i] }
func (n *InodeV2) SetZone(i int, z uint32) { n.IZone[i] = z }

func (n *InodeV2) Encode() []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, n)
	return buf.Bytes()
}

func decodeInodeV2(raw []byte) *InodeV2 {
	n := new(InodeV2)
	_ = binary.Read(bytes.NewReader(raw), binary.LittleEndian, n)
	return n
}

// InodeTable holds the full on-disk inode array in memory, indexed by
// inode number (1-based; inode 1 is the first record in the buffer, and
// there is no record for inode 0).
type InodeTable struct {
	variant Variant
	raw     []byte
	count   uint32
}

// LoadInodeTable slices raw into one Inode view per inode. raw must be at
// least count*inodeSize bytes (callers pad with the tail of the last
// inode-table block, as read off disk).
func LoadInodeTable(variant Variant, raw []byte, count uint32) *InodeTable {
	return &InodeTable{variant: variant, raw: raw, count: count}
}

func (t *InodeTable) offset(ino uint32) int {
	return int(ino-1) * t.variant.InodeSize()
}

// Get decodes inode number ino (1-based). Callers are responsible for
// range-checking ino against the inode count first.
func (t *InodeTable) Get(ino uint32) Inode {
	off := t.offset(ino)
	sz := t.variant.InodeSize()
	raw := t.raw[off : off+sz]
	if t.variant == V2 {
		return decodeInodeV2(raw)
	}
	return decodeInodeV1(raw)
}

// Put re-encodes an inode back into the table buffer in place.
func (t *InodeTable) Put(ino uint32, n Inode) {
	off := t.offset(ino)
	copy(t.raw[off:off+t.variant.InodeSize()], n.Encode())
}

// Bytes returns the raw table buffer, for write-back.
func (t *InodeTable) Bytes() []byte {
	return t.raw
}
