// Package minix defines the on-disk data model of a Minix v1/v2
// filesystem: the superblock, the two inode layouts, and the byte-addressed
// bitmaps that track inode and zone allocation. Nothing in this package
// touches a device directly; pkg/device owns positioned I/O and pkg/fsck
// owns the consistency-checking logic built on top of these types.
package minix

// BlockSize is the only block size this checker understands. A superblock
// advertising any other log-zone-size is a fatal, uncheckable input.
const BlockSize = 1024

// RootIno is the inode number of the filesystem root.
const RootIno = 1

// MaxNameDepth bounds the name stack used for diagnostic path rendering.
// Exceeding it truncates the rendered path; it never aborts traversal.
const MaxNameDepth = 50

// Superblock state flags (spec.md "State flags").
const (
	ValidFS uint16 = 0x0001
	ErrorFS uint16 = 0x0002
)

// Superblock magic numbers, keyed by variant and directory-entry stride.
const (
	MagicV1      uint16 = 0x137F
	MagicV1_30   uint16 = 0x138F
	MagicV2      uint16 = 0x2468
	MagicV2_30   uint16 = 0x2478
)

// Variant identifies which on-disk inode/zone layout a filesystem uses.
type Variant int

const (
	// V1 is the original Minix layout: 32-byte inodes, 16-bit zone
	// numbers, 9 zone slots (7 direct, single, double indirect).
	V1 Variant = iota
	// V2 is the Minix 2/3 layout: 64-byte inodes, 32-bit zone numbers,
	// 10 zone slots (7 direct, single, double, triple indirect).
	V2
)

func (v Variant) String() string {
	if v == V2 {
		return "v2"
	}
	return "v1"
}

// InodeSize returns the on-disk size of one inode record for the variant.
func (v Variant) InodeSize() int {
	if v == V2 {
		return 64
	}
	return 32
}

// IndirectFanOut returns how many zone-number entries fit in one indirect
// block: BlockSize/2 for v1's 16-bit zone numbers, BlockSize/4 for v2's
// 32-bit zone numbers.
func (v Variant) IndirectFanOut() int {
	if v == V2 {
		return BlockSize / 4
	}
	return BlockSize / 2
}

// DirectZones is the number of direct zone slots preceding the indirect
// ones; both variants agree on 7.
const DirectZones = 7

// NumZoneSlots returns the total length of an inode's zone array.
func (v Variant) NumZoneSlots() int {
	if v == V2 {
		return 10
	}
	return 9
}

// VariantForMagic classifies a superblock magic number, returning the
// variant and whether it was recognized at all.
func VariantForMagic(magic uint16) (Variant, bool) {
	switch magic {
	case MagicV1, MagicV1_30:
		return V1, true
	case MagicV2, MagicV2_30:
		return V2, true
	default:
		return V1, false
	}
}
