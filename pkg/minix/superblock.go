package minix

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// SuperblockOffset is the byte offset of the superblock block (block 1).
const SuperblockOffset = BlockSize

// rawSuperblockV1 is the first 20 bytes of every Minix superblock,
// regardless of variant, laid out bit-exact per spec.md §6.
type rawSuperblockV1 struct {
	Ninodes       uint16
	Nzones        uint16
	ImapBlocks    uint16
	ZmapBlocks    uint16
	Firstdatazone uint16
	LogZoneSize   uint16
	MaxSize       uint32
	Magic         uint16
	State         uint16
}

// Superblock is the in-memory, variant-normalized copy of a Minix
// superblock, along with the geometry derived from it.
type Superblock struct {
	Variant       Variant
	Inodes        uint32
	Zones         uint32
	ImapBlocks    uint32
	ZmapBlocks    uint32
	FirstZone     uint32
	NormFirstZone uint32
	LogZoneSize   uint16
	MaxSize       uint32
	Magic         uint16
	State         uint16

	// Stride and NameLen are not determined by the superblock; they are
	// filled in later by the table loader (component D) after it
	// inspects the root directory's first block.
	Stride  int
	NameLen int
}

// ErrCorrupt marks a fatal, uncheckable superblock defect: a bad magic
// number, an unsupported zone size, or bitmap geometry too small for the
// inode/zone counts it claims.
type ErrCorrupt struct {
	Reason string
}

func (e *ErrCorrupt) Error() string {
	return fmt.Sprintf("corrupt superblock: %s", e.Reason)
}

// ReadSuperblock decodes and validates the 1024-byte superblock block.
// It does not yet know the directory stride; the table loader in pkg/fsck
// (LoadTables) fills in Stride and NameLen from the root directory's
// first zone.
func ReadSuperblock(block []byte) (*Superblock, error) {

	if len(block) < BlockSize {
		return nil, &ErrCorrupt{Reason: "superblock block short read"}
	}

	r := bytes.NewReader(block)
	var raw rawSuperblockV1
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return nil, fmt.Errorf("decoding superblock: %w", err)
	}

	variant, ok := VariantForMagic(raw.Magic)
	if !ok {
		return nil, &ErrCorrupt{Reason: fmt.Sprintf("unrecognized magic number 0x%04x", raw.Magic)}
	}

	if raw.LogZoneSize != 0 {
		return nil, &ErrCorrupt{Reason: "only 1024-byte zones are supported (s_log_zone_size != 0)"}
	}

	sb := &Superblock{
		Variant:     variant,
		Inodes:      uint32(raw.Ninodes),
		ImapBlocks:  uint32(raw.ImapBlocks),
		ZmapBlocks:  uint32(raw.ZmapBlocks),
		FirstZone:   uint32(raw.Firstdatazone),
		LogZoneSize: raw.LogZoneSize,
		MaxSize:     raw.MaxSize,
		Magic:       raw.Magic,
		State:       raw.State,
		Zones:       uint32(raw.Nzones),
	}

	if variant == V2 {
		var zones32 uint32
		if err := binary.Read(r, binary.LittleEndian, &zones32); err != nil {
			return nil, fmt.Errorf("decoding v2 zone count: %w", err)
		}
		sb.Zones = zones32
	}

	inodeBlocks := divideUp(uint64(sb.Inodes), uint64(BlockSize/variant.InodeSize()))
	sb.NormFirstZone = 2 + sb.ImapBlocks + sb.ZmapBlocks + uint32(inodeBlocks)

	if uint64(sb.ImapBlocks)*BlockSize*8 < uint64(sb.Inodes)+1 {
		return nil, &ErrCorrupt{Reason: "bad s_imap_blocks field in super-block"}
	}
	if sb.Zones < sb.FirstZone {
		return nil, &ErrCorrupt{Reason: "s_firstdatazone exceeds total zone count"}
	}
	if uint64(sb.ZmapBlocks)*BlockSize*8 < uint64(sb.Zones-sb.FirstZone+1) {
		return nil, &ErrCorrupt{Reason: "bad s_zmap_blocks field in super-block"}
	}

	return sb, nil
}

// Encode serializes the superblock into a fresh 1024-byte block. Only the
// fields this type tracks are written; every other byte is zero-filled,
// not copied from the block the superblock was read from (on a
// well-formed image those bytes are zero anyway).
func (sb *Superblock) Encode() []byte {

	buf := new(bytes.Buffer)
	raw := rawSuperblockV1{
		Ninodes:       uint16(sb.Inodes),
		ImapBlocks:    uint16(sb.ImapBlocks),
		ZmapBlocks:    uint16(sb.ZmapBlocks),
		Firstdatazone: uint16(sb.FirstZone),
		LogZoneSize:   sb.LogZoneSize,
		MaxSize:       sb.MaxSize,
		Magic:         sb.Magic,
		State:         sb.State,
	}
	if sb.Variant == V1 {
		raw.Nzones = uint16(sb.Zones)
	}

	_ = binary.Write(buf, binary.LittleEndian, &raw)
	if sb.Variant == V2 {
		_ = binary.Write(buf, binary.LittleEndian, uint32(sb.Zones))
	}

	out := make([]byte, BlockSize)
	copy(out, buf.Bytes())
	return out
}

// SetValid sets VALID_FS and clears or sets ERROR_FS depending on whether
// the run ended with any uncorrectable error (component K).
func (sb *Superblock) SetValid(uncorrectable bool) {
	sb.State |= ValidFS
	if uncorrectable {
		sb.State |= ErrorFS
	} else {
		sb.State &^= ErrorFS
	}
}

// Clean reports whether the filesystem believes itself to be consistent:
// VALID_FS set and ERROR_FS clear.
func (sb *Superblock) Clean() bool {
	return sb.State&ValidFS != 0 && sb.State&ErrorFS == 0
}

func divideUp(a, b uint64) uint64 {
	return (a + b - 1) / b
}
