package fsck

import (
	"bytes"
	"encoding/binary"

	"github.com/minixfs/mfsck/pkg/minix"
)

// DirEntry is one decoded directory entry: an inode number and a name,
// trimmed of its NUL padding.
type DirEntry struct {
	Ino  uint32
	Name string
}

// readDirEntry decodes the entry at logical byte offset within dir's
// content. It resolves the containing physical block through the
// block-map resolver on every call rather than caching across calls,
// since a sibling entry earlier in the same pass may have rewritten the
// block in place.
func readDirEntry(ctx *Context, dirIno uint32, dir minix.Inode, offset uint32) DirEntry {
	stride := ctx.SB.Stride
	blockIdx := offset / uint32(minix.BlockSize)
	within := offset % uint32(minix.BlockSize)

	zone := resolveZone(ctx, dirIno, dir, blockIdx)
	block := ctx.Dev.ReadZone(zone)

	raw := block[within : within+uint32(stride)]
	ino := binary.LittleEndian.Uint16(raw[:2])
	name := bytes.TrimRight(raw[2:], "\x00")

	return DirEntry{Ino: uint32(ino), Name: string(name)}
}

// clearDirEntry zeroes the entry at offset (inode number 0, blank name)
// and writes the containing block back immediately.
func clearDirEntry(ctx *Context, dirIno uint32, dir minix.Inode, offset uint32) {
	stride := ctx.SB.Stride
	blockIdx := offset / uint32(minix.BlockSize)
	within := offset % uint32(minix.BlockSize)

	zone := resolveZone(ctx, dirIno, dir, blockIdx)
	if zone == 0 {
		return
	}
	block := ctx.Dev.ReadZone(zone)
	for i := 0; i < stride; i++ {
		block[int(within)+i] = 0
	}
	_ = ctx.Dev.WriteZone(zone, block)
}
