package fsck

import (
	"github.com/minixfs/mfsck/pkg/minix"
)

const firstMapBlk = 2

// LoadTables reads the inode bitmap, zone bitmap, and inode table off the
// device (they sit back-to-back starting at block 2), zeros the observed
// counter arrays, and derives the directory stride from the root
// directory's first data block. It must run after the superblock has
// been parsed and before any traversal.
func LoadTables(ctx *Context) error {

	sb := ctx.SB

	imapBuf := ctx.readBlocks(firstMapBlk, sb.ImapBlocks)
	zmapBuf := ctx.readBlocks(firstMapBlk+sb.ImapBlocks, sb.ZmapBlocks)

	inodeBlocks := uint32(divideUp(uint64(sb.Inodes), uint64(minix.BlockSize/sb.Variant.InodeSize())))
	itabStart := firstMapBlk + sb.ImapBlocks + sb.ZmapBlocks
	itabBuf := ctx.readBlocks(itabStart, inodeBlocks)

	ctx.Imap = minix.NewBitmap(imapBuf, &ctx.Changed)
	ctx.Zmap = minix.NewBitmap(zmapBuf, &ctx.Changed)
	ctx.Itab = minix.LoadInodeTable(sb.Variant, itabBuf, sb.Inodes)

	ctx.InodeCount = make([]uint8, sb.Inodes+1)
	ctx.ZoneCount = make([]uint8, sb.Zones)

	sb.Stride, sb.NameLen = deriveStride(ctx, sb)

	if sb.FirstZone != sb.NormFirstZone {
		ctx.Log.Warnf("first data zone is %d, expected %d computed from bitmap and inode table sizes", sb.FirstZone, sb.NormFirstZone)
		ctx.Uncorrectable = true
	}

	return nil
}

// readBlocks reads n contiguous blocks starting at nr into one buffer.
func (ctx *Context) readBlocks(nr, n uint32) []byte {
	buf := make([]byte, 0, int(n)*minix.BlockSize)
	for i := uint32(0); i < n; i++ {
		buf = append(buf, ctx.Dev.ReadZone(nr+i)...)
	}
	return buf
}

// deriveStride inspects the root directory's first zone for the ".."
// entry at candidate offsets 16, 32, 64, ... and infers the directory
// entry stride (and therefore name length) from whichever offset first
// matches. Falling through without a match defaults to stride 16 / 14,
// the classic Minix v1 layout.
func deriveStride(ctx *Context, sb *minix.Superblock) (stride int, namelen int) {

	root := ctx.Itab.Get(minix.RootIno)
	firstZone := root.Zone(0)
	if firstZone == 0 || firstZone < sb.FirstZone || firstZone >= sb.Zones {
		return 16, 14
	}

	block := ctx.Dev.ReadZone(firstZone)
	for size := 16; size < minix.BlockSize; size <<= 1 {
		off := size + 2
		if off+2 >= len(block) {
			break
		}
		if block[off] == '.' && block[off+1] == '.' && block[off+2] == 0 {
			return size, size - 2
		}
	}
	return 16, 14
}

func divideUp(a, b uint64) uint64 {
	return (a + b - 1) / b
}
