package fsck

// WriteBack flushes the superblock and, if anything changed during the
// run, the inode bitmap, zone bitmap, and inode table as well. The
// superblock's state flag is always brought up to date: VALID_FS set,
// ERROR_FS set iff the run recorded an uncorrectable error.
//
// When the checker ran read-only (Opt.List, or no repair flag at all),
// nothing is written regardless of Changed, matching the boot-gate and
// read-only contract: a plain run only ever reports.
func WriteBack(ctx *Context) error {
	if ctx.Opt.List || !ctx.Opt.Repair {
		return nil
	}

	ctx.SB.SetValid(ctx.Uncorrectable)

	if err := writeSuperblock(ctx); err != nil {
		return err
	}

	if !ctx.Changed {
		return nil
	}

	if err := writeBlocks(ctx, firstMapBlk, ctx.Imap.Bytes()); err != nil {
		return err
	}
	if err := writeBlocks(ctx, firstMapBlk+ctx.SB.ImapBlocks, ctx.Zmap.Bytes()); err != nil {
		return err
	}
	itabStart := firstMapBlk + ctx.SB.ImapBlocks + ctx.SB.ZmapBlocks
	if err := writeBlocks(ctx, itabStart, ctx.Itab.Bytes()); err != nil {
		return err
	}

	return nil
}

func writeSuperblock(ctx *Context) error {
	return ctx.Dev.WriteZone(superBlockNr, ctx.SB.Encode())
}

const superBlockNr = 1

func writeBlocks(ctx *Context, start uint32, buf []byte) error {
	for i := 0; i*1024 < len(buf); i++ {
		block := buf[i*1024 : min1024(i*1024+1024, len(buf))]
		padded := make([]byte, 1024)
		copy(padded, block)
		if err := ctx.Dev.WriteZone(start+uint32(i), padded); err != nil {
			return err
		}
	}
	return nil
}

func min1024(a, b int) int {
	if a < b {
		return a
	}
	return b
}
