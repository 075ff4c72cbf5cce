package fsck

import (
	"github.com/minixfs/mfsck/pkg/minix"
)

// RecursiveCheck walks the directory tree rooted at inoNum, validating
// every entry and tallying inode reference counts as it goes. The root
// call is always minix.RootIno.
func RecursiveCheck(ctx *Context, inoNum uint32) {
	ino := ctx.Itab.Get(inoNum)

	if !minix.IsDir(ino.Mode()) {
		ctx.Log.Errorf("inode %d is not a directory", inoNum)
		return
	}
	if ino.Size() < uint32(2*ctx.SB.Stride) {
		ctx.Log.Warnf("directory inode %d is too small (size %d)", inoNum, ino.Size())
		ctx.Uncorrectable = true
		return
	}

	ctx.NDirs++

	for offset := uint32(0); offset < ino.Size(); offset += uint32(ctx.SB.Stride) {
		checkFile(ctx, inoNum, ino, offset)
	}
}

// checkFile validates and, if needed, repairs the directory entry at
// offset within dir, fetches the referenced inode, validates "." and
// ".." where applicable, and recurses into subdirectories.
func checkFile(ctx *Context, dirIno uint32, dir minix.Inode, offset uint32) {
	entry := readDirEntry(ctx, dirIno, dir, offset)

	if entry.Ino == 0 {
		return
	}
	if entry.Ino > ctx.SB.Inodes {
		if ctx.Ask("Remove", true) {
			clearDirEntry(ctx, dirIno, dir, offset)
		}
		return
	}

	ctx.Names.Push(entry.Name)
	defer ctx.Names.Pop()

	child := getInode(ctx, entry.Ino)

	if offset == 0 && entry.Name != "." {
		ctx.Log.Warnf("%s: first entry is not '.'", ctx.Names.Path())
		ctx.Uncorrectable = true
	}
	if offset == uint32(ctx.SB.Stride) && entry.Name != ".." {
		ctx.Log.Warnf("%s: second entry is not '..'", ctx.Names.Path())
		ctx.Uncorrectable = true
	}

	if child == nil {
		return
	}

	if minix.IsDir(child.Mode()) && entry.Name != "." && entry.Name != ".." {
		if ctx.InodeCount[entry.Ino] == 1 {
			checkZones(ctx, entry.Ino, child)
		}
		RecursiveCheck(ctx, entry.Ino)
	}
}

// getInode fetches and classifies inode ino, bumping its observed
// reference count and reconciling the allocation bitmap's in-use bit
// against that observation. It returns nil if ino is out of range.
func getInode(ctx *Context, ino uint32) minix.Inode {
	if ino == 0 || ino > ctx.SB.Inodes {
		return nil
	}

	ctx.incSaturating(&ctx.InodeCount[ino])

	if ctx.Opt.Metrics != nil {
		ctx.Opt.Metrics.IncInodesChecked()
	}
	if ctx.Bar != nil {
		ctx.Bar.Increment(1)
	}

	n := ctx.Itab.Get(ino)

	if !ctx.Imap.Bit(ino) {
		if ctx.Ask("Mark in use", true) {
			ctx.Imap.SetBit(ino)
		}
	}

	switch {
	case minix.IsReg(n.Mode()), minix.IsLnk(n.Mode()):
		if ctx.InodeCount[ino] == 1 {
			checkZones(ctx, ino, n)
			ctx.NFiles++
		}
	case minix.IsDir(n.Mode()):
		// zone reachability for directories runs from checkFile right
		// before recursion, not here, so it happens exactly once per
		// directory regardless of how many hard links reach it.
	default:
		if ctx.InodeCount[ino] == 1 {
			ctx.NFiles++
		}
	}

	return n
}
