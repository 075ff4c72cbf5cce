package fsck

import (
	"fmt"

	"github.com/minixfs/mfsck/pkg/elog"
	"github.com/minixfs/mfsck/pkg/minix"
	"github.com/minixfs/mfsck/pkg/operator"
)

// Exit codes, bitwise-combined per spec.md §6.
const (
	ExitClean         = 0
	ExitChanged       = 3
	ExitUncorrectable = 4
	ExitFatal         = 8
	ExitUsage         = 16
)

// Report summarizes one completed run, for the CLI to render and for
// callers embedding this package (audit history, metrics) to consume.
type Report struct {
	Variant       minix.Variant
	Clean         bool
	Gated         bool
	Changed       bool
	Uncorrectable bool
	Directories   int
	Files         int
}

// Run performs one full check-and-repair pass over dev: parses the
// superblock, applies the boot gate, loads the in-memory tables, walks
// the directory tree, reconciles observed usage against the on-disk
// bitmaps, and writes back whatever the run's Options permit. It returns
// the completed Report and the exit code that summarizes it.
func Run(dev Device, op operator.Operator, log elog.Logger, opt Options) (Report, int) {

	sbBlock := dev.ReadZone(1)
	sb, err := minix.ReadSuperblock(sbBlock)
	if err != nil {
		log.Errorf("%v", err)
		return Report{}, ExitFatal
	}

	if sb.Clean() && !opt.Force {
		log.Printf("filesystem is clean, skipping check (use -f to force)")
		return Report{Variant: sb.Variant, Clean: true, Gated: true}, ExitClean
	}

	ctx := NewContext(dev, op, log, opt, sb)

	if err := LoadTables(ctx); err != nil {
		log.Errorf("%v", err)
		return Report{}, ExitFatal
	}

	rootIno := ctx.Itab.Get(minix.RootIno)
	if !minix.IsDir(rootIno.Mode()) {
		log.Errorf("root inode %d is not a directory", minix.RootIno)
		return Report{}, ExitFatal
	}

	if opt.Progress != nil && opt.Verbose && !opt.Interactive {
		ctx.Bar = opt.Progress.NewProgress("checking", int64(sb.Inodes))
	}

	checkZones(ctx, minix.RootIno, rootIno)
	RecursiveCheck(ctx, minix.RootIno)

	if ctx.Bar != nil {
		ctx.Bar.Finish(!ctx.Uncorrectable)
	}

	CheckCounts(ctx)

	if err := WriteBack(ctx); err != nil {
		log.Errorf("%v", err)
		return Report{}, ExitFatal
	}

	rpt := Report{
		Variant:       sb.Variant,
		Changed:       ctx.Changed,
		Uncorrectable: ctx.Uncorrectable,
		Directories:   ctx.NDirs,
		Files:         ctx.NFiles,
	}

	code := ExitClean
	if rpt.Changed {
		code += ExitChanged
	}
	if rpt.Uncorrectable {
		code += ExitUncorrectable
	}

	if opt.Verbose || opt.Show {
		log.Printf("%s", fmt.Sprintf("%d directory, %d file(s)", rpt.Directories, rpt.Files))
	}

	return rpt, code
}
