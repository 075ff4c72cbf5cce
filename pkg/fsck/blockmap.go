package fsck

import (
	"encoding/binary"

	"github.com/minixfs/mfsck/pkg/minix"
)

// checkZoneNr validates a zone-number field read from an inode or
// indirect block. A nonzero value outside [FirstZone, Zones) is offered
// for clearing; on a "yes" answer, clear (if non-nil) is invoked so the
// caller can persist the zeroed field at its actual storage location.
// An out-of-range value yields 0 whatever the answer, so callers never
// use it as a zone number.
func checkZoneNr(ctx *Context, z uint32, question string, clear func()) uint32 {
	if z == 0 {
		return 0
	}
	if z < ctx.SB.FirstZone || z >= ctx.SB.Zones {
		if ctx.Ask(question, true) {
			if clear != nil {
				clear()
			}
		}
		return 0
	}
	return z
}

// direct2slot maps indirection level (0=single,1=double,2=triple) to the
// zone-array slot index, which is always DirectZones+level.
func direct2slot(level int) int {
	return minix.DirectZones + level
}

// resolveZone maps inoNum's logical block index n to a physical zone
// number, descending through direct, single, double, and (v2 only)
// triple indirection as needed. A correction to one of the inode's own
// zone-array slots (a direct zone, or the head of an indirect chain) is
// written back into the in-memory inode table immediately; corrections
// inside indirect blocks are written back to the device immediately, per
// the resolver's inline-write contract.
func resolveZone(ctx *Context, inoNum uint32, ino minix.Inode, n uint32) uint32 {
	direct := uint32(minix.DirectZones)
	fanOut := uint32(ctx.SB.Variant.IndirectFanOut())

	if n < direct {
		slot := int(n)
		z := checkZoneNr(ctx, ino.Zone(slot), "Clear zone pointer", func() {
			ino.SetZone(slot, 0)
			ctx.Itab.Put(inoNum, ino)
		})
		return z
	}
	n -= direct

	if n < fanOut {
		return resolveTopLevel(ctx, inoNum, ino, direct2slot(0), func(z uint32) uint32 {
			return resolveIndirect(ctx, z, n)
		})
	}
	n -= fanOut

	if n < fanOut*fanOut {
		return resolveTopLevel(ctx, inoNum, ino, direct2slot(1), func(z uint32) uint32 {
			return resolveDoubleIndirect(ctx, z, n, fanOut)
		})
	}
	n -= fanOut * fanOut

	if ctx.SB.Variant == minix.V2 && n < fanOut*fanOut*fanOut {
		return resolveTopLevel(ctx, inoNum, ino, direct2slot(2), func(z uint32) uint32 {
			return resolveTripleIndirect(ctx, z, n, fanOut)
		})
	}

	return 0
}

// resolveTopLevel validates the inode's top-level pointer for one
// indirection level, persists a correction to that slot if checkZoneNr
// cleared it, and otherwise descends via walk.
func resolveTopLevel(ctx *Context, inoNum uint32, ino minix.Inode, slot int, walk func(uint32) uint32) uint32 {
	fixed := checkZoneNr(ctx, ino.Zone(slot), "Clear indirect zone pointer", func() {
		ino.SetZone(slot, 0)
		ctx.Itab.Put(inoNum, ino)
	})
	if fixed == 0 {
		return 0
	}
	return walk(fixed)
}

func zoneEntrySize(ctx *Context) int {
	if ctx.SB.Variant == minix.V2 {
		return 4
	}
	return 2
}

func readZoneEntry(ctx *Context, block []byte, idx uint32) uint32 {
	sz := zoneEntrySize(ctx)
	off := int(idx) * sz
	if sz == 4 {
		return binary.LittleEndian.Uint32(block[off : off+4])
	}
	return uint32(binary.LittleEndian.Uint16(block[off : off+2]))
}

func writeZoneEntry(ctx *Context, block []byte, idx uint32, z uint32) {
	sz := zoneEntrySize(ctx)
	off := int(idx) * sz
	if sz == 4 {
		binary.LittleEndian.PutUint32(block[off:off+4], z)
		return
	}
	binary.LittleEndian.PutUint16(block[off:off+2], uint16(z))
}

func resolveIndirect(ctx *Context, indZone uint32, n uint32) uint32 {
	block := ctx.Dev.ReadZone(indZone)
	z := readZoneEntry(ctx, block, n)
	fixed := checkZoneNr(ctx, z, "Clear zone pointer", func() {
		writeZoneEntry(ctx, block, n, 0)
		_ = ctx.Dev.WriteZone(indZone, block)
	})
	return fixed
}

func resolveDoubleIndirect(ctx *Context, dindZone uint32, n uint32, fanOut uint32) uint32 {
	block := ctx.Dev.ReadZone(dindZone)
	slot := n / fanOut
	rest := n % fanOut

	indZone := readZoneEntry(ctx, block, slot)
	fixedInd := checkZoneNr(ctx, indZone, "Clear indirect zone pointer", func() {
		writeZoneEntry(ctx, block, slot, 0)
		_ = ctx.Dev.WriteZone(dindZone, block)
	})
	if fixedInd == 0 {
		return 0
	}
	return resolveIndirect(ctx, fixedInd, rest)
}

func resolveTripleIndirect(ctx *Context, tindZone uint32, n uint32, fanOut uint32) uint32 {
	block := ctx.Dev.ReadZone(tindZone)
	slot := n / (fanOut * fanOut)
	rest := n % (fanOut * fanOut)

	dindZone := readZoneEntry(ctx, block, slot)
	fixedDind := checkZoneNr(ctx, dindZone, "Clear double indirect zone pointer", func() {
		writeZoneEntry(ctx, block, slot, 0)
		_ = ctx.Dev.WriteZone(tindZone, block)
	})
	if fixedDind == 0 {
		return 0
	}
	return resolveDoubleIndirect(ctx, fixedDind, rest, fanOut)
}
