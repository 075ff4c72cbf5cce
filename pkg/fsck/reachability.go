package fsck

import (
	"github.com/minixfs/mfsck/pkg/minix"
)

// checkZones walks every zone reachable from ino (direct, single,
// double, and for v2 triple indirect) and runs addZone over each one
// found. It is invoked once per directory, immediately before that
// directory is recursed into, and once per regular file or symlink the
// first time it is encountered, so that reachability diagnostics always
// name the first inode to reach a zone.
func checkZones(ctx *Context, inoNum uint32, ino minix.Inode) {
	for i := 0; i < minix.DirectZones; i++ {
		slot := i
		addZone(ctx, ino.Zone(slot), func() {
			ino.SetZone(slot, 0)
			ctx.Itab.Put(inoNum, ino)
		})
	}

	fanOut := uint32(ctx.SB.Variant.IndirectFanOut())

	addZoneInd(ctx, ino.Zone(direct2slot(0)), fanOut, func() {
		ino.SetZone(direct2slot(0), 0)
		ctx.Itab.Put(inoNum, ino)
	})
	addZoneDind(ctx, ino.Zone(direct2slot(1)), fanOut, func() {
		ino.SetZone(direct2slot(1), 0)
		ctx.Itab.Put(inoNum, ino)
	})
	if ctx.SB.Variant == minix.V2 {
		addZoneTind(ctx, ino.Zone(direct2slot(2)), fanOut, func() {
			ino.SetZone(direct2slot(2), 0)
			ctx.Itab.Put(inoNum, ino)
		})
	}
}

// addZone validates z, flags multiply-referenced or unmarked-in-bitmap
// zones, and bumps the observed reference counter. clear is invoked if
// the operator agrees to drop the pointer entirely, whether because it
// was out of range or because the zone had already been claimed by an
// earlier inode; it is responsible for zeroing z at its actual storage
// location (an inode zone slot or an indirect block entry) and
// persisting that write.
//
// Declining to clear a duplicate reference does not stop the zone from
// being counted again here, matching the reference implementation's
// behavior of falling through to the in-use check and counter bump
// regardless of the operator's answer.
func addZone(ctx *Context, z uint32, clear func()) uint32 {
	z = checkZoneNr(ctx, z, "Clear zone pointer", clear)
	if z == 0 {
		return 0
	}

	if ctx.ZoneCount[z] != 0 {
		if ctx.Ask("Clear", true) {
			clear()
			z = 0
		}
	}
	if z == 0 {
		return 0
	}

	bit := z - ctx.SB.FirstZone + 1
	if !ctx.Zmap.Bit(bit) {
		if ctx.Ask("Correct", true) {
			ctx.Zmap.SetBit(bit)
		}
	}

	ctx.incSaturating(&ctx.ZoneCount[z])
	return z
}

func addZoneInd(ctx *Context, z uint32, fanOut uint32, clear func()) {
	z = checkZoneNr(ctx, z, "Clear indirect zone pointer", clear)
	if z == 0 {
		return
	}
	walkIndirectZones(ctx, z, func(entry uint32, setEntry func(uint32)) {
		addZone(ctx, entry, func() { setEntry(0) })
	})
}

func addZoneDind(ctx *Context, z uint32, fanOut uint32, clear func()) {
	z = checkZoneNr(ctx, z, "Clear double indirect zone pointer", clear)
	if z == 0 {
		return
	}
	walkIndirectZones(ctx, z, func(entry uint32, setEntry func(uint32)) {
		addZoneInd(ctx, entry, fanOut, func() { setEntry(0) })
	})
}

func addZoneTind(ctx *Context, z uint32, fanOut uint32, clear func()) {
	z = checkZoneNr(ctx, z, "Clear triple indirect zone pointer", clear)
	if z == 0 {
		return
	}
	walkIndirectZones(ctx, z, func(entry uint32, setEntry func(uint32)) {
		addZoneDind(ctx, entry, fanOut, func() { setEntry(0) })
	})
}

// walkIndirectZones reads indirect block z, invoking visit with each
// nonzero entry and a setter that rewrites that entry in place and
// writes the block back to the device immediately.
func walkIndirectZones(ctx *Context, z uint32, visit func(entry uint32, setEntry func(uint32))) {
	block := ctx.Dev.ReadZone(z)
	sz := zoneEntrySize(ctx)
	n := len(block) / sz
	dirty := false
	for i := 0; i < n; i++ {
		idx := uint32(i)
		entry := readZoneEntry(ctx, block, idx)
		if entry == 0 {
			continue
		}
		visit(entry, func(newVal uint32) {
			writeZoneEntry(ctx, block, idx, newVal)
			dirty = true
		})
	}
	if dirty {
		_ = ctx.Dev.WriteZone(z, block)
	}
}
