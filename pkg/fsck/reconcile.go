package fsck

// CheckCounts reconciles the counters built up during traversal against
// the on-disk inode and zone bitmaps, and against each inode's stored
// i_nlinks, offering a repair for every mismatch.
func CheckCounts(ctx *Context) {
	checkInodeCounts(ctx)
	checkZoneCounts(ctx)
}

func checkInodeCounts(ctx *Context) {
	for ino := uint32(1); ino <= ctx.SB.Inodes; ino++ {
		n := ctx.Itab.Get(ino)
		inUse := ctx.Imap.Bit(ino)
		observed := ctx.InodeCount[ino]

		if !inUse && n.Mode() != 0 && ctx.Opt.WarnMode {
			if ctx.Ask("Clear", true) {
				n.SetMode(0)
				ctx.Itab.Put(ino, n)
			}
		}

		if observed == 0 {
			if !inUse {
				continue
			}
			if ctx.Ask("Clear", true) {
				ctx.Imap.ClrBit(ino)
			}
			continue
		}
		if !inUse {
			if ctx.Ask("Set", true) {
				ctx.Imap.SetBit(ino)
			}
		}

		if uint32(n.Nlinks()) != uint32(observed) {
			if ctx.Ask("Set i_nlinks to count", true) {
				n.SetNlinks(uint32(observed))
				ctx.Itab.Put(ino, n)
			}
		}
	}
}

func checkZoneCounts(ctx *Context) {
	for z := ctx.SB.FirstZone; z < ctx.SB.Zones; z++ {
		bit := z - ctx.SB.FirstZone + 1
		inUse := ctx.Zmap.Bit(bit)
		observed := ctx.ZoneCount[z] != 0

		if ctx.Opt.Metrics != nil {
			ctx.Opt.Metrics.IncZonesReconciled()
		}

		if inUse == observed {
			continue
		}

		if !observed {
			if ctx.Dev.Probe(z) {
				if ctx.Ask("Unmark", true) {
					ctx.Zmap.ClrBit(bit)
				}
			}
			continue
		}

		ctx.Log.Warnf("zone %d: allocation bitmap disagrees with observed usage", z)
		ctx.Uncorrectable = true
	}
}
