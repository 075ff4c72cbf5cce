// Package fsck implements the consistency-checking and repair engine for
// a Minix v1/v2 filesystem image: geometry loading, zone reachability,
// directory traversal, reconciliation against the on-disk bitmaps, and
// write-back. Everything in this package is single-threaded and
// synchronous, operating over one open device for the duration of a run.
package fsck

import (
	"github.com/minixfs/mfsck/pkg/elog"
	"github.com/minixfs/mfsck/pkg/minix"
	"github.com/minixfs/mfsck/pkg/operator"
)

// Device is the positioned block I/O surface the checker needs. It is
// satisfied by *device.Device; declared here so this package does not
// import pkg/device, keeping the dependency arrow pointing outward.
type Device interface {
	ReadZone(nr uint32) []byte
	WriteZone(nr uint32, buf []byte) error
	Probe(nr uint32) bool
	NumBlocks() uint32
}

// Metrics is the counter surface the checker reports run events to. It is
// satisfied by *metrics.Collectors; declared here so this package does not
// import pkg/metrics. A nil Metrics is valid and every call site guards
// against it, so callers that don't care about metrics pass nothing.
type Metrics interface {
	IncInodesChecked()
	IncZonesReconciled()
	IncRepairsApplied()
	IncErrorsFound()
}

// Options carries the flag bundle a caller supplies for one run.
type Options struct {
	Repair      bool // -a or -r: some form of repair is enabled
	Automatic   bool // -a: apply operator defaults without prompting
	Interactive bool // interactive prompting is in play; suppresses the progress bar
	Verbose     bool // -v
	Show        bool // -s
	WarnMode    bool // -m: warn about inodes not in use whose mode was never cleared
	List        bool // -l: read-only listing, no repair offered at all
	Force       bool // -f: check even if the superblock claims clean

	// Metrics, if non-nil, receives per-event counts as the run progresses.
	Metrics Metrics
	// Progress, if non-nil and Verbose and not Interactive, is used to
	// build a bar tracking inodes visited during traversal.
	Progress elog.ProgressReporter
}

// Context is the mutable state threaded through one checking run: the
// geometry and in-memory tables loaded from the image, the observed
// counters rebuilt by traversal, and the two sticky run-level flags
// (Changed, Uncorrectable) that every component can raise but never
// clears mid-run.
type Context struct {
	Dev Device
	Op  operator.Operator
	Log elog.Logger
	Opt Options

	SB    *minix.Superblock
	Imap  *minix.Bitmap
	Zmap  *minix.Bitmap
	Itab  *minix.InodeTable

	// InodeCount[i] is the number of directory entries observed
	// referencing inode i so far, saturating at 255. Index 0 is unused.
	InodeCount []uint8
	// ZoneCount[z] is the number of times zone z has been reached,
	// saturating at 255. Indexed directly by zone number.
	ZoneCount []uint8

	Names *NameStack
	Bar   elog.Progress

	Changed       bool
	Uncorrectable bool

	NDirs  int
	NFiles int
}

// NewContext builds a Context around an already-open device and loaded
// superblock; bitmaps, the inode table, and the counter arrays are filled
// in by LoadTables.
func NewContext(dev Device, op operator.Operator, log elog.Logger, opt Options, sb *minix.Superblock) *Context {
	return &Context{
		Dev:   dev,
		Op:    op,
		Log:   log,
		Opt:   opt,
		SB:    sb,
		Names: NewNameStack(),
	}
}

// Ask consults the operator and, if it answers no, raises Uncorrectable.
// Every repair prompt in this package goes through Ask rather than
// calling ctx.Op.Ask directly, so that rule is enforced in one place.
func (ctx *Context) Ask(question string, def bool) bool {
	answer := ctx.Op.Ask(question, def)
	if ctx.Opt.Metrics != nil {
		ctx.Opt.Metrics.IncErrorsFound()
	}
	if !answer {
		ctx.Uncorrectable = true
	} else {
		ctx.Changed = true
		if ctx.Opt.Metrics != nil {
			ctx.Opt.Metrics.IncRepairsApplied()
		}
	}
	return answer
}

// incSaturating increments *c, raising Uncorrectable instead of
// wrapping once the counter has already saturated at 255.
func (ctx *Context) incSaturating(c *uint8) {
	if *c == 255 {
		ctx.Uncorrectable = true
		return
	}
	*c++
}
