// Package device provides positioned block I/O over a Minix filesystem
// image, plus a transparent compressed-image front end. The core checker
// in pkg/fsck only ever calls ReadZone/WriteZone; it never touches an
// *os.File directly.
package device

import (
	"fmt"
	"io"
	"os"

	"github.com/minixfs/mfsck/pkg/minix"
)

// Device is a positioned, fixed-block-size view of a filesystem image.
// It does not know about inodes, zones as allocation units, or bitmaps;
// it only knows how to move fixed-size blocks in and out of an
// io.ReaderAt/io.WriterAt at a given block number.
type Device struct {
	f           *os.File
	readOnly    bool
	numBlocks   uint32
	uncorrectable *bool
}

// Open opens path for the run. When readOnly is true, WriteZone is a
// silent no-op (list-only / -l runs never touch the device).
func Open(path string, readOnly bool, uncorrectable *bool) (*Device, error) {
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("opening device: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("statting device: %w", err)
	}
	return &Device{
		f:             f,
		readOnly:      readOnly,
		numBlocks:     uint32(info.Size() / minix.BlockSize),
		uncorrectable: uncorrectable,
	}, nil
}

// Close releases the underlying file descriptor.
func (d *Device) Close() error {
	return d.f.Close()
}

// NumBlocks reports the size of the image in 1024-byte blocks, as
// observed from the file's length at open time.
func (d *Device) NumBlocks() uint32 {
	return d.numBlocks
}

func (d *Device) raise() {
	if d.uncorrectable != nil {
		*d.uncorrectable = true
	}
}

// ReadZone reads block nr into a freshly allocated 1024-byte buffer. Zone
// 0 reads as all-zero without touching the device. Any short read, whether from a hard I/O error or simply running
// past the end of the image, zero-fills the remainder and raises the
// uncorrectable flag, so the caller proceeds as if the block were a hole.
func (d *Device) ReadZone(nr uint32) []byte {
	buf := make([]byte, minix.BlockSize)
	if nr == 0 {
		return buf
	}
	n, _ := d.f.ReadAt(buf, int64(nr)*minix.BlockSize)
	if n < minix.BlockSize {
		d.raise()
		for i := n; i < minix.BlockSize; i++ {
			buf[i] = 0
		}
	}
	return buf
}

// WriteZone writes buf (which must be exactly 1024 bytes) to block nr.
// Writes to zone 0, writes on a read-only device, and writes past the end
// of the image are silently dropped and raise the uncorrectable flag.
// Writes that fail at the I/O layer are reported via the returned error
// but are not retried.
func (d *Device) WriteZone(nr uint32, buf []byte) error {
	if nr == 0 || nr >= d.numBlocks {
		d.raise()
		return nil
	}
	if d.readOnly {
		d.raise()
		return nil
	}
	if len(buf) != minix.BlockSize {
		return fmt.Errorf("write_block: buffer is %d bytes, want %d", len(buf), minix.BlockSize)
	}
	_, err := d.f.WriteAt(buf, int64(nr)*minix.BlockSize)
	if err != nil {
		return fmt.Errorf("writing block %d: %w", nr, err)
	}
	return nil
}

// Probe performs a read-only reachability check of block nr, used by the
// zone-reconciliation pass to distinguish a genuinely unreferenced zone
// from one that the underlying media has already retired. I/O errors are
// swallowed here: a bad block is reported as unreachable, not fatal.
func (d *Device) Probe(nr uint32) bool {
	if nr == 0 || nr >= d.numBlocks {
		return false
	}
	buf := make([]byte, minix.BlockSize)
	_, err := d.f.ReadAt(buf, int64(nr)*minix.BlockSize)
	return err == nil || err == io.EOF
}
