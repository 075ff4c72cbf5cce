package device

import (
	"bufio"
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// compression identifies a transparent front-end codec detected from an
// image's leading bytes.
type compression int

const (
	compressionNone compression = iota
	compressionGzip
	compressionXZ
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	xzMagic   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

func sniff(path string) (compression, error) {
	f, err := os.Open(path)
	if err != nil {
		return compressionNone, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	head := make([]byte, 6)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return compressionNone, fmt.Errorf("reading image header: %w", err)
	}
	head = head[:n]

	if len(head) >= 2 && head[0] == gzipMagic[0] && head[1] == gzipMagic[1] {
		return compressionGzip, nil
	}
	if len(head) >= 6 && string(head) == string(xzMagic) {
		return compressionXZ, nil
	}
	return compressionNone, nil
}

// OpenImage opens path for checking, transparently decompressing it into
// a private temp file first if it is gzip- or xz-compressed. The returned
// Device always sees a flat, seekable Minix image; the caller must call
// Close when done, which removes the temp file (if any) and, when the
// image was opened read-write, recompresses the result back over the
// original path using the codec it was read with.
func OpenImage(path string, readOnly bool, uncorrectable *bool) (*Device, func() error, error) {

	codec, err := sniff(path)
	if err != nil {
		return nil, nil, err
	}

	if codec == compressionNone {
		dev, err := Open(path, readOnly, uncorrectable)
		if err != nil {
			return nil, nil, err
		}
		return dev, func() error { return nil }, nil
	}

	tmp, err := ioutil.TempFile("", "mfsck-image-*.img")
	if err != nil {
		return nil, nil, fmt.Errorf("creating scratch image: %w", err)
	}
	tmpPath := tmp.Name()

	if err := decompressInto(path, codec, tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, nil, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, nil, fmt.Errorf("flushing scratch image: %w", err)
	}

	dev, err := Open(tmpPath, readOnly, uncorrectable)
	if err != nil {
		os.Remove(tmpPath)
		return nil, nil, err
	}

	closer := func() error {
		closeErr := dev.Close()
		defer os.Remove(tmpPath)
		if readOnly {
			return closeErr
		}
		if rerr := recompressFrom(tmpPath, codec, path); rerr != nil {
			if closeErr != nil {
				return closeErr
			}
			return rerr
		}
		return closeErr
	}

	return dev, closer, nil
}

func decompressInto(path string, codec compression, dst io.Writer) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening compressed image: %w", err)
	}
	defer src.Close()

	br := bufio.NewReader(src)

	var r io.Reader
	switch codec {
	case compressionGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("opening gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	case compressionXZ:
		xr, err := xz.NewReader(br)
		if err != nil {
			return fmt.Errorf("opening xz stream: %w", err)
		}
		r = xr
	default:
		return fmt.Errorf("decompressInto: unknown codec %d", codec)
	}

	if _, err := io.Copy(dst, r); err != nil {
		return fmt.Errorf("decompressing image: %w", err)
	}
	return nil
}

func recompressFrom(tmpPath string, codec compression, dst string) error {
	src, err := os.Open(tmpPath)
	if err != nil {
		return fmt.Errorf("reopening scratch image: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating recompressed image: %w", err)
	}
	defer out.Close()

	bw := bufio.NewWriter(out)

	switch codec {
	case compressionGzip:
		gz := gzip.NewWriter(bw)
		if _, err := io.Copy(gz, src); err != nil {
			return fmt.Errorf("recompressing image: %w", err)
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("closing gzip stream: %w", err)
		}
	case compressionXZ:
		xw, err := xz.NewWriter(bw)
		if err != nil {
			return fmt.Errorf("opening xz writer: %w", err)
		}
		if _, err := io.Copy(xw, src); err != nil {
			return fmt.Errorf("recompressing image: %w", err)
		}
		if err := xw.Close(); err != nil {
			return fmt.Errorf("closing xz stream: %w", err)
		}
	default:
		return fmt.Errorf("recompressFrom: unknown codec %d", codec)
	}

	return bw.Flush()
}
