package transport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

const (
	// bgzfBlockData is the uncompressed payload per block; it keeps the
	// compressed block under the 64 KiB BSIZE limit.
	bgzfBlockData = 0xff00
	bgzfMaxBlock  = 1 << 16
)

// bgzfEOF is the empty block that terminates a BGZF file.
var bgzfEOF = []byte{
	0x1f, 0x8b, 0x08, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0x06, 0x00,
	0x42, 0x43, 0x02, 0x00, 0x1b, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

var errClosed = errors.New("bgzf: write to closed writer")

// BGZFWriter writes blocked gzip: independent gzip members of at most 64 KiB
// carrying the BC extra subfield, followed by an empty EOF block.
type BGZFWriter struct {
	w      io.Writer
	level  int
	buf    []byte
	block  bytes.Buffer
	closed bool
}

// NewBGZFWriter creates a BGZF writer at the default compression level.
func NewBGZFWriter(w io.Writer) *BGZFWriter {
	return &BGZFWriter{
		w:     w,
		level: gzip.DefaultCompression,
		buf:   make([]byte, 0, bgzfBlockData),
	}
}

// Write buffers p, emitting full blocks as they fill.
func (b *BGZFWriter) Write(p []byte) (int, error) {
	if b.closed {
		return 0, errClosed
	}
	n := len(p)
	for len(p) > 0 {
		room := bgzfBlockData - len(b.buf)
		if room > len(p) {
			room = len(p)
		}
		b.buf = append(b.buf, p[:room]...)
		p = p[room:]
		if len(b.buf) == bgzfBlockData {
			if err := b.writeBlock(b.buf); err != nil {
				return n - len(p), err
			}
			b.buf = b.buf[:0]
		}
	}
	return n, nil
}

// Flush writes any buffered data as a (short) block.
func (b *BGZFWriter) Flush() error {
	if b.closed {
		return errClosed
	}
	if len(b.buf) == 0 {
		return nil
	}
	err := b.writeBlock(b.buf)
	b.buf = b.buf[:0]
	return err
}

// Close flushes and appends the EOF block. It does not close the
// underlying writer.
func (b *BGZFWriter) Close() error {
	if b.closed {
		return nil
	}
	if err := b.Flush(); err != nil {
		return err
	}
	b.closed = true
	_, err := b.w.Write(bgzfEOF)
	return err
}

func (b *BGZFWriter) writeBlock(data []byte) error {
	b.block.Reset()
	zw, err := gzip.NewWriterLevel(&b.block, b.level)
	if err != nil {
		return err
	}
	// BSIZE is patched in once the compressed size is known.
	zw.Extra = []byte{'B', 'C', 2, 0, 0, 0}
	if _, err := zw.Write(data); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	block := b.block.Bytes()
	if len(block) > bgzfMaxBlock {
		return fmt.Errorf("bgzf: block of %d bytes exceeds limit", len(block))
	}
	// 10-byte gzip header, XLEN, then SI1 SI2 SLEN BSIZE.
	binary.LittleEndian.PutUint16(block[16:18], uint16(len(block)-1))
	_, err = b.w.Write(block)
	return err
}
