// Package transport opens VCF byte streams: plain or gzip/BGZF compressed
// input from a file or stdin, and plain or BGZF output to a file or stdout.
package transport

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// Open opens path for reading. "-" reads stdin. Gzip and BGZF input are
// detected by their magic bytes and decompressed.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return NewReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}

	rc, err := newReader(file, file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return rc, nil
}

// NewReader wraps r, decompressing it if it starts with the gzip magic
// number. Closing the result does not close r.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	return newReader(r, nil)
}

type readCloser struct {
	io.Reader
	gz   *gzip.Reader
	file io.Closer
}

func (rc *readCloser) Close() error {
	if rc.gz != nil {
		rc.gz.Close()
	}
	if rc.file != nil {
		return rc.file.Close()
	}
	return nil
}

func newReader(r io.Reader, closer io.Closer) (io.ReadCloser, error) {
	br := bufio.NewReader(r)

	// Check for gzip magic number (0x1f, 0x8b)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read vcf header: %w", err)
	}
	if len(magic) < 2 || magic[0] != 0x1f || magic[1] != 0x8b {
		return &readCloser{Reader: br, file: closer}, nil
	}

	// BGZF is a series of gzip members; multistream mode reads them all.
	gz, err := gzip.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	return &readCloser{Reader: gz, gz: gz, file: closer}, nil
}

// Create opens path for writing; "" or "-" writes to stdout, which is never
// closed. With compress set the output is BGZF.
func Create(path string, compress bool) (io.WriteCloser, error) {
	var (
		w      io.Writer = os.Stdout
		closer io.Closer
	)
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create output file: %w", err)
		}
		w, closer = f, f
	}

	if !compress {
		return &writeCloser{Writer: w, file: closer}, nil
	}
	bw := NewBGZFWriter(w)
	return &writeCloser{Writer: bw, bgzf: bw, file: closer}, nil
}

type writeCloser struct {
	io.Writer
	bgzf *BGZFWriter
	file io.Closer
}

func (wc *writeCloser) Close() error {
	if wc.bgzf != nil {
		if err := wc.bgzf.Close(); err != nil {
			if wc.file != nil {
				wc.file.Close()
			}
			return err
		}
	}
	if wc.file != nil {
		return wc.file.Close()
	}
	return nil
}
