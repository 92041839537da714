package vcf

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"strings"

	"go.uber.org/zap"
)

// Reader decodes records from a VCF text stream. The header is consumed by
// NewReader; each call to Next decodes one further line. A Reader is not safe
// for concurrent use.
type Reader struct {
	reader     *bufio.Reader
	header     *Header
	lineNumber int
	records    int
	err        error // sticky fatal error
	logger     *zap.Logger
	reported   map[string]struct{}
}

// NewReader reads the header block from r and returns a Reader positioned at
// the first record line. Decompression is the caller's concern.
func NewReader(r io.Reader) (*Reader, error) {
	vr := &Reader{
		reader:   bufio.NewReader(r),
		logger:   zap.NewNop(),
		reported: make(map[string]struct{}),
	}
	if err := vr.parseHeader(); err != nil {
		return nil, err
	}
	return vr, nil
}

// SetLogger sets the logger used to report record warnings.
func (r *Reader) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Header returns the header read from the stream.
func (r *Reader) Header() *Header {
	return r.header
}

// LineNumber returns the current line number being processed.
func (r *Reader) LineNumber() int {
	return r.lineNumber
}

// RecordCount returns the number of record lines consumed so far.
func (r *Reader) RecordCount() int {
	return r.records
}

// parseHeader reads lines up to and including #CHROM.
func (r *Reader) parseHeader() error {
	b := newHeaderBuilder()
	for {
		line, err := r.readLine()
		if err == io.EOF {
			return &HeaderError{Line: r.lineNumber, Err: ErrMissingColumnHeader}
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		if line == "" {
			continue
		}

		done, err := b.add(line)
		if err != nil {
			return &HeaderError{Line: r.lineNumber, Err: err}
		}
		if done {
			r.header = b.h
			return nil
		}
	}
}

// readLine returns the next line without its terminator. A final line with
// no newline is returned normally; io.EOF follows it.
func (r *Reader) readLine() (string, error) {
	line, err := r.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			r.lineNumber++
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	r.lineNumber++
	return strings.TrimRight(line, "\r\n"), nil
}

// NextLine returns the next non-empty record line undecoded, or io.EOF.
func (r *Reader) NextLine() (string, error) {
	if r.err != nil {
		return "", r.err
	}
	for {
		line, err := r.readLine()
		if err == io.EOF {
			return "", io.EOF
		}
		if err != nil {
			r.err = fmt.Errorf("read variant line: %w", err)
			return "", r.err
		}
		if line == "" {
			continue
		}
		r.records++
		return line, nil
	}
}

// Next reads the next record.
// Returns nil, nil when there are no more records. A fatal error ends the
// sequence: every later call returns the same error.
func (r *Reader) Next() (*Record, error) {
	line, err := r.NextLine()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec, err := Decode(r.header, line)
	if err != nil {
		r.err = &ParseError{Line: r.lineNumber, Record: r.records, Err: err}
		return nil, r.err
	}
	r.report(rec, r.lineNumber)
	return rec, nil
}

// All returns an iterator over the remaining records. Iteration stops after
// the first error, which is yielded with a nil record.
func (r *Reader) All() iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		for {
			rec, err := r.Next()
			if err != nil {
				yield(nil, err)
				return
			}
			if rec == nil {
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// report logs each distinct record warning once.
func (r *Reader) report(rec *Record, line int) {
	for _, w := range rec.Warnings {
		msg := w.Error()
		if _, seen := r.reported[msg]; seen {
			continue
		}
		r.reported[msg] = struct{}{}
		r.logger.Warn("recoverable vcf problem",
			zap.Int("line", line),
			zap.String("chrom", rec.Chrom),
			zap.Int64("pos", rec.Pos),
			zap.Error(w))
	}
}
