package vcf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Writer serializes records against a template header. The template fixes
// the sample columns; records are never used to derive them.
type Writer struct {
	w      *bufio.Writer
	header *Header
}

// NewWriter creates a Writer bound to template.
func NewWriter(w io.Writer, template *Header) (*Writer, error) {
	if template == nil {
		return nil, ErrNoTemplate
	}
	return &Writer{
		w:      bufio.NewWriter(w),
		header: template,
	}, nil
}

// Header returns the template header.
func (vw *Writer) Header() *Header {
	return vw.header
}

// WriteHeader writes the template's meta lines verbatim followed by the
// #CHROM line.
func (vw *Writer) WriteHeader() error {
	_, err := vw.w.WriteString(FormatHeader(vw.header))
	return err
}

// Write writes one record line. Nothing is written if the record cannot be
// encoded.
func (vw *Writer) Write(rec *Record) error {
	line, err := FormatRecord(vw.header, rec)
	if err != nil {
		return err
	}
	_, err = vw.w.WriteString(line)
	return err
}

// Flush flushes buffered output to the underlying writer.
func (vw *Writer) Flush() error {
	return vw.w.Flush()
}

// FormatHeader renders the header block, newline-terminated.
func FormatHeader(h *Header) string {
	var b strings.Builder
	for _, l := range h.Lines {
		b.WriteString(l.Raw)
		b.WriteByte('\n')
	}
	b.WriteString(ColumnHeader(h))
	b.WriteByte('\n')
	return b.String()
}

// ColumnHeader renders the #CHROM line from the header's sample list.
func ColumnHeader(h *Header) string {
	line := strings.Join(fixedColumns, "\t")
	if len(h.Samples) == 0 {
		return line
	}
	return line + "\t" + formatColumn + "\t" + strings.Join(h.Samples, "\t")
}

// FormatRecord renders rec as a newline-terminated line under h.
func FormatRecord(h *Header, rec *Record) (string, error) {
	if len(rec.Samples) != len(h.Samples) {
		return "", fmt.Errorf("%w: record has %d samples, header has %d",
			ErrSampleCountMismatch, len(rec.Samples), len(h.Samples))
	}
	if rec.Filter.Status == Failed && len(rec.Filter.IDs) == 0 {
		return "", fmt.Errorf("%w: %s:%d", ErrEmptyFilter, rec.Chrom, rec.Pos)
	}

	var lb strings.Builder
	lb.Grow(256)

	lb.WriteString(rec.Chrom)
	lb.WriteByte('\t')
	lb.WriteString(strconv.FormatInt(rec.Pos, 10))
	lb.WriteByte('\t')
	writeList(&lb, rec.ID, ";")
	lb.WriteByte('\t')
	writeOrDot(&lb, rec.Ref)
	lb.WriteByte('\t')
	writeList(&lb, rec.Alt, ",")
	lb.WriteByte('\t')
	if rec.Qual != nil {
		lb.WriteString(formatFloat(*rec.Qual))
	} else {
		lb.WriteByte('.')
	}
	lb.WriteByte('\t')
	lb.WriteString(rec.Filter.String())
	lb.WriteByte('\t')
	writeInfo(&lb, rec.Info)

	if len(h.Samples) > 0 {
		lb.WriteByte('\t')
		writeList(&lb, rec.Format, ":")
		for _, sample := range rec.Samples {
			lb.WriteByte('\t')
			writeSample(&lb, rec.Format, sample)
		}
	}

	lb.WriteByte('\n')
	return lb.String(), nil
}

func writeOrDot(b *strings.Builder, s string) {
	if s == "" {
		b.WriteByte('.')
		return
	}
	b.WriteString(s)
}

func writeList(b *strings.Builder, items []string, sep string) {
	if len(items) == 0 {
		b.WriteByte('.')
		return
	}
	for i, s := range items {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(s)
	}
}

func writeInfo(b *strings.Builder, info Fields) {
	if len(info) == 0 {
		b.WriteByte('.')
		return
	}
	for i, kv := range info {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(kv.Key)
		if kv.Value.Kind() == KindFlag {
			continue
		}
		b.WriteByte('=')
		b.WriteString(EncodeValue(kv.Value))
	}
}

func writeSample(b *strings.Builder, format []string, sample Fields) {
	if len(format) == 0 {
		b.WriteByte('.')
		return
	}
	for i, key := range format {
		if i > 0 {
			b.WriteByte(':')
		}
		v, _ := sample.Get(key)
		b.WriteString(EncodeValue(v))
	}
}
