package vcf

// RecordReader is the pull interface consumed by tooling built on the
// record stream. *Reader implements it.
type RecordReader interface {
	// Next reads the next record.
	// Returns nil, nil when there are no more records.
	Next() (*Record, error)

	// Header returns the stream's header.
	Header() *Header

	// LineNumber returns the current line number being processed.
	LineNumber() int
}

// RecordWriter is the sink side. *Writer implements it.
type RecordWriter interface {
	WriteHeader() error
	Write(rec *Record) error
	Flush() error
}
