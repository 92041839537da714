// Package vcf provides a streaming Variant Call Format codec: a Reader that
// decodes records against the header declared at the top of the stream and a
// Writer that serializes records against a template header.
package vcf

import (
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
)

// Fixed column names of the #CHROM line.
var fixedColumns = []string{"#CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO"}

const formatColumn = "FORMAT"

// Type is the declared value type of an INFO or FORMAT field.
type Type uint8

const (
	InvalidType Type = iota
	Integer
	Float
	Flag
	Character
	String
)

func (t Type) String() string {
	switch t {
	case Integer:
		return "Integer"
	case Float:
		return "Float"
	case Flag:
		return "Flag"
	case Character:
		return "Character"
	case String:
		return "String"
	}
	return "Invalid"
}

func parseType(s string) (Type, bool) {
	switch s {
	case "Integer":
		return Integer, true
	case "Float":
		return Float, true
	case "Flag":
		return Flag, true
	case "Character":
		return Character, true
	case "String":
		return String, true
	}
	return InvalidType, false
}

// Number is a declared arity: a fixed count >= 0 or one of the symbolic
// sentinels below.
type Number int

const (
	NumberA         Number = -1 // one per alternate allele
	NumberR         Number = -2 // one per allele including the reference
	NumberG         Number = -3 // one per genotype
	NumberUnbounded Number = -4 // '.'
)

func (n Number) String() string {
	switch n {
	case NumberA:
		return "A"
	case NumberR:
		return "R"
	case NumberG:
		return "G"
	case NumberUnbounded:
		return "."
	}
	return strconv.Itoa(int(n))
}

func parseNumber(s string) (Number, bool) {
	switch s {
	case "A":
		return NumberA, true
	case "R":
		return NumberR, true
	case "G":
		return NumberG, true
	case ".":
		return NumberUnbounded, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return Number(n), true
}

// Arity is a Number resolved against one record. N < 0 means any count.
type Arity struct {
	N        int
	Advisory bool // mismatches are warnings rather than errors
}

// Unbounded accepts any element count.
var Unbounded = Arity{N: -1}

// Strict reports whether a count mismatch is fatal.
func (a Arity) Strict() bool { return a.N >= 0 && !a.Advisory }

// FieldDefinition declares one INFO or FORMAT key.
type FieldDefinition struct {
	ID          string
	Number      Number
	Type        Type
	Description string
}

func (d *FieldDefinition) scalar() bool {
	return d.Number == 0 || d.Number == 1
}

// Resolve computes the expected element count for a record with alts
// alternate alleles. ploidy is the sample's ploidy when known, else 0.
func (d *FieldDefinition) Resolve(alts, ploidy int) Arity {
	switch d.Number {
	case NumberA:
		return Arity{N: alts}
	case NumberR:
		return Arity{N: alts + 1}
	case NumberG:
		if ploidy <= 0 {
			return Unbounded
		}
		n, ok := genotypeCount(alts+1, ploidy)
		if !ok {
			return Unbounded
		}
		return Arity{N: n, Advisory: true}
	case NumberUnbounded:
		return Unbounded
	}
	return Arity{N: int(d.Number)}
}

// genotypeCount returns C(ploidy+alleles-1, ploidy). ok is false when the
// count does not fit in an int.
func genotypeCount(alleles, ploidy int) (int, bool) {
	n, k := ploidy+alleles-1, ploidy
	if k > n-k {
		k = n - k
	}
	// c holds C(n-k+i, i) after step i, so each division is exact.
	var c uint64 = 1
	for i := 1; i <= k; i++ {
		hi, lo := bits.Mul64(c, uint64(n-k+i))
		if hi != 0 {
			return 0, false
		}
		c = lo / uint64(i)
	}
	if c > math.MaxInt {
		return 0, false
	}
	return int(c), true
}

// MetaLine is one '##' header line. Raw is the line exactly as read.
type MetaLine struct {
	Key   string
	Value string
	Raw   string
}

// Contig is a declared ##contig. Length is 0 when not declared.
type Contig struct {
	ID     string
	Length int64
}

// Header is the parsed header block of a VCF stream. It is immutable once
// built and may be shared by any number of readers and writers.
type Header struct {
	Lines   []MetaLine
	Infos   map[string]*FieldDefinition
	Formats map[string]*FieldDefinition
	Filters map[string]string // id -> description
	Alts    map[string]string // id -> description
	Contigs map[string]Contig
	Samples []string
}

// NewHeader creates an empty header with no samples.
func NewHeader() *Header {
	return &Header{
		Infos:   make(map[string]*FieldDefinition),
		Formats: make(map[string]*FieldDefinition),
		Filters: make(map[string]string),
		Alts:    make(map[string]string),
		Contigs: make(map[string]Contig),
	}
}

// FileFormat returns the ##fileformat value, or "" if absent.
func (h *Header) FileFormat() string {
	if v := h.Metadata("fileformat"); len(v) > 0 {
		return v[0]
	}
	return ""
}

// Metadata returns the raw values of every meta line with the given key.
func (h *Header) Metadata(key string) []string {
	var out []string
	for _, l := range h.Lines {
		if l.Key == key {
			out = append(out, l.Value)
		}
	}
	return out
}

// SampleIndex returns the column index of a sample, or -1.
func (h *Header) SampleIndex(name string) int {
	for i, s := range h.Samples {
		if s == name {
			return i
		}
	}
	return -1
}

// ParseHeader builds a Header from header lines ending with the #CHROM line.
// Lines after #CHROM are ignored.
func ParseHeader(lines []string) (*Header, error) {
	b := newHeaderBuilder()
	for i, line := range lines {
		done, err := b.add(line)
		if err != nil {
			return nil, &HeaderError{Line: i + 1, Err: err}
		}
		if done {
			return b.h, nil
		}
	}
	return nil, &HeaderError{Line: len(lines), Err: ErrMissingColumnHeader}
}

type headerBuilder struct {
	h *Header
}

func newHeaderBuilder() *headerBuilder {
	return &headerBuilder{h: NewHeader()}
}

// add consumes one header line and reports whether it was the #CHROM line.
func (b *headerBuilder) add(line string) (bool, error) {
	switch {
	case strings.HasPrefix(line, "##"):
		return false, b.addMeta(line)
	case strings.HasPrefix(line, "#CHROM"):
		return true, b.addColumns(line)
	}
	return false, fmt.Errorf("%w: unexpected line before #CHROM", ErrMissingColumnHeader)
}

func (b *headerBuilder) addMeta(line string) error {
	key, value, ok := strings.Cut(line[2:], "=")
	if !ok || key == "" {
		return fmt.Errorf("%w: %q", ErrMalformedMeta, line)
	}
	b.h.Lines = append(b.h.Lines, MetaLine{Key: key, Value: value, Raw: line})

	switch key {
	case "INFO", "FORMAT", "FILTER", "ALT", "contig":
	default:
		return nil
	}

	attrs, err := parseStructured(value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedMeta, key, err)
	}
	id := attrs["ID"]
	if id == "" {
		return fmt.Errorf("%w: %s line without ID", ErrMalformedMeta, key)
	}

	switch key {
	case "INFO", "FORMAT":
		def, err := fieldDefinition(attrs)
		if err != nil {
			return fmt.Errorf("%w: %s %s: %v", ErrMalformedMeta, key, id, err)
		}
		defs := b.h.Infos
		if key == "FORMAT" {
			defs = b.h.Formats
		}
		if _, dup := defs[id]; dup {
			return fmt.Errorf("%w: %s %s", ErrDuplicateFieldID, key, id)
		}
		defs[id] = def
	case "FILTER":
		b.h.Filters[id] = attrs["Description"]
	case "ALT":
		b.h.Alts[id] = attrs["Description"]
	case "contig":
		c := Contig{ID: id}
		if l, ok := attrs["length"]; ok {
			n, err := strconv.ParseInt(l, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: contig %s length %q", ErrMalformedMeta, id, l)
			}
			c.Length = n
		}
		b.h.Contigs[id] = c
	}
	return nil
}

func fieldDefinition(attrs map[string]string) (*FieldDefinition, error) {
	num, ok := parseNumber(attrs["Number"])
	if !ok {
		return nil, fmt.Errorf("invalid Number %q", attrs["Number"])
	}
	typ, ok := parseType(attrs["Type"])
	if !ok {
		return nil, fmt.Errorf("invalid Type %q", attrs["Type"])
	}
	if typ == Flag && num != 0 {
		return nil, fmt.Errorf("type Flag requires Number=0, got %s", num)
	}
	return &FieldDefinition{
		ID:          attrs["ID"],
		Number:      num,
		Type:        typ,
		Description: attrs["Description"],
	}, nil
}

// parseStructured splits a <k=v,k="v, with commas",...> value.
func parseStructured(s string) (map[string]string, error) {
	if len(s) < 2 || s[0] != '<' || s[len(s)-1] != '>' {
		return nil, fmt.Errorf("expected <...>, got %q", s)
	}
	body := s[1 : len(s)-1]
	attrs := make(map[string]string)

	for len(body) > 0 {
		eq := strings.IndexByte(body, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("attribute without value in %q", s)
		}
		key := body[:eq]
		body = body[eq+1:]

		var val string
		if strings.HasPrefix(body, `"`) {
			end := closingQuote(body)
			if end < 0 {
				return nil, fmt.Errorf("unterminated quote in %q", s)
			}
			val = unescapeQuoted(body[1:end])
			body = body[end+1:]
		} else {
			comma := strings.IndexByte(body, ',')
			if comma < 0 {
				comma = len(body)
			}
			val = body[:comma]
			body = body[comma:]
		}
		attrs[key] = val

		if len(body) > 0 {
			if body[0] != ',' {
				return nil, fmt.Errorf("expected ',' after %s in %q", key, s)
			}
			body = body[1:]
		}
	}
	return attrs, nil
}

// closingQuote returns the index of the quote closing s[0], honouring
// backslash escapes.
func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

func unescapeQuoted(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func (b *headerBuilder) addColumns(line string) error {
	cols := strings.Split(line, "\t")
	if len(cols) < len(fixedColumns) {
		return fmt.Errorf("%w: #CHROM line has %d columns, want at least %d",
			ErrMalformedMeta, len(cols), len(fixedColumns))
	}
	for i, name := range fixedColumns {
		if cols[i] != name {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrMalformedMeta, i+1, cols[i], name)
		}
	}
	if len(cols) == len(fixedColumns) {
		return nil
	}
	if cols[len(fixedColumns)] != formatColumn {
		return fmt.Errorf("%w: column 9 is %q, want %q", ErrMalformedMeta, cols[len(fixedColumns)], formatColumn)
	}

	samples := cols[len(fixedColumns)+1:]
	seen := make(map[string]struct{}, len(samples))
	for _, s := range samples {
		if _, dup := seen[s]; dup {
			return fmt.Errorf("%w: duplicate sample %q", ErrMalformedMeta, s)
		}
		seen[s] = struct{}{}
	}
	b.h.Samples = samples
	return nil
}
