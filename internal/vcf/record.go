package vcf

import "strings"

// Field is one key/value pair of an INFO column or sample column.
type Field struct {
	Key   string
	Value Value
}

// Fields is an insertion-ordered mapping of keys to values.
type Fields []Field

// Get returns the value stored under key.
func (f Fields) Get(key string) (Value, bool) {
	for _, kv := range f {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return Value{}, false
}

// Has reports whether key is present.
func (f Fields) Has(key string) bool {
	_, ok := f.Get(key)
	return ok
}

// Set replaces the value for key in place, or appends it.
func (f *Fields) Set(key string, v Value) {
	for i := range *f {
		if (*f)[i].Key == key {
			(*f)[i].Value = v
			return
		}
	}
	*f = append(*f, Field{Key: key, Value: v})
}

// Keys returns the keys in insertion order.
func (f Fields) Keys() []string {
	keys := make([]string, len(f))
	for i, kv := range f {
		keys[i] = kv.Key
	}
	return keys
}

// FilterStatus distinguishes the three states of a FILTER column.
type FilterStatus uint8

const (
	NotEvaluated FilterStatus = iota // '.'
	Pass                             // PASS
	Failed                           // one or more filter ids
)

// Filter is a decoded FILTER column. IDs is set only when Status is Failed.
type Filter struct {
	Status FilterStatus
	IDs    []string
}

// FailedFilter builds a Failed filter from the given ids.
func FailedFilter(ids ...string) Filter {
	return Filter{Status: Failed, IDs: ids}
}

func (f Filter) String() string {
	switch f.Status {
	case Pass:
		return "PASS"
	case Failed:
		if len(f.IDs) > 0 {
			return strings.Join(f.IDs, ";")
		}
	}
	return "."
}

// Record is one decoded variant line.
type Record struct {
	Chrom  string
	Pos    int64 // 1-based
	ID     []string
	Ref    string
	Alt    []string
	Qual   *float64
	Filter Filter
	Info   Fields

	// Format lists the FORMAT keys of this line in column order. Samples has
	// one entry per header sample, keyed in Format order.
	Format  []string
	Samples []Fields

	// Warnings holds recoverable decode conditions.
	Warnings []error
}

// QualValue returns QUAL and whether it is set.
func (r *Record) QualValue() (float64, bool) {
	if r.Qual == nil {
		return 0, false
	}
	return *r.Qual, true
}

// SetQual sets QUAL.
func (r *Record) SetQual(q float64) {
	r.Qual = &q
}

// IsPassing reports whether FILTER is PASS or not evaluated.
func (r *Record) IsPassing() bool {
	return r.Filter.Status != Failed
}

// IsSNP returns true if the reference and every alternate allele are single bases.
func (r *Record) IsSNP() bool {
	if len(r.Ref) != 1 || len(r.Alt) == 0 {
		return false
	}
	for _, a := range r.Alt {
		if len(a) != 1 || !isBase(a) {
			return false
		}
	}
	return true
}

// IsMNP returns true for equal-length multi-base substitutions.
func (r *Record) IsMNP() bool {
	if len(r.Ref) < 2 || len(r.Alt) == 0 {
		return false
	}
	for _, a := range r.Alt {
		if len(a) != len(r.Ref) || !isBase(a) {
			return false
		}
	}
	return true
}

// IsIndel returns true if any alternate allele changes the sequence length.
func (r *Record) IsIndel() bool {
	for _, a := range r.Alt {
		if isBase(a) && len(a) != len(r.Ref) {
			return true
		}
	}
	return false
}

// IsSV returns true if any alternate allele is symbolic or a breakend.
func (r *Record) IsSV() bool {
	for _, a := range r.Alt {
		if strings.ContainsAny(a, "<>[]") {
			return true
		}
	}
	return false
}

// IsTransition reports whether a biallelic SNP is a purine/purine or
// pyrimidine/pyrimidine change.
func (r *Record) IsTransition() bool {
	if !r.IsSNP() || len(r.Alt) != 1 {
		return false
	}
	pair := strings.ToUpper(r.Ref + r.Alt[0])
	switch pair {
	case "AG", "GA", "CT", "TC":
		return true
	}
	return false
}

// VariantType classifies the record as snp, mnp, indel, sv or other.
func (r *Record) VariantType() string {
	switch {
	case r.IsSNP():
		return "snp"
	case r.IsMNP():
		return "mnp"
	case r.IsIndel():
		return "indel"
	case r.IsSV():
		return "sv"
	}
	return "other"
}

// End returns the last reference position covered, taken from INFO END when
// present.
func (r *Record) End() int64 {
	if v, ok := r.Info.Get("END"); ok {
		if end, ok := v.Int(); ok {
			return end
		}
	}
	return r.Pos + int64(len(r.Ref)) - 1
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func (r *Record) NormalizeChrom() string {
	if len(r.Chrom) > 3 && r.Chrom[:3] == "chr" {
		return r.Chrom[3:]
	}
	return r.Chrom
}

// Genotype parses the GT of sample i. ok is false when the sample has no GT.
func (r *Record) Genotype(i int) (Genotype, bool) {
	if i < 0 || i >= len(r.Samples) {
		return Genotype{}, false
	}
	v, ok := r.Samples[i].Get("GT")
	if !ok {
		return Genotype{}, false
	}
	s, ok := v.Str()
	if !ok {
		return Genotype{}, false
	}
	return ParseGenotype(s), true
}

// NumCalled counts samples with a fully called genotype.
func (r *Record) NumCalled() int {
	n := 0
	for i := range r.Samples {
		if gt, ok := r.Genotype(i); ok && gt.IsCalled() {
			n++
		}
	}
	return n
}

// CallRate is the fraction of samples with a called genotype.
func (r *Record) CallRate() float64 {
	if len(r.Samples) == 0 {
		return 0
	}
	return float64(r.NumCalled()) / float64(len(r.Samples))
}

// AlleleFrequencies returns the frequency of each alternate allele among the
// called alleles of all samples.
func (r *Record) AlleleFrequencies() []float64 {
	counts := make([]int, len(r.Alt)+1)
	total := 0
	for i := range r.Samples {
		gt, ok := r.Genotype(i)
		if !ok {
			continue
		}
		for _, a := range gt.Alleles {
			if a >= 0 && a < len(counts) {
				counts[a]++
				total++
			}
		}
	}
	freqs := make([]float64, len(r.Alt))
	if total == 0 {
		return freqs
	}
	for i := range freqs {
		freqs[i] = float64(counts[i+1]) / float64(total)
	}
	return freqs
}

func isBase(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'A', 'C', 'G', 'T', 'N', 'a', 'c', 'g', 't', 'n':
		default:
			return false
		}
	}
	return len(s) > 0
}
