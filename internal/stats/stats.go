// Package stats summarizes a VCF record stream.
package stats

import (
	"fmt"
	"strings"

	"github.com/inodb/vibe-vcf/internal/vcf"
)

// ChromCount is the number of records seen on one chromosome.
type ChromCount struct {
	Chrom   string `yaml:"chrom"`
	Records int    `yaml:"records"`
}

// SampleSummary counts genotype calls for one sample.
type SampleSummary struct {
	Name    string `yaml:"name"`
	Called  int    `yaml:"called"`
	Missing int    `yaml:"missing"`
	HomRef  int    `yaml:"hom_ref"`
	Het     int    `yaml:"het"`
	HomAlt  int    `yaml:"hom_alt"`
}

// Summary accumulates counts over records. Chromosomes are listed in the
// order they are first seen.
type Summary struct {
	Records      int `yaml:"records"`
	SNPs         int `yaml:"snps"`
	MNPs         int `yaml:"mnps"`
	Indels       int `yaml:"indels"`
	SVs          int `yaml:"svs"`
	Other        int `yaml:"other"`
	MultiAllelic int `yaml:"multi_allelic"`
	WithID       int `yaml:"with_id"`

	Pass         int            `yaml:"pass"`
	Failed       int            `yaml:"failed"`
	NotEvaluated int            `yaml:"not_evaluated"`
	Filters      map[string]int `yaml:"filters,omitempty"`

	Transitions   int     `yaml:"transitions"`
	Transversions int     `yaml:"transversions"`
	TsTv          float64 `yaml:"ts_tv"`
	MeanQual      float64 `yaml:"mean_qual"`
	Warnings      int     `yaml:"warnings"`

	Chroms  []ChromCount    `yaml:"chroms"`
	Samples []SampleSummary `yaml:"samples,omitempty"`

	chromIndex map[string]int
	qualSum    float64
	qualN      int
}

// New creates an empty summary with one entry per sample in h.
func New(h *vcf.Header) *Summary {
	s := &Summary{
		Filters:    make(map[string]int),
		chromIndex: make(map[string]int),
	}
	for _, name := range h.Samples {
		s.Samples = append(s.Samples, SampleSummary{Name: name})
	}
	return s
}

// Add folds one record into the summary.
func (s *Summary) Add(rec *vcf.Record) {
	s.Records++

	switch rec.VariantType() {
	case "snp":
		s.SNPs++
		s.countSubstitutions(rec)
	case "mnp":
		s.MNPs++
	case "indel":
		s.Indels++
	case "sv":
		s.SVs++
	default:
		s.Other++
	}
	if len(rec.Alt) > 1 {
		s.MultiAllelic++
	}
	if len(rec.ID) > 0 {
		s.WithID++
	}

	switch rec.Filter.Status {
	case vcf.Pass:
		s.Pass++
	case vcf.Failed:
		s.Failed++
		for _, id := range rec.Filter.IDs {
			s.Filters[id]++
		}
	default:
		s.NotEvaluated++
	}

	if q, ok := rec.QualValue(); ok {
		s.qualSum += q
		s.qualN++
		s.MeanQual = s.qualSum / float64(s.qualN)
	}
	s.Warnings += len(rec.Warnings)

	i, ok := s.chromIndex[rec.Chrom]
	if !ok {
		i = len(s.Chroms)
		s.chromIndex[rec.Chrom] = i
		s.Chroms = append(s.Chroms, ChromCount{Chrom: rec.Chrom})
	}
	s.Chroms[i].Records++

	for j := range s.Samples {
		if j >= len(rec.Samples) {
			break
		}
		gt, ok := rec.Genotype(j)
		ss := &s.Samples[j]
		switch {
		case !ok || !gt.IsCalled():
			ss.Missing++
		case gt.IsHomRef():
			ss.Called++
			ss.HomRef++
		case gt.IsHomAlt():
			ss.Called++
			ss.HomAlt++
		default:
			ss.Called++
			ss.Het++
		}
	}
}

// countSubstitutions classifies each alternate allele of a SNP record.
func (s *Summary) countSubstitutions(rec *vcf.Record) {
	ref := strings.ToUpper(rec.Ref)
	for _, alt := range rec.Alt {
		alt = strings.ToUpper(alt)
		switch {
		case ref == "N" || alt == "N":
		case isTransition(ref, alt):
			s.Transitions++
		default:
			s.Transversions++
		}
	}
	if s.Transversions > 0 {
		s.TsTv = float64(s.Transitions) / float64(s.Transversions)
	}
}

func isTransition(ref, alt string) bool {
	switch ref + alt {
	case "AG", "GA", "CT", "TC":
		return true
	}
	return false
}

// Collect reads every record from r into a new summary.
func Collect(r vcf.RecordReader) (*Summary, error) {
	s := New(r.Header())
	for {
		rec, err := r.Next()
		if err != nil {
			return s, fmt.Errorf("collect stats: %w", err)
		}
		if rec == nil {
			return s, nil
		}
		s.Add(rec)
	}
}
