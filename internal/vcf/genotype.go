package vcf

import (
	"strconv"
	"strings"
)

// Genotype is a parsed GT value. Missing alleles are -1.
type Genotype struct {
	Alleles []int
	Phased  bool
}

// ParseGenotype parses a GT string such as "0/1", "1|0" or "./.".
// Unparseable allele tokens are treated as missing.
func ParseGenotype(s string) Genotype {
	if s == "" {
		return Genotype{}
	}
	gt := Genotype{Phased: strings.IndexByte(s, '|') >= 0 && strings.IndexByte(s, '/') < 0}
	for _, tok := range strings.FieldsFunc(s, isAlleleSep) {
		a, err := strconv.Atoi(tok)
		if err != nil || a < 0 {
			a = -1
		}
		gt.Alleles = append(gt.Alleles, a)
	}
	return gt
}

func isAlleleSep(r rune) bool { return r == '/' || r == '|' }

// genotypePloidy counts the alleles of a raw GT token without allocating.
func genotypePloidy(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "/") + strings.Count(s, "|") + 1
}

// Ploidy is the number of alleles in the call.
func (g Genotype) Ploidy() int { return len(g.Alleles) }

// IsCalled reports whether every allele is called.
func (g Genotype) IsCalled() bool {
	if len(g.Alleles) == 0 {
		return false
	}
	for _, a := range g.Alleles {
		if a < 0 {
			return false
		}
	}
	return true
}

// IsHomRef reports a called genotype of reference alleles only.
func (g Genotype) IsHomRef() bool {
	if !g.IsCalled() {
		return false
	}
	for _, a := range g.Alleles {
		if a != 0 {
			return false
		}
	}
	return true
}

// IsHomAlt reports a called genotype of one repeated non-reference allele.
func (g Genotype) IsHomAlt() bool {
	if !g.IsCalled() || g.Alleles[0] == 0 {
		return false
	}
	for _, a := range g.Alleles[1:] {
		if a != g.Alleles[0] {
			return false
		}
	}
	return true
}

// IsHet reports a called genotype with at least two distinct alleles.
func (g Genotype) IsHet() bool {
	return g.IsCalled() && !g.IsHomRef() && !g.IsHomAlt()
}

func (g Genotype) String() string {
	if len(g.Alleles) == 0 {
		return "."
	}
	sep := byte('/')
	if g.Phased {
		sep = '|'
	}
	var b strings.Builder
	for i, a := range g.Alleles {
		if i > 0 {
			b.WriteByte(sep)
		}
		if a < 0 {
			b.WriteByte('.')
		} else {
			b.WriteString(strconv.Itoa(a))
		}
	}
	return b.String()
}
