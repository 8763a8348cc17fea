package vcf

import (
	"fmt"
	"strconv"
	"strings"
)

// NoCall marks an allele written as "." in a genotype.
const NoCall = -1

// Genotype is a parsed GT value such as "0/1" or "1|0".
type Genotype struct {
	Alleles []int // allele indices, NoCall for "."
	Phased  bool
}

// ParseGenotype parses a genotype string of the form "a/b", "a|b" or a
// haploid "a", where each allele is an index or ".".
func ParseGenotype(s string) (Genotype, error) {
	if s == "" {
		return Genotype{}, fmt.Errorf("empty genotype")
	}

	sep := "/"
	phased := false
	if strings.Contains(s, "|") {
		sep = "|"
		phased = true
	}

	parts := strings.Split(s, sep)
	g := Genotype{Alleles: make([]int, len(parts)), Phased: phased}
	for i, p := range parts {
		if p == "." {
			g.Alleles[i] = NoCall
			continue
		}
		idx, err := strconv.Atoi(p)
		if err != nil || idx < 0 {
			return Genotype{}, fmt.Errorf("invalid genotype %q", s)
		}
		g.Alleles[i] = idx
	}
	return g, nil
}

// Allele returns the allele index carried by the given chromosome copy.
// Missing copies (haploid calls) report NoCall.
func (g Genotype) Allele(i int) int {
	if i < 0 || i >= len(g.Alleles) {
		return NoCall
	}
	return g.Alleles[i]
}

// IsNoCall reports whether every allele is ".".
func (g Genotype) IsNoCall() bool {
	for _, a := range g.Alleles {
		if a != NoCall {
			return false
		}
	}
	return true
}

// IsHomozygousReference reports whether every copy carries the reference allele.
func (g Genotype) IsHomozygousReference() bool {
	if len(g.Alleles) == 0 {
		return false
	}
	for _, a := range g.Alleles {
		if a != 0 {
			return false
		}
	}
	return true
}

func (g Genotype) String() string {
	sep := "/"
	if g.Phased {
		sep = "|"
	}
	parts := make([]string, len(g.Alleles))
	for i, a := range g.Alleles {
		if a == NoCall {
			parts[i] = "."
		} else {
			parts[i] = strconv.Itoa(a)
		}
	}
	return strings.Join(parts, sep)
}
