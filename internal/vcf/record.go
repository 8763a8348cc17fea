package vcf

import (
	"strings"
)

// Variant is a single VCF data line with all its alternate alleles and sample columns.
type Variant struct {
	Chrom   string     // Chromosome name (e.g., "12", "chr12")
	Pos     int64      // 1-based genomic position
	ID      string     // Variant identifier (e.g., rs ID)
	Ref     string     // Reference allele
	Alt     string     // Alternate alleles, comma separated as in the file
	Qual    float64    // Quality score, 0 when missing
	Filter  string     // Filter status (PASS, "." or filter names)
	Info    string     // Raw INFO column
	Format  []string   // FORMAT keys
	Samples [][]string // per-sample values, aligned with Format
}

// Kind classifies a single alternate allele against the reference allele.
type Kind int

const (
	KindSNV Kind = iota
	KindInsertion
	KindDeletion
	KindSymbolic
	KindMissing
)

func (k Kind) String() string {
	switch k {
	case KindSNV:
		return "SNV"
	case KindInsertion:
		return "INS"
	case KindDeletion:
		return "DEL"
	case KindSymbolic:
		return "SYMBOLIC"
	default:
		return "MISSING"
	}
}

// Alts returns the alternate alleles in file order.
func (v *Variant) Alts() []string {
	if v.Alt == "" || v.Alt == "." {
		return nil
	}
	return strings.Split(v.Alt, ",")
}

// AltAllele returns the alternate allele for a 1-based genotype index.
func (v *Variant) AltAllele(index int) (string, bool) {
	alts := v.Alts()
	if index < 1 || index > len(alts) {
		return "", false
	}
	return alts[index-1], true
}

// Classify returns the kind of an alternate allele and its signed length:
// positive for inserted bases, negative for deleted bases, 0 for substitutions.
// Symbolic alleles (<DEL>, breakends) report a length of 0; callers resolve
// them through the INFO column.
func Classify(ref, alt string) (Kind, int64) {
	switch {
	case alt == "" || alt == "." || alt == "*":
		return KindMissing, 0
	case strings.HasPrefix(alt, "<") || strings.ContainsAny(alt, "[]"):
		return KindSymbolic, 0
	case len(alt) > len(ref):
		return KindInsertion, int64(len(alt) - len(ref))
	case len(alt) < len(ref):
		return KindDeletion, -int64(len(ref) - len(alt))
	default:
		return KindSNV, 0
	}
}

// IsPass reports whether the record passed all filters.
func (v *Variant) IsPass() bool {
	return v.Filter == "PASS" || v.Filter == "."
}

// NumSamples returns the number of sample columns.
func (v *Variant) NumSamples() int {
	return len(v.Samples)
}

// SampleField returns a FORMAT value for a sample, or "" when absent.
func (v *Variant) SampleField(sample int, key string) string {
	if sample < 0 || sample >= len(v.Samples) {
		return ""
	}
	values := v.Samples[sample]
	for i, k := range v.Format {
		if k == key {
			if i < len(values) {
				return values[i]
			}
			return ""
		}
	}
	return ""
}

// SampleFields returns all FORMAT values of a sample keyed by FORMAT key.
func (v *Variant) SampleFields(sample int) map[string]string {
	if sample < 0 || sample >= len(v.Samples) {
		return nil
	}
	values := v.Samples[sample]
	fields := make(map[string]string, len(v.Format))
	for i, k := range v.Format {
		if i < len(values) {
			fields[k] = values[i]
		}
	}
	return fields
}

// Genotype parses the GT field of a sample.
func (v *Variant) Genotype(sample int) (Genotype, error) {
	return ParseGenotype(v.SampleField(sample, "GT"))
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func (v *Variant) NormalizeChrom() string {
	if len(v.Chrom) > 3 && v.Chrom[:3] == "chr" {
		return v.Chrom[3:]
	}
	return v.Chrom
}
