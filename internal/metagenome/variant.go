// Package metagenome synchronizes the coordinates of a cohort of genomes
// against one reference so that every genome's variants can be placed on a
// shared axis, the meta-genome.
package metagenome

import "fmt"

// VariantType is the kind of a placed variant.
type VariantType uint8

const (
	Insertion VariantType = iota
	Deletion
	SNP
	Structural
	// Blank is padding that keeps a genome aligned with another genome's insertion.
	Blank
	// Mix is a merged cluster of variants, produced only when fitting to screen.
	Mix
	// Reference is a homozygous reference call.
	Reference
)

var variantTypeNames = [...]string{
	Insertion:  "INSERTION",
	Deletion:   "DELETION",
	SNP:        "SNP",
	Structural: "STRUCTURAL",
	Blank:      "BLANK",
	Mix:        "MIX",
	Reference:  "REFERENCE",
}

func (t VariantType) String() string {
	if int(t) < len(variantTypeNames) {
		return variantTypeNames[t]
	}
	return fmt.Sprintf("VariantType(%d)", t)
}

// ParseVariantType parses the upper-case name of a variant type.
func ParseVariantType(s string) (VariantType, error) {
	for i, name := range variantTypeNames {
		if name == s {
			return VariantType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown variant type %q", s)
}

// BiologicalTypes are the types read from genome files.
var BiologicalTypes = []VariantType{Insertion, Deletion, SNP, Structural, Reference}

// Call is the per-sample data behind a biological variant.
type Call struct {
	Filter   string            // FILTER column, "PASS" or "." when unfiltered
	Quality  float64           // QUAL column, 0 when missing
	Genotype string            // raw GT value
	Fields   map[string]string // FORMAT fields of the sample
}

// Variant is a variant placed on the meta-genome.
//
// Start and Stop are meta-genome coordinates of the half-open span
// [Start, Stop). For insertions Stop-Start equals Length and ExtraOffset holds
// the dead zone left by a longer insertion of another genome at the same
// reference position. Blank and Mix variants have a nil Call.
type Variant struct {
	Genome      string
	Chrom       string
	RefPos      int64
	Length      int64
	Type        VariantType
	Start       int64
	Stop        int64
	Allele      int
	ExtraOffset int64
	Call        *Call
}

// Quality returns the call quality and whether one is present.
func (v *Variant) Quality() (float64, bool) {
	if v.Call == nil {
		return 0, false
	}
	return v.Call.Quality, true
}

// Overlaps reports whether the variant intersects the closed window [start, stop].
func (v *Variant) Overlaps(start, stop int64) bool {
	return v.Stop > start && v.Start <= stop
}

// DeadZone returns the padding span that follows an insertion, if any.
func (v *Variant) DeadZone() (start, stop int64) {
	return v.Stop, v.Stop + v.ExtraOffset
}

func (v *Variant) String() string {
	return fmt.Sprintf("%s:%s:%d %s[%d,%d) allele=%d", v.Genome, v.Chrom, v.RefPos, v.Type, v.Start, v.Stop, v.Allele)
}
