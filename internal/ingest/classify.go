// Package ingest turns VCF records into per-genome observations and loads
// them into a metagenome project.
package ingest

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/metagenome/internal/metagenome"
	"github.com/inodb/metagenome/internal/vcf"
)

// ErrSkipped marks a record or sample that could not be classified.
var ErrSkipped = errors.New("record skipped")

// Record is one observation of one genome.
type Record struct {
	Genome string
	Obs    metagenome.Observation
}

// Classifier converts VCF records into observations. Each sample column is
// a genome; a sites-only file contributes a single genome whose variants
// sit on the first allele.
type Classifier struct {
	samples    []string
	siteGenome string
	logger     *zap.Logger
}

// NewClassifier creates a classifier for the sample columns of a file.
// siteGenome names the genome of a file without sample columns.
func NewClassifier(samples []string, siteGenome string) *Classifier {
	return &Classifier{
		samples:    samples,
		siteGenome: siteGenome,
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger for warning and info messages.
func (c *Classifier) SetLogger(l *zap.Logger) {
	c.logger = l
}

// Genomes returns the genomes this classifier produces records for.
func (c *Classifier) Genomes() []string {
	if len(c.samples) == 0 {
		return []string{c.siteGenome}
	}
	return append([]string(nil), c.samples...)
}

// Classify returns the observations carried by a record. Samples that
// cannot be read are skipped with a warning; the returned error is
// non-nil only when nothing could be read from a record that should have
// produced something.
func (c *Classifier) Classify(v *vcf.Variant) ([]Record, error) {
	chrom := v.NormalizeChrom()

	if len(c.samples) == 0 {
		obs, err := c.observe(v, chrom, 1, 0)
		if err != nil {
			c.warn(v, c.siteGenome, err)
			return nil, err
		}
		obs.Call = &metagenome.Call{Filter: v.Filter, Quality: v.Qual}
		return []Record{{Genome: c.siteGenome, Obs: obs}}, nil
	}

	var records []Record
	skipped := 0
	for i, genome := range c.samples {
		gt, err := v.Genotype(i)
		if err != nil {
			c.warn(v, genome, err)
			skipped++
			continue
		}
		if gt.IsNoCall() {
			continue
		}
		call := &metagenome.Call{
			Filter:   v.Filter,
			Quality:  v.Qual,
			Genotype: gt.String(),
			Fields:   v.SampleFields(i),
		}

		if gt.IsHomozygousReference() {
			for a := 0; a < metagenome.Alleles && a < len(gt.Alleles); a++ {
				records = append(records, Record{Genome: genome, Obs: metagenome.Observation{
					Chrom:  chrom,
					Pos:    v.Pos,
					Allele: a,
					Type:   metagenome.Reference,
					Call:   call,
				}})
			}
			continue
		}

		for a := 0; a < metagenome.Alleles; a++ {
			idx := gt.Allele(a)
			if idx <= 0 {
				continue
			}
			obs, err := c.observe(v, chrom, idx, a)
			if err != nil {
				c.warn(v, genome, err)
				skipped++
				continue
			}
			obs.Call = call
			records = append(records, Record{Genome: genome, Obs: obs})
		}
	}
	if len(records) == 0 && skipped > 0 {
		return nil, fmt.Errorf("%w: %s:%d", ErrSkipped, v.Chrom, v.Pos)
	}
	return records, nil
}

// observe classifies the alternate allele idx carried by one chromosome copy.
func (c *Classifier) observe(v *vcf.Variant, chrom string, idx, allele int) (metagenome.Observation, error) {
	obs := metagenome.Observation{Chrom: chrom, Pos: v.Pos, Allele: allele}

	alt, ok := v.AltAllele(idx)
	if !ok {
		return obs, fmt.Errorf("%w: genotype allele %d not in ALT %q", ErrSkipped, idx, v.Alt)
	}

	kind, length := vcf.Classify(v.Ref, alt)
	switch kind {
	case vcf.KindSNV:
		obs.Type = metagenome.SNP
	case vcf.KindInsertion:
		obs.Type = metagenome.Insertion
		obs.Length = length
	case vcf.KindDeletion:
		obs.Type = metagenome.Deletion
		obs.Length = length
	case vcf.KindSymbolic:
		si, err := vcf.ParseStructuralInfo(v.Info)
		if err != nil {
			return obs, fmt.Errorf("%w: %v", ErrSkipped, err)
		}
		obs.Type, obs.Length = structural(si)
	default:
		return obs, fmt.Errorf("%w: missing allele %q", ErrSkipped, alt)
	}
	return obs, nil
}

// structural maps SVTYPE and SVLEN onto an observation. An insertion of
// unknown size keeps a zero length; synchronization drops it.
func structural(si vcf.StructuralInfo) (metagenome.VariantType, int64) {
	length := si.Length
	switch si.Type {
	case "INS":
		if length < 0 {
			length = -length
		}
		return metagenome.Insertion, length
	case "DEL":
		if length > 0 {
			length = -length
		}
	}
	return metagenome.Structural, length
}

func (c *Classifier) warn(v *vcf.Variant, genome string, err error) {
	c.logger.Warn("skipping variant call",
		zap.String("genome", genome),
		zap.String("chrom", v.Chrom),
		zap.Int64("pos", v.Pos),
		zap.Error(err))
}
