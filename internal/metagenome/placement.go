package metagenome

import (
	"fmt"
	"sort"
)

// metaOffsetAt returns the meta offset that applies to a reference position.
func metaOffsetAt(ref *PositionTracker, pos int64) int64 {
	e := ref.Floor(pos)
	switch {
	case e == nil:
		return 0
	case e.RefPos == pos:
		return e.InitialMetaOffset
	default:
		return e.NextMetaOffset
	}
}

func (p *Project) synchronized(chrom string) (*SyncResult, *PositionTracker, error) {
	res, ok := p.results[chrom]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrNotSynchronized, chrom)
	}
	return res, p.referenceTracker(chrom), nil
}

// MetaPosition converts a reference position into a meta-genome coordinate.
func (p *Project) MetaPosition(chrom string, refPos int64) (int64, error) {
	res, ref, err := p.synchronized(chrom)
	if err != nil {
		return 0, err
	}
	if refPos < 1 || refPos > res.RefLength {
		return 0, fmt.Errorf("%w: %s:%d", ErrOutOfRange, chrom, refPos)
	}
	return refPos + metaOffsetAt(ref, refPos), nil
}

// GenomePosition converts a reference position into a coordinate on one
// allele of a genome's own sequence.
func (p *Project) GenomePosition(genome string, allele int, chrom string, refPos int64) (int64, error) {
	res, _, err := p.synchronized(chrom)
	if err != nil {
		return 0, err
	}
	if !p.HasGenome(genome) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownGenome, genome)
	}
	if allele < 0 || allele >= Alleles || refPos < 1 || refPos > res.RefLength {
		return 0, fmt.Errorf("%w: %s:%d allele %d", ErrOutOfRange, chrom, refPos, allele)
	}
	e := p.tracker(genome, chrom).Floor(refPos)
	switch {
	case e == nil:
		return refPos, nil
	case e.RefPos == refPos:
		return refPos + e.InitialGenomeOffset[allele], nil
	default:
		return refPos + e.NextGenomeOffset[allele], nil
	}
}

// ReferencePosition converts a meta-genome coordinate back to the
// reference. When the coordinate falls inside insertion padding, the
// returned position is the reference base the insertion follows and exact
// is false.
func (p *Project) ReferencePosition(chrom string, metaPos int64) (refPos int64, exact bool, err error) {
	res, ref, err := p.synchronized(chrom)
	if err != nil {
		return 0, false, err
	}
	if metaPos < 1 || metaPos > res.MetaLength {
		return 0, false, fmt.Errorf("%w: %s meta %d", ErrOutOfRange, chrom, metaPos)
	}

	n := ref.Len()
	i := sort.Search(n, func(i int) bool { return ref.At(i).MetaStart() > metaPos })
	if i == 0 {
		return metaPos, true, nil
	}
	e := ref.At(i - 1)
	start := e.MetaStart()
	switch {
	case metaPos == start:
		return e.RefPos, true, nil
	case metaPos <= start+e.Padding:
		return e.RefPos, false, nil
	default:
		return metaPos - e.NextMetaOffset, true, nil
	}
}

// Placed returns a genome's synchronized variants on a chromosome, one
// slice per allele, in tracker order. Alleles without an insertion at a
// padded position receive a Blank variant covering the padding.
func (p *Project) Placed(genome, chrom string) ([Alleles][]*Variant, error) {
	var out [Alleles][]*Variant
	if !p.HasGenome(genome) {
		return out, fmt.Errorf("%w: %q", ErrUnknownGenome, genome)
	}
	_, ref, err := p.synchronized(chrom)
	if err != nil {
		return out, err
	}

	t := p.tracker(genome, chrom)
	for i := 0; i < t.Len(); i++ {
		e := t.At(i)
		meta := e.MetaStart()
		for a := 0; a < Alleles; a++ {
			ev := e.Events[a].active()
			if ev != nil {
				v := &Variant{
					Genome: genome,
					Chrom:  chrom,
					RefPos: e.RefPos,
					Length: ev.Length,
					Type:   ev.Type,
					Allele: a,
					Call:   ev.Call,
				}
				v.Start, v.Stop = span(ref, e, ev)
				if ev.Type == Insertion {
					v.ExtraOffset = ev.ExtraOffset
				}
				out[a] = append(out[a], v)
			}
			if e.Padding > 0 && (ev == nil || ev.Type != Insertion) {
				out[a] = append(out[a], &Variant{
					Genome: genome,
					Chrom:  chrom,
					RefPos: e.RefPos,
					Length: e.Padding,
					Type:   Blank,
					Start:  meta + 1,
					Stop:   meta + 1 + e.Padding,
					Allele: a,
				})
			}
		}
	}
	return out, nil
}

// span places an event on the meta-genome. Inserted bases follow the
// reference base; deletions cover the reference bases after it.
func span(ref *PositionTracker, e *Position, ev *Event) (start, stop int64) {
	meta := e.MetaStart()
	switch ev.Type {
	case Insertion:
		return meta + 1, meta + 1 + ev.Length
	case Deletion, Structural:
		n := abs(ev.Length)
		if n == 0 {
			return meta, meta + 1
		}
		first := e.RefPos + 1
		last := e.RefPos + n
		return first + metaOffsetAt(ref, first), last + metaOffsetAt(ref, last) + 1
	default:
		return meta, meta + 1
	}
}
