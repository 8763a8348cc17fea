package metagenome

import (
	"go.uber.org/zap"
)

// Offset is the synchronized state of one tracker entry.
type Offset struct {
	RefPos              int64
	Synthesized         bool
	Padding             int64
	InitialMetaOffset   int64
	NextMetaOffset      int64
	InitialGenomeOffset [Alleles]int64
	NextGenomeOffset    [Alleles]int64
}

// SyncResult is the outcome of synchronizing one chromosome.
type SyncResult struct {
	Chromosome string
	RefLength  int64
	MetaLength int64
	Positions  int // reference positions scanned
	Insertions int // positions where at least one genome inserts
	Dropped    int // insertions dropped for an unusable length

	Offsets          map[string][]Offset // per genome, ascending reference position
	ReferenceOffsets []Offset
}

// TrackLength returns the meta-genome length spanned by a genome's track.
func (r *SyncResult) TrackLength(genome string) int64 {
	offsets, ok := r.Offsets[genome]
	if !ok || len(offsets) == 0 {
		return r.RefLength
	}
	return r.RefLength + offsets[len(offsets)-1].NextMetaOffset
}

// Inserted returns the total meta-genome padding added to the chromosome.
func (r *SyncResult) Inserted() int64 {
	return r.MetaLength - r.RefLength
}

// Synchronizer scans the reference positions of a chromosome and propagates
// insertion offsets across every genome of a project and the reference.
type Synchronizer struct {
	project *Project
	logger  *zap.Logger
}

// NewSynchronizer creates a synchronizer over a project's trackers.
func NewSynchronizer(p *Project) *Synchronizer {
	return &Synchronizer{project: p, logger: p.logger}
}

// SetLogger sets the logger for warning and info messages.
func (s *Synchronizer) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Compute synchronizes one chromosome. The chromosome must be registered;
// Project.Compute validates that before calling.
func (s *Synchronizer) Compute(chrom string) (*SyncResult, error) {
	c, ok := s.project.Chromosome(chrom)
	if !ok {
		return nil, ErrUnknownChromosome
	}

	genomes := s.project.genomes
	trackers := make([]*PositionTracker, len(genomes))
	for i, g := range genomes {
		trackers[i] = s.project.tracker(g, chrom)
		trackers[i].reset()
	}
	ref := s.project.referenceTracker(chrom)
	ref.reset()

	res := &SyncResult{
		Chromosome: chrom,
		RefLength:  c.Length,
		MetaLength: c.Length,
		Offsets:    make(map[string][]Offset, len(genomes)),
	}

	entries := make([]*Position, len(trackers))
	for _, pos := range ref.Positions() {
		res.Positions++

		// Chain every present entry from its genome's previous entry.
		for i, t := range trackers {
			e := t.Get(pos)
			if e != nil {
				t.chain(e)
			}
			entries[i] = e
		}
		refEntry := ref.Get(pos)
		ref.chain(refEntry)

		maxLength := int64(0)
		for i, e := range entries {
			if e == nil {
				continue
			}
			for a, ev := range e.Events {
				if ev == nil || ev.Type != Insertion {
					continue
				}
				if ev.Length <= 0 {
					s.logger.Warn("dropping insertion with unusable length",
						zap.String("genome", genomes[i]),
						zap.String("chrom", chrom),
						zap.Int64("pos", pos),
						zap.Int("allele", a),
						zap.Int64("length", ev.Length))
					ev.Dropped = true
					res.Dropped++
					continue
				}
				maxLength = max(maxLength, ev.Length)
			}
		}

		if maxLength > 0 {
			res.Insertions++
			for i, t := range trackers {
				if entries[i] == nil {
					e := t.Ensure(pos)
					e.Synthesized = true
					t.chain(e)
					entries[i] = e
				}
			}
			res.MetaLength += maxLength
		}

		for _, e := range entries {
			if e != nil {
				finish(e, maxLength)
			}
		}
		finish(refEntry, maxLength)

		for _, t := range trackers {
			t.advance(pos)
		}
		ref.advance(pos)
	}

	for i, g := range genomes {
		res.Offsets[g] = collectOffsets(trackers[i])
	}
	res.ReferenceOffsets = collectOffsets(ref)

	s.logger.Info("synchronized chromosome",
		zap.String("chrom", chrom),
		zap.Int("positions", res.Positions),
		zap.Int("insertions", res.Insertions),
		zap.Int64("meta_length", res.MetaLength))
	if res.Dropped > 0 {
		s.logger.Warn("insertions dropped during synchronization",
			zap.String("chrom", chrom),
			zap.Int("dropped", res.Dropped))
	}

	return res, nil
}

// finish applies the shared padding of a position to an entry: dead zones
// on shorter insertions and the next offsets.
func finish(e *Position, padding int64) {
	e.Padding = padding
	e.NextMetaOffset = e.InitialMetaOffset + padding
	for a, ev := range e.Events {
		ev = ev.active()
		if ev != nil && ev.Type == Insertion {
			ev.ExtraOffset = padding - ev.Length
		}
		e.NextGenomeOffset[a] = e.InitialGenomeOffset[a] + ev.genomeShift()
	}
}

func collectOffsets(t *PositionTracker) []Offset {
	out := make([]Offset, t.Len())
	for i := range out {
		e := t.At(i)
		out[i] = Offset{
			RefPos:              e.RefPos,
			Synthesized:         e.Synthesized,
			Padding:             e.Padding,
			InitialMetaOffset:   e.InitialMetaOffset,
			NextMetaOffset:      e.NextMetaOffset,
			InitialGenomeOffset: e.InitialGenomeOffset,
			NextGenomeOffset:    e.NextGenomeOffset,
		}
	}
	return out
}
