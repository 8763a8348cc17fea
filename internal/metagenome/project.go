package metagenome

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Chromosome is a reference sequence and its length in bases.
type Chromosome struct {
	Name   string
	Length int64
}

// Observation is one raw variant call of a genome, as delivered by a source.
type Observation struct {
	Chrom  string
	Pos    int64 // 1-based reference position
	Allele int   // chromosome copy, 0 or 1
	Type   VariantType
	Length int64 // signed: positive inserted, negative deleted, 0 substitution
	Call   *Call
}

// Project holds everything needed to synchronize one cohort: the genome set,
// the chromosomes, one tracker per (genome, chromosome), the reference
// trackers and the synchronization results.
//
// A Project is not safe for concurrent use.
type Project struct {
	genomes     []string
	genomeIndex map[string]int

	chromosomes []Chromosome
	chromIndex  map[string]int // built lazily, dropped when chromosomes change

	trackers  map[string]map[string]*PositionTracker // genome -> chrom
	reference map[string]*PositionTracker            // chrom
	results   map[string]*SyncResult

	logger *zap.Logger
}

// NewProject creates a project for the given genomes. Genome names must be
// unique and non-empty.
func NewProject(genomes []string) (*Project, error) {
	var errs error
	if len(genomes) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("no genomes"))
	}
	index := make(map[string]int, len(genomes))
	for i, g := range genomes {
		if g == "" {
			errs = multierr.Append(errs, fmt.Errorf("genome %d has an empty name", i))
			continue
		}
		if _, dup := index[g]; dup {
			errs = multierr.Append(errs, fmt.Errorf("duplicate genome %q", g))
			continue
		}
		index[g] = i
	}
	if errs != nil {
		return nil, &ConfigError{Err: errs}
	}

	p := &Project{
		genomes:     append([]string(nil), genomes...),
		genomeIndex: index,
		trackers:    make(map[string]map[string]*PositionTracker, len(genomes)),
		reference:   make(map[string]*PositionTracker),
		results:     make(map[string]*SyncResult),
		logger:      zap.NewNop(),
	}
	for _, g := range genomes {
		p.trackers[g] = make(map[string]*PositionTracker)
	}
	return p, nil
}

// SetLogger sets the logger for warning and info messages.
func (p *Project) SetLogger(l *zap.Logger) {
	p.logger = l
}

// Logger returns the project logger.
func (p *Project) Logger() *zap.Logger {
	return p.logger
}

// Genomes returns the genome names in declaration order.
func (p *Project) Genomes() []string {
	return append([]string(nil), p.genomes...)
}

// HasGenome reports whether the genome belongs to the project.
func (p *Project) HasGenome(genome string) bool {
	_, ok := p.genomeIndex[genome]
	return ok
}

// AddChromosome registers a chromosome. Registering a known chromosome
// keeps the larger length.
func (p *Project) AddChromosome(name string, length int64) {
	if c, ok := p.lookupChromosome(name); ok {
		if length > p.chromosomes[c].Length {
			p.chromosomes[c].Length = length
			delete(p.results, name)
		}
		return
	}
	p.chromosomes = append(p.chromosomes, Chromosome{Name: name, Length: length})
	p.chromIndex = nil
}

// Chromosomes returns the registered chromosomes in registration order.
func (p *Project) Chromosomes() []Chromosome {
	return append([]Chromosome(nil), p.chromosomes...)
}

// Chromosome returns a registered chromosome by name.
func (p *Project) Chromosome(name string) (Chromosome, bool) {
	i, ok := p.lookupChromosome(name)
	if !ok {
		return Chromosome{}, false
	}
	return p.chromosomes[i], true
}

func (p *Project) lookupChromosome(name string) (int, bool) {
	if p.chromIndex == nil {
		p.chromIndex = make(map[string]int, len(p.chromosomes))
		for i, c := range p.chromosomes {
			p.chromIndex[c.Name] = i
		}
	}
	i, ok := p.chromIndex[name]
	return i, ok
}

// Add records an observation for a genome. The chromosome must be
// registered and the position must lie on it.
func (p *Project) Add(genome string, obs Observation) error {
	if !p.HasGenome(genome) {
		return fmt.Errorf("%w: %q", ErrUnknownGenome, genome)
	}
	c, ok := p.Chromosome(obs.Chrom)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChromosome, obs.Chrom)
	}
	if obs.Pos < 1 || obs.Pos > c.Length {
		return fmt.Errorf("%w: %s:%d", ErrOutOfRange, obs.Chrom, obs.Pos)
	}
	if obs.Allele < 0 || obs.Allele >= Alleles {
		return fmt.Errorf("invalid allele %d at %s:%d", obs.Allele, obs.Chrom, obs.Pos)
	}
	if obs.Type == Blank || obs.Type == Mix {
		return fmt.Errorf("%s cannot be observed at %s:%d", obs.Type, obs.Chrom, obs.Pos)
	}

	t := p.tracker(genome, obs.Chrom)
	ev := &Event{Type: obs.Type, Length: obs.Length, Call: obs.Call}
	if !t.Add(obs.Pos, obs.Allele, ev) {
		p.logger.Warn("allele already has an event, keeping the first",
			zap.String("genome", genome),
			zap.String("chrom", obs.Chrom),
			zap.Int64("pos", obs.Pos),
			zap.Int("allele", obs.Allele))
		return nil
	}
	p.referenceTracker(obs.Chrom).Ensure(obs.Pos)
	delete(p.results, obs.Chrom)
	return nil
}

// Tracker returns the tracker of a genome on a chromosome.
func (p *Project) Tracker(genome, chrom string) (*PositionTracker, bool) {
	byChrom, ok := p.trackers[genome]
	if !ok {
		return nil, false
	}
	t, ok := byChrom[chrom]
	return t, ok
}

// ReferenceTracker returns the reference tracker of a chromosome.
func (p *Project) ReferenceTracker(chrom string) (*PositionTracker, bool) {
	t, ok := p.reference[chrom]
	return t, ok
}

func (p *Project) tracker(genome, chrom string) *PositionTracker {
	t, ok := p.trackers[genome][chrom]
	if !ok {
		t = NewPositionTracker()
		p.trackers[genome][chrom] = t
	}
	return t
}

func (p *Project) referenceTracker(chrom string) *PositionTracker {
	t, ok := p.reference[chrom]
	if !ok {
		t = NewPositionTracker()
		p.reference[chrom] = t
	}
	return t
}

// Validate checks that a chromosome can be synchronized. All problems are
// reported together as a *ConfigError.
func (p *Project) Validate(chrom string) error {
	var errs error
	c, ok := p.Chromosome(chrom)
	if !ok {
		errs = multierr.Append(errs, fmt.Errorf("%w: %q", ErrUnknownChromosome, chrom))
	} else if c.Length <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("chromosome %q has no length", chrom))
	}
	if ok {
		if ref, has := p.reference[chrom]; has && ref.LastPosition() > c.Length {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s:%d beyond length %d",
				ErrOutOfRange, chrom, ref.LastPosition(), c.Length))
		}
	}
	if errs != nil {
		return &ConfigError{Err: errs}
	}
	return nil
}

// Compute synchronizes a chromosome across all genomes. Calling it again
// recomputes from the recorded observations.
func (p *Project) Compute(chrom string) (*SyncResult, error) {
	if err := p.Validate(chrom); err != nil {
		return nil, err
	}
	s := NewSynchronizer(p)
	res, err := s.Compute(chrom)
	if err != nil {
		return nil, fmt.Errorf("synchronize %s: %w", chrom, err)
	}
	p.results[chrom] = res
	return res, nil
}

// ComputeAll synchronizes every registered chromosome in name order.
func (p *Project) ComputeAll() ([]*SyncResult, error) {
	names := make([]string, 0, len(p.chromosomes))
	for _, c := range p.chromosomes {
		names = append(names, c.Name)
	}
	sort.Strings(names)

	results := make([]*SyncResult, 0, len(names))
	for _, name := range names {
		res, err := p.Compute(name)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Ready reports whether a chromosome has an up-to-date synchronization.
func (p *Project) Ready(chrom string) bool {
	_, ok := p.results[chrom]
	return ok
}

// Result returns the last synchronization result of a chromosome.
func (p *Project) Result(chrom string) (*SyncResult, bool) {
	r, ok := p.results[chrom]
	return r, ok
}

// MetaLength returns the synchronized length of a chromosome.
func (p *Project) MetaLength(chrom string) (int64, error) {
	r, ok := p.results[chrom]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotSynchronized, chrom)
	}
	return r.MetaLength, nil
}
