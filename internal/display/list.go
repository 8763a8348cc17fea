// Package display builds the per-genome sorted variant lists of a
// synchronized chromosome and answers windowed, zoom-dependent queries over
// them.
package display

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/metagenome/internal/metagenome"
)

const alleles = metagenome.Alleles

// Source supplies the synchronized variants of a genome on a chromosome.
// *metagenome.Project implements it.
type Source interface {
	Placed(genome, chrom string) ([metagenome.Alleles][]*metagenome.Variant, error)
}

// List is the display list of one genome on one chromosome: per allele, the
// placed variants ordered by meta-genome start and a parallel array of
// display states.
//
// The variant arrays are rebuilt only by GenerateLists; filters and options
// only touch the display states. A List is not safe for concurrent
// mutation.
type List struct {
	Genome string
	Chrom  string
	Types  []metagenome.VariantType

	source   Source
	variants [alleles][]*metagenome.Variant
	states   [alleles][]DisplayState
	index    [alleles]spanIndex

	filters  []Filter
	opts     Options
	revision uint64

	fitter *Fitter
	logger *zap.Logger
}

// NewList creates an empty list. With no types every placed variant is kept.
func NewList(source Source, genome, chrom string, types ...metagenome.VariantType) *List {
	l := &List{
		Genome: genome,
		Chrom:  chrom,
		Types:  append([]metagenome.VariantType(nil), types...),
		source: source,
		opts:   Options{ShowFiltered: true, ShowReference: true},
		logger: zap.NewNop(),
	}
	l.fitter = NewFitter(l)
	return l
}

// Build creates a list and generates its variant arrays.
func Build(source Source, genome, chrom string, types ...metagenome.VariantType) (*List, error) {
	l := NewList(source, genome, chrom, types...)
	if err := l.GenerateLists(); err != nil {
		return nil, err
	}
	return l, nil
}

// SetLogger sets the logger for warning and info messages.
func (l *List) SetLogger(log *zap.Logger) {
	l.logger = log
	l.fitter.SetLogger(log)
}

// GenerateLists rebuilds the variant arrays from the source and evaluates
// the current filters on them.
func (l *List) GenerateLists() error {
	placed, err := l.source.Placed(l.Genome, l.Chrom)
	if err != nil {
		return fmt.Errorf("generate lists for %s on %s: %w", l.Genome, l.Chrom, err)
	}

	keep := l.typeSet()
	var variants [alleles][]*metagenome.Variant
	for a := range placed {
		vs := make([]*metagenome.Variant, 0, len(placed[a]))
		for _, v := range placed[a] {
			if keep == nil || keep[v.Type] {
				vs = append(vs, v)
			}
		}
		sort.SliceStable(vs, func(i, j int) bool { return vs[i].Start < vs[j].Start })
		variants[a] = vs
	}
	l.setVariants(variants)
	l.applyFilters()

	l.logger.Debug("generated display lists",
		zap.String("genome", l.Genome),
		zap.String("chrom", l.Chrom),
		zap.Int("allele0", len(l.variants[0])),
		zap.Int("allele1", len(l.variants[1])))
	return nil
}

func (l *List) typeSet() map[metagenome.VariantType]bool {
	if len(l.Types) == 0 {
		return nil
	}
	set := make(map[metagenome.VariantType]bool, len(l.Types))
	for _, t := range l.Types {
		set[t] = true
	}
	return set
}

// setVariants installs sorted variant arrays and their search index.
func (l *List) setVariants(variants [alleles][]*metagenome.Variant) {
	l.variants = variants
	for a, vs := range variants {
		l.states[a] = make([]DisplayState, len(vs))
		l.index[a] = newSpanIndex(len(vs), func(i int) (int64, int64) {
			return vs[i].Start, vs[i].Stop
		})
	}
	l.revision++
}

// Revision changes whenever the variants or their display states change.
func (l *List) Revision() uint64 {
	return l.revision
}

// Len returns the number of variants on an allele.
func (l *List) Len(allele int) int {
	if !validAllele(allele) {
		return 0
	}
	return len(l.variants[allele])
}

// Variants returns the sorted variants of an allele. The slice is shared
// and must not be modified.
func (l *List) Variants(allele int) []*metagenome.Variant {
	if !validAllele(allele) {
		return nil
	}
	return l.variants[allele]
}

// States returns the display states of an allele, parallel to Variants.
func (l *List) States(allele int) []DisplayState {
	if !validAllele(allele) {
		return nil
	}
	return l.states[allele]
}

// Options returns the current visibility options.
func (l *List) Options() Options {
	return l.opts
}

// Filters returns the active filters.
func (l *List) Filters() []Filter {
	return append([]Filter(nil), l.filters...)
}

// Iterator returns a scanner over the visible variants of one allele.
func (l *List) Iterator(allele int) *Scanner {
	return NewScanner(true, Track{List: l, Allele: allele})
}

// Window returns the variants of an allele that intersect the closed
// meta-genome window [start, stop], hidden ones included.
func (l *List) Window(allele int, start, stop int64) []*metagenome.Variant {
	if !validAllele(allele) {
		return nil
	}
	lo, hi := l.index[allele].bracket(start, stop)
	var out []*metagenome.Variant
	for _, v := range l.variants[allele][lo:hi] {
		if v.Overlaps(start, stop) {
			out = append(out, v)
		}
	}
	return out
}

// UpdateDisplay evaluates filters on every variant and sets the display
// states.
func (l *List) UpdateDisplay(filters []Filter, showFiltered bool) {
	l.filters = append([]Filter(nil), filters...)
	l.opts.ShowFiltered = showFiltered
	l.applyFilters()
}

func (l *List) applyFilters() {
	hidden := 0
	for a, vs := range l.variants {
		for i, v := range vs {
			s := stateFor(filtered(v, l.filters), v.Type == metagenome.Reference, l.opts)
			l.states[a][i] = s
			if s.Hidden() {
				hidden++
			}
		}
	}
	l.revision++
	l.logger.Debug("updated display states",
		zap.String("genome", l.Genome),
		zap.Int("filters", len(l.filters)),
		zap.Int("hidden", hidden))
}

// UpdateDisplayForOption reclassifies the existing display states for new
// options. Filters are not evaluated again.
func (l *List) UpdateDisplayForOption(showReference, showFiltered bool) {
	l.opts = Options{ShowFiltered: showFiltered, ShowReference: showReference}
	for a, vs := range l.variants {
		for i, v := range vs {
			l.states[a][i] = Transition(l.states[a][i], v.Type == metagenome.Reference, l.opts)
		}
	}
	l.revision++
}

// FitToScreen returns the fitted items of both alleles for a pixel ratio,
// served from the cache when the list has not changed.
func (l *List) FitToScreen(ratio float64) *Fitted {
	return l.fitter.FitToScreen(ratio)
}

// ForceFitToScreen recomputes the fitted items for a ratio and replaces the
// cached entry.
func (l *List) ForceFitToScreen(ratio float64) *Fitted {
	return l.fitter.ForceFitToScreen(ratio)
}

// FittedData returns the fitted items of one allele that intersect the
// closed window [windowStart, windowStop]. The ratio must be finite and
// positive.
func (l *List) FittedData(windowStart, windowStop int64, ratio float64, allele int) []DisplayItem {
	if !validAllele(allele) || !validRatio(ratio) || windowStop < windowStart {
		return nil
	}
	return l.FitToScreen(ratio).Window(allele, windowStart, windowStop)
}

func validAllele(a int) bool {
	return a >= 0 && a < alleles
}

// validRatio rejects NaN too.
func validRatio(r float64) bool {
	return r > 0 && !math.IsInf(r, 1)
}
