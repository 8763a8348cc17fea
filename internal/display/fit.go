package display

import (
	"sync"

	"go.uber.org/zap"

	"github.com/inodb/metagenome/internal/metagenome"
)

// DisplayItem is one drawable entry: a single variant, or a Mix variant
// spanning several variants too close to tell apart at the current zoom.
type DisplayItem struct {
	*metagenome.Variant
	Count int // variants covered
}

// IsMix reports whether the item merges several variants.
func (d DisplayItem) IsMix() bool {
	return d.Type == metagenome.Mix
}

// Fitted holds the fitted items of every allele for one pixel ratio.
type Fitted struct {
	Ratio float64
	items [alleles][]DisplayItem
	index [alleles]spanIndex
}

// Items returns every fitted item of an allele in start order.
func (f *Fitted) Items(allele int) []DisplayItem {
	if !validAllele(allele) {
		return nil
	}
	return f.items[allele]
}

// Window returns the fitted items of an allele that intersect the closed
// window [start, stop].
func (f *Fitted) Window(allele int, start, stop int64) []DisplayItem {
	if !validAllele(allele) {
		return nil
	}
	lo, hi := f.index[allele].bracket(start, stop)
	var out []DisplayItem
	for _, it := range f.items[allele][lo:hi] {
		if it.Overlaps(start, stop) {
			out = append(out, it)
		}
	}
	return out
}

// Fitter merges the visible variants of one or more lists per allele and
// caches the result by pixel ratio. Any change to a list drops the whole
// cache. Cache population is serialized.
type Fitter struct {
	lists []*List

	mu        sync.Mutex
	cache     map[float64]*Fitted
	revisions []uint64
	hits      int
	misses    int
	logger    *zap.Logger
}

// NewFitter creates a fitter over the given lists.
func NewFitter(lists ...*List) *Fitter {
	return &Fitter{
		lists:  lists,
		cache:  make(map[float64]*Fitted),
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for debug messages.
func (f *Fitter) SetLogger(l *zap.Logger) {
	f.logger = l
}

// FitToScreen returns the fitted items for a ratio, from the cache when the
// lists are unchanged since it was filled.
func (f *Fitter) FitToScreen(ratio float64) *Fitted {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.invalidateIfStale()
	if fitted, ok := f.cache[ratio]; ok {
		f.hits++
		return fitted
	}
	f.misses++
	return f.fill(ratio)
}

// ForceFitToScreen recomputes the fitted items for a ratio and replaces the
// cached entry.
func (f *Fitter) ForceFitToScreen(ratio float64) *Fitted {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.invalidateIfStale()
	f.misses++
	return f.fill(ratio)
}

// Stats returns the cache hit and miss counts.
func (f *Fitter) Stats() (hits, misses int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits, f.misses
}

func (f *Fitter) fill(ratio float64) *Fitted {
	fitted := &Fitted{Ratio: ratio}
	for a := 0; a < alleles; a++ {
		tracks := make([]Track, len(f.lists))
		for i, l := range f.lists {
			tracks[i] = Track{List: l, Allele: a}
		}
		items := Fit(NewScanner(true, tracks...), ratio)
		fitted.items[a] = items
		fitted.index[a] = newSpanIndex(len(items), func(i int) (int64, int64) {
			return items[i].Start, items[i].Stop
		})
	}
	f.cache[ratio] = fitted
	f.logger.Debug("fitted to screen",
		zap.Float64("ratio", ratio),
		zap.Int("allele0", len(fitted.items[0])),
		zap.Int("allele1", len(fitted.items[1])))
	return fitted
}

func (f *Fitter) invalidateIfStale() {
	stale := len(f.revisions) != len(f.lists)
	if !stale {
		for i, l := range f.lists {
			if l.Revision() != f.revisions[i] {
				stale = true
				break
			}
		}
	}
	if !stale {
		return
	}
	clear(f.cache)
	f.revisions = f.revisions[:0]
	for _, l := range f.lists {
		f.revisions = append(f.revisions, l.Revision())
	}
}

// Fit merges the variants produced by a scanner for a pixel ratio. Above
// one pixel per base every variant is its own item. Otherwise a variant
// joins the pending span when the gap from the span's last base, in
// pixels, is below one.
func Fit(s *Scanner, ratio float64) []DisplayItem {
	var items []DisplayItem
	if ratio > 1 {
		for _, ok := s.Next(); ok; _, ok = s.Next() {
			for _, v := range s.Current() {
				items = append(items, DisplayItem{Variant: v, Count: 1})
			}
		}
		return items
	}

	var span pending
	for _, ok := s.Next(); ok; _, ok = s.Next() {
		for _, v := range s.Current() {
			if span.count == 0 {
				span.begin(v)
				continue
			}
			if float64(v.Start-(span.to-1))*ratio < 1 {
				span.extend(v)
				continue
			}
			items = append(items, span.flush())
			span.begin(v)
		}
	}
	if span.count > 0 {
		items = append(items, span.flush())
	}
	return items
}

// pending is the span being merged, [from, to) in meta-genome coordinates.
type pending struct {
	first    *metagenome.Variant
	from, to int64
	count    int
}

func (p *pending) begin(v *metagenome.Variant) {
	*p = pending{first: v, from: v.Start, to: v.Stop, count: 1}
}

func (p *pending) extend(v *metagenome.Variant) {
	p.to = max(p.to, v.Stop)
	p.count++
}

func (p *pending) flush() DisplayItem {
	if p.count == 1 {
		return DisplayItem{Variant: p.first, Count: 1}
	}
	mix := &metagenome.Variant{
		Genome: p.first.Genome,
		Chrom:  p.first.Chrom,
		RefPos: p.first.RefPos,
		Length: p.to - p.from,
		Type:   metagenome.Mix,
		Start:  p.from,
		Stop:   p.to,
		Allele: p.first.Allele,
	}
	return DisplayItem{Variant: mix, Count: p.count}
}
