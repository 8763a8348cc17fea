package display

import (
	"github.com/inodb/metagenome/internal/metagenome"
)

// Track selects one allele of a list.
type Track struct {
	List   *List
	Allele int
}

// cursor walks one track. [lo, hi) is the group of entries starting at the
// scanner position; lo is also the first entry starting at or after it and
// hi the first entry starting after it.
type cursor struct {
	variants []*metagenome.Variant
	states   []DisplayState
	lo, hi   int
}

func (c *cursor) visible(i int, displayDependent bool) bool {
	return !displayDependent || !c.states[i].Hidden()
}

// nextStart returns the start of the first visible entry at or after hi.
func (c *cursor) nextStart(displayDependent bool) (int64, bool) {
	for i := c.hi; i < len(c.variants); i++ {
		if c.visible(i, displayDependent) {
			return c.variants[i].Start, true
		}
	}
	return 0, false
}

// prevStart returns the start of the last visible entry before lo.
func (c *cursor) prevStart(displayDependent bool) (int64, bool) {
	for i := c.lo - 1; i >= 0; i-- {
		if c.visible(i, displayDependent) {
			return c.variants[i].Start, true
		}
	}
	return 0, false
}

func (c *cursor) forward(pos int64) {
	c.lo = c.hi
	for c.lo < len(c.variants) && c.variants[c.lo].Start < pos {
		c.lo++
	}
	c.hi = c.lo
	for c.hi < len(c.variants) && c.variants[c.hi].Start == pos {
		c.hi++
	}
}

func (c *cursor) backward(pos int64) {
	c.hi = c.lo
	for c.hi > 0 && c.variants[c.hi-1].Start > pos {
		c.hi--
	}
	c.lo = c.hi
	for c.lo > 0 && c.variants[c.lo-1].Start == pos {
		c.lo--
	}
}

// Scanner walks several tracks together in meta-genome order. Each step
// lands on the next position where at least one track has a variant and
// Current returns every variant starting there.
//
// In display-dependent mode entries with a hidden display state are
// skipped. A scanner reads the arrays of its lists as they were when it
// was created.
type Scanner struct {
	cursors          []*cursor
	displayDependent bool
	pos              int64
	started          bool
}

// NewScanner creates a scanner positioned before the first variant.
func NewScanner(displayDependent bool, tracks ...Track) *Scanner {
	s := &Scanner{displayDependent: displayDependent}
	for _, t := range tracks {
		if t.List == nil || !validAllele(t.Allele) {
			continue
		}
		s.cursors = append(s.cursors, &cursor{
			variants: t.List.Variants(t.Allele),
			states:   t.List.States(t.Allele),
		})
	}
	return s
}

// HasNext reports whether a visible variant starts after the current position.
func (s *Scanner) HasNext() bool {
	for _, c := range s.cursors {
		if _, ok := c.nextStart(s.displayDependent); ok {
			return true
		}
	}
	return false
}

// Next moves to the smallest start after the current position and returns
// it. It returns false at the end.
func (s *Scanner) Next() (int64, bool) {
	next, found := int64(0), false
	for _, c := range s.cursors {
		if start, ok := c.nextStart(s.displayDependent); ok && (!found || start < next) {
			next, found = start, true
		}
	}
	if !found {
		return s.pos, false
	}
	for _, c := range s.cursors {
		c.forward(next)
	}
	s.pos, s.started = next, true
	return next, true
}

// HasPrevious reports whether a visible variant starts before the current
// position.
func (s *Scanner) HasPrevious() bool {
	if !s.started {
		return false
	}
	for _, c := range s.cursors {
		if _, ok := c.prevStart(s.displayDependent); ok {
			return true
		}
	}
	return false
}

// Previous moves to the largest start before the current position and
// returns it. It returns false at the beginning.
func (s *Scanner) Previous() (int64, bool) {
	if !s.started {
		return s.pos, false
	}
	prev, found := int64(0), false
	for _, c := range s.cursors {
		if start, ok := c.prevStart(s.displayDependent); ok && (!found || start > prev) {
			prev, found = start, true
		}
	}
	if !found {
		return s.pos, false
	}
	for _, c := range s.cursors {
		c.backward(prev)
	}
	s.pos = prev
	return prev, true
}

// Position returns the current meta-genome position.
func (s *Scanner) Position() int64 {
	return s.pos
}

// Current returns the visible variants starting at the current position,
// in track order.
func (s *Scanner) Current() []*metagenome.Variant {
	if !s.started {
		return nil
	}
	var out []*metagenome.Variant
	for _, c := range s.cursors {
		for i := c.lo; i < c.hi; i++ {
			if c.visible(i, s.displayDependent) {
				out = append(out, c.variants[i])
			}
		}
	}
	return out
}

// Reset moves the scanner back before the first variant.
func (s *Scanner) Reset() {
	for _, c := range s.cursors {
		c.lo, c.hi = 0, 0
	}
	s.pos, s.started = 0, false
}
