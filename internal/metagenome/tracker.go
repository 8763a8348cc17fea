package metagenome

import "sort"

// Alleles is the number of chromosome copies tracked per genome.
const Alleles = 2

// Event is one observation held by a genome's Position, on one allele.
type Event struct {
	Type        VariantType
	Length      int64
	ExtraOffset int64 // dead zone left by a longer insertion at the same position
	Call        *Call

	// Dropped marks an insertion the last synchronization could not use.
	// The event stays recorded so a later Compute reports it again.
	Dropped bool
}

// active returns ev unless the last synchronization dropped it.
func (ev *Event) active() *Event {
	if ev == nil || ev.Dropped {
		return nil
	}
	return ev
}

// Position is a tracker entry at one reference position.
//
// The initial offsets apply to the reference position itself; the next
// offsets apply to every reference position after it, up to the following
// entry. Meta offsets are shared by every genome; genome offsets are per
// allele and map the reference onto the genome's own sequence.
type Position struct {
	RefPos      int64
	Events      [Alleles]*Event
	Synthesized bool  // blank padding created by the synchronizer
	Padding     int64 // longest insertion of any genome at this position

	InitialMetaOffset   int64
	NextMetaOffset      int64
	InitialGenomeOffset [Alleles]int64
	NextGenomeOffset    [Alleles]int64
}

// InsertionLength returns the length of the insertion carried by allele, or 0.
func (p *Position) InsertionLength(allele int) int64 {
	if ev := p.Events[allele].active(); ev != nil && ev.Type == Insertion {
		return ev.Length
	}
	return 0
}

// HasEvents reports whether any allele holds an observation.
func (p *Position) HasEvents() bool {
	for _, ev := range p.Events {
		if ev != nil {
			return true
		}
	}
	return false
}

// MetaStart returns the meta-genome coordinate of the entry's reference base.
func (p *Position) MetaStart() int64 {
	return p.RefPos + p.InitialMetaOffset
}

func (p *Position) resetOffsets() {
	p.Padding = 0
	p.InitialMetaOffset, p.NextMetaOffset = 0, 0
	p.InitialGenomeOffset = [Alleles]int64{}
	p.NextGenomeOffset = [Alleles]int64{}
	for _, ev := range p.Events {
		if ev != nil {
			ev.ExtraOffset = 0
			ev.Dropped = false
		}
	}
}

// genomeShift is how far an event moves the genome's own coordinates.
func (ev *Event) genomeShift() int64 {
	if ev == nil {
		return 0
	}
	switch ev.Type {
	case Insertion:
		return ev.Length
	case Deletion:
		return -abs(ev.Length)
	case Structural:
		if ev.Length < 0 {
			return ev.Length
		}
	}
	return 0
}

// PositionTracker holds the entries of one (genome, chromosome) pair in
// ascending reference position, with a cursor on the last entry passed by
// a linear scan.
type PositionTracker struct {
	entries  map[int64]*Position
	index    []int64 // strictly increasing
	previous *Position
}

// NewPositionTracker creates an empty tracker.
func NewPositionTracker() *PositionTracker {
	return &PositionTracker{entries: make(map[int64]*Position)}
}

// Len returns the number of entries.
func (t *PositionTracker) Len() int {
	return len(t.index)
}

// Get returns the entry at a reference position, or nil.
func (t *PositionTracker) Get(pos int64) *Position {
	return t.entries[pos]
}

// At returns the i-th entry in ascending order.
func (t *PositionTracker) At(i int) *Position {
	return t.entries[t.index[i]]
}

// Positions returns a copy of the ascending reference positions.
func (t *PositionTracker) Positions() []int64 {
	out := make([]int64, len(t.index))
	copy(out, t.index)
	return out
}

// LastPosition returns the highest reference position, or 0 when empty.
func (t *PositionTracker) LastPosition() int64 {
	if len(t.index) == 0 {
		return 0
	}
	return t.index[len(t.index)-1]
}

// Ensure returns the entry at pos, creating an empty one if needed.
func (t *PositionTracker) Ensure(pos int64) *Position {
	if e, ok := t.entries[pos]; ok {
		return e
	}
	e := &Position{RefPos: pos}
	t.entries[pos] = e

	// Records mostly arrive in order.
	n := len(t.index)
	if n == 0 || t.index[n-1] < pos {
		t.index = append(t.index, pos)
		return e
	}
	i := sort.Search(n, func(i int) bool { return t.index[i] >= pos })
	t.index = append(t.index, 0)
	copy(t.index[i+1:], t.index[i:])
	t.index[i] = pos
	return e
}

// Add records an event on one allele. It reports false when the allele
// already holds an event at that position.
func (t *PositionTracker) Add(pos int64, allele int, ev *Event) bool {
	e := t.Ensure(pos)
	if e.Events[allele] != nil {
		return false
	}
	e.Events[allele] = ev
	e.Synthesized = false
	return true
}

// Floor returns the last entry at or before pos, or nil.
func (t *PositionTracker) Floor(pos int64) *Position {
	i := sort.Search(len(t.index), func(i int) bool { return t.index[i] > pos })
	if i == 0 {
		return nil
	}
	return t.entries[t.index[i-1]]
}

// Previous returns the entry most recently passed by the scan, or nil.
func (t *PositionTracker) Previous() *Position {
	return t.previous
}

// Rewind moves the scan cursor before the first entry.
func (t *PositionTracker) Rewind() {
	t.previous = nil
}

// advance moves the cursor onto the entry at pos, if the tracker has one.
func (t *PositionTracker) advance(pos int64) {
	if e, ok := t.entries[pos]; ok {
		t.previous = e
	}
}

// chain seeds an entry's initial offsets from the previous entry's next offsets.
func (t *PositionTracker) chain(e *Position) {
	if t.previous == nil {
		e.InitialMetaOffset = 0
		e.InitialGenomeOffset = [Alleles]int64{}
		return
	}
	e.InitialMetaOffset = t.previous.NextMetaOffset
	e.InitialGenomeOffset = t.previous.NextGenomeOffset
}

// reset drops synthesized entries and clears every offset, so the tracker
// can be synchronized again.
func (t *PositionTracker) reset() {
	kept := t.index[:0]
	for _, pos := range t.index {
		e := t.entries[pos]
		if e.Synthesized {
			delete(t.entries, pos)
			continue
		}
		e.resetOffsets()
		kept = append(kept, pos)
	}
	t.index = kept
	t.previous = nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
