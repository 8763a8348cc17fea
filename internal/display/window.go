package display

import "sort"

// FindStart returns the index of value in ascending starts when present,
// else the index right after where it would sit. Equal starts resolve to
// the first of them.
func FindStart(starts []int64, value int64) int {
	return sort.Search(len(starts), func(i int) bool { return starts[i] >= value })
}

// FindStop returns the index of value in ascending stops when present,
// else the index right before where it would sit. Equal stops resolve to
// the last of them. The result is -1 when every stop exceeds value.
func FindStop(stops []int64, value int64) int {
	return sort.Search(len(stops), func(i int) bool { return stops[i] > value }) - 1
}

// bracket returns the index range [lo, hi) holding every entry whose
// half-open span intersects the closed window [s, e]. starts must be
// ascending and maxStop[i] must be the largest stop of entries [0, i].
//
// Searching the running maximum instead of the raw stops makes the left
// neighbour check exact: a long entry starting far before the window keeps
// lo low enough to reach it. Entries inside the range may still miss the
// window and need an Overlaps check.
func bracket(starts, maxStop []int64, s, e int64) (lo, hi int) {
	if len(starts) == 0 || e < s {
		return 0, 0
	}
	hi = FindStart(starts, e+1)
	lo = FindStop(maxStop[:hi], s) + 1
	return lo, hi
}

// spanIndex holds the search keys of a start-ordered slice of spans.
type spanIndex struct {
	starts  []int64
	maxStop []int64
}

func newSpanIndex(n int, span func(i int) (start, stop int64)) spanIndex {
	idx := spanIndex{
		starts:  make([]int64, n),
		maxStop: make([]int64, n),
	}
	for i := 0; i < n; i++ {
		start, stop := span(i)
		idx.starts[i] = start
		idx.maxStop[i] = stop
		if i > 0 && idx.maxStop[i-1] > stop {
			idx.maxStop[i] = idx.maxStop[i-1]
		}
	}
	return idx
}

func (x spanIndex) bracket(s, e int64) (lo, hi int) {
	return bracket(x.starts, x.maxStop, s, e)
}
