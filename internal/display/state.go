package display

import "fmt"

// DisplayState is the visibility of one entry of a display list.
type DisplayState byte

const (
	Show DisplayState = iota
	// ShowFiltered is a variant that fails a filter but filtered variants are shown.
	ShowFiltered
	HideFiltered
	// HideReference is an unfiltered homozygous reference call while
	// references are hidden.
	HideReference
	// HideAll is a filtered homozygous reference call while references are hidden.
	HideAll
)

var stateNames = [...]string{
	Show:          "SHOW",
	ShowFiltered:  "SHOW_FILTERED",
	HideFiltered:  "HIDE_FILTERED",
	HideReference: "HIDE_REFERENCE",
	HideAll:       "HIDE_ALL",
}

func (s DisplayState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("DisplayState(%d)", s)
}

// Hidden reports whether the entry is skipped by display-dependent scans.
func (s DisplayState) Hidden() bool {
	return s == HideFiltered || s == HideReference || s == HideAll
}

// Filtered reports whether the entry failed a filter when its state was set.
func (s DisplayState) Filtered() bool {
	return s == ShowFiltered || s == HideFiltered || s == HideAll
}

// Options are the two visibility settings of a display list.
type Options struct {
	ShowFiltered  bool
	ShowReference bool
}

// stateFor classifies one entry. A hidden reference call wins over the
// filter display choice and remembers whether it was filtered.
func stateFor(filtered, reference bool, opts Options) DisplayState {
	if reference && !opts.ShowReference {
		if filtered {
			return HideAll
		}
		return HideReference
	}
	if filtered {
		if opts.ShowFiltered {
			return ShowFiltered
		}
		return HideFiltered
	}
	return Show
}

// Transition reclassifies an existing state under new options without
// evaluating any filter.
func Transition(prev DisplayState, reference bool, opts Options) DisplayState {
	return stateFor(prev.Filtered(), reference, opts)
}
