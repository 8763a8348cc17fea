package display

import (
	"fmt"

	"github.com/inodb/metagenome/internal/metagenome"
)

// Filter decides whether a variant passes. Filters only see variants that
// carry call data; padding and merged entries always pass.
type Filter interface {
	Pass(v *metagenome.Variant) bool
	String() string
}

// QualityFilter rejects calls below a minimum quality.
type QualityFilter struct {
	Min float64
}

func (f QualityFilter) Pass(v *metagenome.Variant) bool {
	q, ok := v.Quality()
	return !ok || q >= f.Min
}

func (f QualityFilter) String() string {
	return fmt.Sprintf("QUAL>=%g", f.Min)
}

// PassFilter rejects calls whose FILTER column is set to anything other
// than PASS or the missing value.
type PassFilter struct{}

func (PassFilter) Pass(v *metagenome.Variant) bool {
	if v.Call == nil {
		return true
	}
	switch v.Call.Filter {
	case "PASS", ".", "":
		return true
	}
	return false
}

func (PassFilter) String() string { return "FILTER=PASS" }

// FieldFilter keeps calls whose FORMAT field Key equals Value.
type FieldFilter struct {
	Key   string
	Value string
}

func (f FieldFilter) Pass(v *metagenome.Variant) bool {
	if v.Call == nil {
		return true
	}
	return v.Call.Fields[f.Key] == f.Value
}

func (f FieldFilter) String() string {
	return fmt.Sprintf("%s=%s", f.Key, f.Value)
}

// filtered reports whether any filter rejects the variant.
func filtered(v *metagenome.Variant, filters []Filter) bool {
	if v.Call == nil {
		return false
	}
	for _, f := range filters {
		if !f.Pass(v) {
			return true
		}
	}
	return false
}
