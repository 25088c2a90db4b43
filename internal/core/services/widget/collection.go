package widget

import (
	"strings"

	widgetDomain "metricore/internal/core/domain/widget"
)

// loadedCollection implements formula.CollectionResolver over one
// dataset's loaded rows, the binding spec.md §4.8 describes as "the
// alias token resolves to a handle representing this collection".
type loadedCollection struct {
	entries []*widgetDomain.LoadedEntry
}

// Field returns the numeric coercion of attributes[name] across the
// collection. Rows missing the attribute, or holding a non-numeric
// value, are dropped rather than zero-filled (spec.md §9 Open Question 4).
func (c *loadedCollection) Field(name string) ([]float64, error) {
	out := make([]float64, 0, len(c.entries))
	for _, e := range c.entries {
		raw, ok := e.Attributes[name]
		if !ok {
			continue
		}
		f, ok := toFloat(raw)
		if !ok {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// Time returns, per entry, the summed time allocation for base: every
// TimeValues key equal to base or nested under it (base + "/...") is
// added in, one output slot per loaded entry (unlike Field, rows never
// drop out here — an entry with no matching key contributes 0).
func (c *loadedCollection) Time(base string) ([]float64, error) {
	out := make([]float64, len(c.entries))
	for i, e := range c.entries {
		var total int64
		for label, v := range e.TimeValues {
			if label == base || strings.HasPrefix(label, base+"/") {
				total += v
			}
		}
		out[i] = float64(total)
	}
	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
