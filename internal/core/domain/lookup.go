package domain

import "sort"

// LookupValue is one permitted value of an enumerated field.
type LookupValue struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// LookupTable is the ordered set of permitted values for a lookup or enum.
type LookupTable struct {
	Name   string        `json:"name"`
	Values []LookupValue `json:"values"`
	// Approximate is set for tables synthesised by sampling live data.
	// Such tables only contain values observed in the sample, not every
	// value the server accepts.
	Approximate bool `json:"approximate,omitempty"`
	// Error is set when the table could not be resolved.
	Error string `json:"error,omitempty"`
}

// Label returns the display label of a value, or the value itself.
func (t *LookupTable) Label(value string) string {
	for _, v := range t.Values {
		if v.Value == value {
			return v.Label
		}
	}
	return value
}

// Len returns the number of values.
func (t *LookupTable) Len() int {
	return len(t.Values)
}

// SampledLookupTable builds an approximate table from observed values.
// Values are de-duplicated and sorted; each label equals its value.
func SampledLookupTable(name string, observed []string) LookupTable {
	seen := make(map[string]struct{}, len(observed))
	distinct := make([]string, 0, len(observed))
	for _, v := range observed {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		distinct = append(distinct, v)
	}
	sort.Strings(distinct)

	values := make([]LookupValue, len(distinct))
	for i, v := range distinct {
		values[i] = LookupValue{Value: v, Label: v}
	}
	return LookupTable{Name: name, Values: values, Approximate: true}
}
