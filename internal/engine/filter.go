package engine

import (
	"time"
)

const DefaultMaxCategoricalFilters = 5

// CategoricalFilter keeps rows whose value is one of Allowed. An empty
// Allowed set keeps nothing.
type CategoricalFilter struct {
	Column  string
	Allowed []string
}

// DateFilter keeps rows whose date falls in [Start, End], compared by
// calendar day.
type DateFilter struct {
	Column string
	Start  time.Time
	End    time.Time
}

type categoricalPredicate struct {
	CategoricalFilter
	set map[string]struct{}
}

// FilterSpec is an immutable conjunction of column predicates. Build it
// with NewFilterSpec or FilterOptions.Spec once per interaction.
type FilterSpec struct {
	categorical []categoricalPredicate
	date        *DateFilter
}

// NewFilterSpec copies its inputs, so later changes by the caller do not
// leak into the filter.
func NewFilterSpec(cats []CategoricalFilter, date *DateFilter) FilterSpec {
	spec := FilterSpec{categorical: make([]categoricalPredicate, 0, len(cats))}
	for _, c := range cats {
		allowed := append([]string(nil), c.Allowed...)
		set := make(map[string]struct{}, len(allowed))
		for _, v := range allowed {
			set[v] = struct{}{}
		}
		spec.categorical = append(spec.categorical, categoricalPredicate{
			CategoricalFilter: CategoricalFilter{Column: c.Column, Allowed: allowed},
			set:               set,
		})
	}
	if date != nil {
		d := *date
		spec.date = &d
	}
	return spec
}

func (s FilterSpec) Categorical() []CategoricalFilter {
	out := make([]CategoricalFilter, len(s.categorical))
	for i, p := range s.categorical {
		out[i] = CategoricalFilter{Column: p.Column, Allowed: append([]string(nil), p.Allowed...)}
	}
	return out
}

func (s FilterSpec) Date() (DateFilter, bool) {
	if s.date == nil {
		return DateFilter{}, false
	}
	return *s.date, true
}

// Columns lists every constrained column.
func (s FilterSpec) Columns() []string {
	out := make([]string, 0, len(s.categorical)+1)
	for _, p := range s.categorical {
		out = append(out, p.Column)
	}
	if s.date != nil {
		out = append(out, s.date.Column)
	}
	return out
}

// Apply returns the rows of d that satisfy every predicate of spec. d is
// not modified. A predicate on a column d lacks is a ConfigMismatchError.
func Apply(d *Dataset, spec FilterSpec) (*Dataset, error) {
	type boundCat struct {
		col int
		set map[string]struct{}
	}
	cats := make([]boundCat, 0, len(spec.categorical))
	for _, p := range spec.categorical {
		col, ok := d.ColumnIndex(p.Column)
		if !ok {
			return nil, &ConfigMismatchError{Column: p.Column, Reason: "column not in dataset"}
		}
		cats = append(cats, boundCat{col: col, set: p.set})
	}

	dateCol := -1
	var start, end time.Time
	if spec.date != nil {
		col, ok := d.ColumnIndex(spec.date.Column)
		if !ok {
			return nil, &ConfigMismatchError{Column: spec.date.Column, Reason: "column not in dataset"}
		}
		dateCol = col
		start, end = day(spec.date.Start), day(spec.date.End)
	}

	kept := make([][]Value, 0, len(d.Rows))
rows:
	for _, row := range d.Rows {
		for _, c := range cats {
			v := row[c.col]
			if v.IsNull() {
				continue rows
			}
			if _, ok := c.set[v.Key()]; !ok {
				continue rows
			}
		}
		if dateCol >= 0 {
			t, ok := row[dateCol].Date()
			if !ok {
				continue
			}
			t = day(t)
			if t.Before(start) || t.After(end) {
				continue
			}
		}
		kept = append(kept, row)
	}
	return d.derive(kept), nil
}
