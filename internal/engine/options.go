package engine

import (
	"sort"
	"time"
)

// CategoricalOption is one multi-select the dashboard offers.
type CategoricalOption struct {
	Column string
	Values []string
}

// DateOption is the date-range picker, bounded by the sample.
type DateOption struct {
	Column string
	Min    time.Time
	Max    time.Time
}

// FilterOptions are the filters derived from column profiles: the first
// maxCategorical categorical columns and the first date column.
type FilterOptions struct {
	Categorical []CategoricalOption
	Date        *DateOption
}

// DateRange is a user-chosen [Start, End] for the date filter.
type DateRange struct {
	Column string
	Start  time.Time
	End    time.Time
}

// Selection is what the user picked. Columns absent from Categorical keep
// their default (every option selected); a nil DateRange keeps the sample
// bounds.
type Selection struct {
	Categorical map[string][]string
	DateRange   *DateRange
}

func BuildFilterOptions(profiles []ColumnProfile, maxCategorical int) FilterOptions {
	if maxCategorical <= 0 {
		maxCategorical = DefaultMaxCategoricalFilters
	}
	var opts FilterOptions
	for _, p := range profiles {
		switch p.Kind {
		case KindCategorical:
			if len(opts.Categorical) < maxCategorical {
				opts.Categorical = append(opts.Categorical, CategoricalOption{
					Column: p.Name,
					Values: append([]string(nil), p.DistinctValues...),
				})
			}
		case KindDateColumn:
			if opts.Date == nil {
				opts.Date = &DateOption{Column: p.Name, Min: day(p.MinDate), Max: day(p.MaxDate)}
			}
		}
	}
	return opts
}

// DefaultSelection selects every option and the full sample date range.
func (o FilterOptions) DefaultSelection() Selection {
	sel := Selection{Categorical: make(map[string][]string, len(o.Categorical))}
	for _, c := range o.Categorical {
		sel.Categorical[c.Column] = append([]string(nil), c.Values...)
	}
	if o.Date != nil {
		sel.DateRange = &DateRange{Column: o.Date.Column, Start: o.Date.Min, End: o.Date.Max}
	}
	return sel
}

// Spec merges sel over the defaults and freezes the result. Selecting a
// column that is not offered as a filter is a ConfigMismatchError.
func (o FilterOptions) Spec(sel Selection) (FilterSpec, error) {
	offered := make(map[string]bool, len(o.Categorical))
	for _, c := range o.Categorical {
		offered[c.Column] = true
	}
	names := make([]string, 0, len(sel.Categorical))
	for col := range sel.Categorical {
		names = append(names, col)
	}
	sort.Strings(names)
	for _, col := range names {
		if !offered[col] {
			return FilterSpec{}, &ConfigMismatchError{Column: col, Reason: "not a categorical filter column"}
		}
	}

	cats := make([]CategoricalFilter, 0, len(o.Categorical))
	for _, c := range o.Categorical {
		allowed := c.Values
		if picked, ok := sel.Categorical[c.Column]; ok {
			allowed = picked
		}
		cats = append(cats, CategoricalFilter{Column: c.Column, Allowed: allowed})
	}

	var date *DateFilter
	switch {
	case sel.DateRange != nil:
		if o.Date == nil {
			return FilterSpec{}, &ConfigMismatchError{Column: sel.DateRange.Column, Reason: "dataset has no date filter"}
		}
		if sel.DateRange.Column != "" && sel.DateRange.Column != o.Date.Column {
			return FilterSpec{}, &ConfigMismatchError{Column: sel.DateRange.Column, Reason: "only " + o.Date.Column + " takes a date filter"}
		}
		date = &DateFilter{Column: o.Date.Column, Start: sel.DateRange.Start, End: sel.DateRange.End}
	case o.Date != nil:
		date = &DateFilter{Column: o.Date.Column, Start: o.Date.Min, End: o.Date.Max}
	}
	return NewFilterSpec(cats, date), nil
}
