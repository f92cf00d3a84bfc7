package engine

import "time"

// ColumnKind is the coarse class the prober assigns a column.
type ColumnKind string

const (
	KindCategorical  ColumnKind = "categorical"
	KindDateColumn   ColumnKind = "date"
	KindNumeric      ColumnKind = "numeric"
	KindUnclassified ColumnKind = "unclassified"
)

const (
	DefaultSampleRows       = 100
	DefaultCategoricalLimit = 20
)

// ProbeOptions bounds the profiling sample.
type ProbeOptions struct {
	// SampleRows is how many leading rows are inspected.
	SampleRows int
	// CategoricalLimit is the exclusive upper bound on distinct values for
	// a column to count as categorical.
	CategoricalLimit int
}

func DefaultProbeOptions() ProbeOptions {
	return ProbeOptions{SampleRows: DefaultSampleRows, CategoricalLimit: DefaultCategoricalLimit}
}

// ColumnProfile is the prober's verdict for one column.
type ColumnProfile struct {
	Name string
	Kind ColumnKind
	// DistinctValues is set for categorical columns, in order of first
	// occurrence within the sample.
	DistinctValues []string
	// MinDate and MaxDate are the sample bounds of a date column.
	MinDate time.Time
	MaxDate time.Time
}

// Probe classifies every column of d using only its first SampleRows rows,
// so values that first appear later never become filter options.
//
// Per column, in priority order: all non-null values are dates -> date;
// all are numbers -> numeric; fewer than CategoricalLimit distinct values
// -> categorical; otherwise unclassified. A column with no non-null value
// in the sample (including an empty sample) is unclassified.
func Probe(d *Dataset, opt ProbeOptions) []ColumnProfile {
	if opt.SampleRows <= 0 {
		opt.SampleRows = DefaultSampleRows
	}
	if opt.CategoricalLimit <= 0 {
		opt.CategoricalLimit = DefaultCategoricalLimit
	}
	sample := d.Sample(opt.SampleRows)

	profiles := make([]ColumnProfile, len(d.Columns))
	for col, name := range d.Columns {
		profiles[col] = probeColumn(name, sample.Column(col), opt.CategoricalLimit)
	}
	return profiles
}

func probeColumn(name string, values []Value, limit int) ColumnProfile {
	p := ColumnProfile{Name: name, Kind: KindUnclassified}

	var (
		seen     bool
		allDate  = true
		allNum   = true
		distinct []string
		set      = make(map[string]struct{})
		capped   bool
	)
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		seen = true
		if v.Kind != KindDate {
			allDate = false
		}
		if v.Kind != KindNumber {
			allNum = false
		}
		if v.Kind == KindDate {
			if p.MinDate.IsZero() || v.Time.Before(p.MinDate) {
				p.MinDate = v.Time
			}
			if v.Time.After(p.MaxDate) {
				p.MaxDate = v.Time
			}
		}

		if capped {
			continue
		}
		k := v.Key()
		if _, ok := set[k]; ok {
			continue
		}
		set[k] = struct{}{}
		distinct = append(distinct, k)
		if len(distinct) >= limit {
			capped = true
		}
	}

	switch {
	case !seen:
		p.MinDate, p.MaxDate = time.Time{}, time.Time{}
	case allDate:
		p.Kind = KindDateColumn
	case allNum:
		p.Kind = KindNumeric
	case !capped:
		p.Kind = KindCategorical
		p.DistinctValues = distinct
	}
	if p.Kind != KindDateColumn {
		p.MinDate, p.MaxDate = time.Time{}, time.Time{}
	}
	return p
}
