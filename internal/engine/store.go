package engine

// Dataset holds an upload in row-major form. Every row is aligned to Columns.
// A Dataset is never mutated after construction; filtering derives a new one
// that shares the row slices.
type Dataset struct {
	Columns []string
	// Rows is read-only. The row slices are shared with the cached upload
	// and every view derived from it, so callers must copy before editing.
	Rows [][]Value

	index map[string]int
}

func NewDataset(columns []string, rows [][]Value) *Dataset {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		idx[c] = i
	}
	return &Dataset{Columns: columns, Rows: rows, index: idx}
}

// derive builds a view over a subset of rows with the same columns.
func (d *Dataset) derive(rows [][]Value) *Dataset {
	return &Dataset{Columns: d.Columns, Rows: rows, index: d.index}
}

func (d *Dataset) Len() int { return len(d.Rows) }

func (d *Dataset) ColumnIndex(name string) (int, bool) {
	i, ok := d.index[name]
	return i, ok
}

// Sample returns the first n rows (all rows when n exceeds the length).
func (d *Dataset) Sample(n int) *Dataset {
	if n < 0 || n >= len(d.Rows) {
		return d.derive(d.Rows)
	}
	return d.derive(d.Rows[:n])
}

// Column returns the values of one column in row order.
func (d *Dataset) Column(i int) []Value {
	out := make([]Value, len(d.Rows))
	for r, row := range d.Rows {
		out[r] = row[i]
	}
	return out
}
