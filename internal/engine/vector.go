package engine

import (
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
)

// measureVector extracts a numeric column as an Arrow Float64 array. Cells
// that are not numbers become nulls and are skipped by every reducer, the
// way spreadsheet sums skip blanks. The caller must Release the array.
func measureVector(mem memory.Allocator, d *Dataset, col int) *array.Float64 {
	b := array.NewFloat64Builder(mem)
	defer b.Release()

	b.Reserve(d.Len())
	for _, row := range d.Rows {
		if f, ok := row[col].Float(); ok {
			b.Append(f)
		} else {
			b.AppendNull()
		}
	}
	return b.NewFloat64Array()
}

func sumVector(a *array.Float64) float64 {
	var s float64
	for i := 0; i < a.Len(); i++ {
		if a.IsValid(i) {
			s += a.Value(i)
		}
	}
	return s
}
