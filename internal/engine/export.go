package engine

import (
	"encoding/csv"
	"fmt"
	"io"
)

// ExportFileName is the download name of the filtered table.
const ExportFileName = "filtered_data.csv"

// WriteCSV writes d as UTF-8 CSV: a header row, then one line per row with
// each cell as originally uploaded. There is no index column.
func WriteCSV(w io.Writer, d *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(d.Columns))
	for _, row := range d.Rows {
		for i, v := range row {
			rec[i] = v.Raw
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// RawRows renders rows[offset:offset+limit] as their uploaded text.
func RawRows(d *Dataset, offset, limit int) [][]string {
	if offset >= d.Len() {
		return [][]string{}
	}
	end := offset + limit
	if end > d.Len() {
		end = d.Len()
	}
	out := make([][]string, 0, end-offset)
	for _, row := range d.Rows[offset:end] {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = v.Raw
		}
		out = append(out, rec)
	}
	return out
}
