package engine

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Format is the detected container of an upload.
type Format string

const (
	FormatUnknown Format = ""
	FormatXLSX    Format = "xlsx"
	FormatCSV     Format = "csv"
	FormatHTML    Format = "html"
)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	utf8BOM  = []byte("\xEF\xBB\xBF")
)

var (
	errLegacyWorkbook = errors.New("legacy binary .xls workbooks are not supported, save as .xlsx")
	errNotTabular     = errors.New("content is not a spreadsheet")
	errNoHeader       = errors.New("no header row")
	errNoTable        = errors.New("no <table> element")
)

// DetectFormat sniffs the upload content, falling back to the file
// extension only to tell CSV apart from arbitrary text.
func DetectFormat(name string, content []byte) Format {
	switch {
	case bytes.HasPrefix(content, zipMagic):
		return FormatXLSX
	case bytes.HasPrefix(content, oleMagic):
		return FormatUnknown
	}

	head := content
	if len(head) > 1024 {
		head = head[:1024]
	}
	head = bytes.TrimPrefix(head, utf8BOM)
	lower := bytes.ToLower(bytes.TrimSpace(head))
	if bytes.HasPrefix(lower, []byte("<!doctype html")) ||
		bytes.Contains(lower, []byte("<html")) ||
		bytes.Contains(lower, []byte("<table")) {
		return FormatHTML
	}

	if bytes.IndexByte(head, 0) >= 0 || !utf8.Valid(head) {
		return FormatUnknown
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", "":
		return FormatCSV
	}
	return FormatUnknown
}

// Load parses an uploaded spreadsheet into a Dataset. The first row is the
// header. Any failure is reported as ErrUnreadableFile.
func Load(name string, content []byte) (*Dataset, Format, error) {
	format := DetectFormat(name, content)

	var (
		records [][]Value
		err     error
	)
	switch format {
	case FormatXLSX:
		records, err = readXLSX(content)
	case FormatCSV:
		records, err = readCSV(content)
	case FormatHTML:
		records, err = readHTML(content)
	default:
		if bytes.HasPrefix(content, oleMagic) {
			err = errLegacyWorkbook
		} else {
			err = errNotTabular
		}
	}
	if err != nil {
		return nil, format, unreadable(name, format, err)
	}

	ds, err := buildDataset(records)
	if err != nil {
		return nil, format, unreadable(name, format, err)
	}
	return ds, format, nil
}

// LoadFile reads path from disk and calls Load.
func LoadFile(path string) (*Dataset, Format, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, FormatUnknown, unreadable(filepath.Base(path), FormatUnknown, err)
	}
	return Load(filepath.Base(path), content)
}

func readCSV(content []byte) ([][]Value, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(content, utf8BOM)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var out [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv read: %w", err)
		}
		out = append(out, rec)
	}
	return parseRecords(out), nil
}

func readHTML(content []byte) ([][]Value, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, errNoTable
	}

	var out [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var rec []string
		tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
			rec = append(rec, strings.TrimSpace(cell.Text()))
		})
		out = append(out, rec)
	})
	return parseRecords(out), nil
}

func parseRecords(records [][]string) [][]Value {
	out := make([][]Value, len(records))
	for i, rec := range records {
		row := make([]Value, len(rec))
		for j, s := range rec {
			row[j] = ParseValue(s)
		}
		out[i] = row
	}
	return out
}

// buildDataset turns typed records into aligned rows. The header is taken
// from the first record's text. Blank rows are skipped, short rows are
// padded with nulls and cells past the header are dropped.
func buildDataset(records [][]Value) (*Dataset, error) {
	if len(records) == 0 {
		return nil, errNoHeader
	}
	header := make([]string, len(records[0]))
	for i, v := range records[0] {
		header[i] = v.Raw
	}
	columns := headerNames(header)
	if len(columns) == 0 {
		return nil, errNoHeader
	}

	rows := make([][]Value, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blankRecord(rec) {
			continue
		}
		row := make([]Value, len(columns))
		copy(row, rec)
		rows = append(rows, row)
	}
	return NewDataset(columns, rows), nil
}

// headerNames trims the header, names blank cells "Unnamed: <i>" and
// suffixes duplicates with ".1", ".2", ...
func headerNames(header []string) []string {
	last := len(header)
	for last > 0 && strings.TrimSpace(header[last-1]) == "" {
		last--
	}
	header = header[:last]

	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		base := name
		for n := seen[base]; ; n++ {
			if _, taken := seen[name]; !taken {
				break
			}
			name = base + "." + strconv.Itoa(n)
		}
		seen[base]++
		if name != base {
			seen[name] = 1
		}
		out[i] = name
	}
	return out
}

func blankRecord(rec []Value) bool {
	for _, v := range rec {
		if strings.TrimSpace(v.Raw) != "" {
			return false
		}
	}
	return true
}
