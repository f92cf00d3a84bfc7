package engine

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// numFormat is what a cell's number format makes of a stored number.
type numFormat uint8

const (
	numFmtPlain numFormat = iota
	numFmtDate
	numFmtClock
)

// readXLSX reads the first sheet. Cells are typed from their stored values
// and number formats; the displayed text is kept as Raw.
func readXLSX(content []byte) ([][]Value, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	sheet := sheets[0]
	shown, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	stored, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	props, err := f.GetWorkbookProps()
	if err != nil {
		return nil, fmt.Errorf("workbook properties: %w", err)
	}

	sc := &sheetCells{
		f:        f,
		sheet:    sheet,
		date1904: props.Date1904 != nil && *props.Date1904,
		formats:  make(map[int]numFormat),
	}
	out := make([][]Value, len(shown))
	for r, rec := range shown {
		row := make([]Value, len(rec))
		for c, text := range rec {
			var raw string
			if r < len(stored) && c < len(stored[r]) {
				raw = stored[r][c]
			}
			row[c] = sc.value(r, c, raw, text)
		}
		out[r] = row
	}
	return out, nil
}

type sheetCells struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	formats  map[int]numFormat // by style index
}

// value types one cell. Only cells whose displayed text differs from the
// stored value need their type and style looked up.
func (s *sheetCells) value(r, c int, raw, text string) Value {
	if raw == text {
		return ParseValue(text)
	}
	ref, err := excelize.CoordinatesToCellName(c+1, r+1)
	if err != nil {
		return ParseValue(text)
	}
	typ, err := s.f.GetCellType(s.sheet, ref)
	if err != nil {
		return ParseValue(text)
	}
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
	case excelize.CellTypeDate:
		if v := ParseValue(raw); v.Kind == KindDate {
			v.Raw = text
			return v
		}
		return ParseValue(text)
	default:
		return ParseValue(text)
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return ParseValue(text)
	}
	switch s.format(ref) {
	case numFmtDate:
		t, err := excelize.ExcelDateToTime(n, s.date1904)
		if err != nil {
			return ParseValue(text)
		}
		return Value{Kind: KindDate, Raw: text, Time: t}
	case numFmtClock:
		// a time of day has no calendar date
		return ParseValue(text)
	}
	return Value{Kind: KindNumber, Raw: text, Num: n}
}

func (s *sheetCells) format(ref string) numFormat {
	id, err := s.f.GetCellStyle(s.sheet, ref)
	if err != nil {
		return numFmtPlain
	}
	if nf, ok := s.formats[id]; ok {
		return nf
	}
	nf := numFmtPlain
	if style, err := s.f.GetStyle(id); err == nil {
		nf = classifyNumFmt(style.NumFmt, style.CustomNumFmt)
	}
	s.formats[id] = nf
	return nf
}

// classifyNumFmt sorts built-in format IDs and custom format codes into
// date, clock-time and plain number formats.
func classifyNumFmt(id int, custom *string) numFormat {
	if custom != nil {
		return classifyFormatCode(*custom)
	}
	switch {
	case 14 <= id && id <= 17, id == 22:
		return numFmtDate
	case 18 <= id && id <= 21, 45 <= id && id <= 47:
		return numFmtClock
	case 27 <= id && id <= 31, id == 36, id == 50, id == 51, id == 54, id == 57, id == 58:
		return numFmtDate
	case 32 <= id && id <= 35, id == 52, id == 53, id == 55, id == 56:
		return numFmtClock
	}
	return numFmtPlain
}

// classifyFormatCode scans the first section of a format code for date and
// time tokens, ignoring quoted literals, escapes and bracketed modifiers
// such as colors and locales. Elapsed-time brackets like [h] count as time.
func classifyFormatCode(code string) numFormat {
	code = strings.ToLower(code)
	var hasDate, hasClock, hasM bool
	for i := 0; i < len(code); i++ {
		switch ch := code[i]; ch {
		case ';':
			i = len(code)
		case '"':
			if j := strings.IndexByte(code[i+1:], '"'); j >= 0 {
				i += j + 1
			} else {
				i = len(code)
			}
		case '\\', '_', '*':
			i++
		case '[':
			j := strings.IndexByte(code[i:], ']')
			if j < 0 {
				i = len(code)
				break
			}
			if tok := strings.Trim(code[i+1:i+j], "hms"); tok == "" && j > 1 {
				hasClock = true
			}
			i += j
		case 'a':
			switch {
			case strings.HasPrefix(code[i:], "am/pm"):
				hasClock = true
				i += len("am/pm") - 1
			case strings.HasPrefix(code[i:], "a/p"):
				hasClock = true
				i += len("a/p") - 1
			}
		case 'y', 'd':
			hasDate = true
		case 'h', 's':
			hasClock = true
		case 'm':
			hasM = true
		}
	}
	switch {
	case hasDate:
		return numFmtDate
	case hasClock:
		return numFmtClock
	case hasM:
		// a lone m is a month, as in "mmm"
		return numFmtDate
	}
	return numFmtPlain
}
