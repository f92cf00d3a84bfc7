package engine

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the type a single cell was parsed into at load time.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "null"
	}
}

// Value is one typed cell. Raw keeps the text as uploaded so exports
// round-trip without reformatting.
type Value struct {
	Kind Kind
	Raw  string
	Num  float64
	Time time.Time
}

// Tokens spreadsheet readers conventionally treat as missing.
var nullTokens = map[string]struct{}{
	"#N/A": {}, "N/A": {}, "n/a": {}, "NA": {}, "NULL": {}, "null": {},
	"NaN": {}, "nan": {}, "-NaN": {}, "<NA>": {}, "None": {},
}

// Slash dates are read month-first, the way US spreadsheet exports write
// them. Dotted dates are day-first.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05.000Z07:00",
	"2006/01/02",
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"01-02-06",
	"1/2/06",
	"02.01.2006",
	"2-Jan-2006",
	"Jan 2, 2006",
}

// ParseValue types a raw cell: empty or a null token is null, then
// number, then date, otherwise string.
func ParseValue(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Value{Kind: KindNull}
	}
	if _, ok := nullTokens[s]; ok {
		return Value{Kind: KindNull, Raw: raw}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return Value{Kind: KindNumber, Raw: raw, Num: f}
	}
	if t, ok := parseDate(s); ok {
		return Value{Kind: KindDate, Raw: raw, Time: t}
	}
	return Value{Kind: KindString, Raw: raw}
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDate parses a filter bound using the same layouts as cells.
func ParseDate(s string) (time.Time, bool) {
	return parseDate(strings.TrimSpace(s))
}

func (v Value) IsNull() bool { return v.Kind == KindNull }

// Key is the identity used for distinct values and categorical membership.
func (v Value) Key() string {
	return strings.TrimSpace(v.Raw)
}

func (v Value) Float() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

func (v Value) Date() (time.Time, bool) {
	if v.Kind != KindDate {
		return time.Time{}, false
	}
	return v.Time, true
}

// day truncates t to its calendar date.
func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
