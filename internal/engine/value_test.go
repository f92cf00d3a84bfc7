package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind Kind
	}{
		{"empty", "", KindNull},
		{"spaces", "   ", KindNull},
		{"na token", "N/A", KindNull},
		{"nan token", "NaN", KindNull},
		{"integer", "42", KindNumber},
		{"float", " 548.9715 ", KindNumber},
		{"negative", "-3.5", KindNumber},
		{"iso date", "2019-01-05", KindDate},
		{"us date", "1/5/2019", KindDate},
		{"timestamp", "2019-01-05 13:08:00", KindDate},
		{"excel short date", "01-05-19", KindDate},
		{"time of day", "13:08", KindString},
		{"text", "Health and beauty", KindString},
		{"invoice id", "750-67-8428", KindString},
		{"infinity", "Inf", KindString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseValue(tt.in)
			assert.Equal(t, tt.kind, got.Kind, "ParseValue(%q)", tt.in)
		})
	}
}

func TestParseValueKeepsRaw(t *testing.T) {
	v := ParseValue(" 7 ")
	assert.Equal(t, " 7 ", v.Raw)
	assert.Equal(t, "7", v.Key())
	f, ok := v.Float()
	assert.True(t, ok)
	assert.Equal(t, 7.0, f)

	_, ok = v.Date()
	assert.False(t, ok)
}

func TestParseDateMonthFirst(t *testing.T) {
	d, ok := ParseDate("3/8/2019")
	assert.True(t, ok)
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 8, d.Day())
}

func TestParseDateDottedIsDayFirst(t *testing.T) {
	d, ok := ParseDate("03.08.2019")
	assert.True(t, ok)
	assert.Equal(t, time.August, d.Month())
	assert.Equal(t, 3, d.Day())
}
