package frame

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order. Layouts without a zone parse as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
	"2006.01.02 15:04:05",
	"2006.01.02",
	"2006. 1. 2",
	"2006. 1. 2.",
	"1/2/2006 15:04:05",
	"1/2/2006",
}

// Date parses c as a timestamp. Missing or unparseable cells yield nil.
func (c Cell) Date() *time.Time {
	if !c.Valid {
		return nil
	}
	return ParseDate(c.Value)
}

// ParseDate parses s against the supported layouts, returning nil when no
// layout matches.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// Float parses c as a number. Missing, unparseable or non-finite cells
// yield nil. Thousands separators are accepted.
func (c Cell) Float() *float64 {
	if !c.Valid {
		return nil
	}
	s := strings.ReplaceAll(strings.TrimSpace(c.Value), ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Int parses c as an integer. Integral floats such as "3.0" are accepted;
// fractional values yield nil.
func (c Cell) Int() *int64 {
	f := c.Float()
	if f == nil {
		return nil
	}
	if *f != math.Trunc(*f) || math.Abs(*f) > math.MaxInt64/2 {
		return nil
	}
	v := int64(*f)
	return &v
}

// IntOr parses c as an integer, returning def when it is missing or invalid.
func (c Cell) IntOr(def int) int {
	if v := c.Int(); v != nil {
		return int(*v)
	}
	return def
}

// String returns the cell value, or "" when missing.
func (c Cell) String() string {
	if !c.Valid {
		return ""
	}
	return c.Value
}
