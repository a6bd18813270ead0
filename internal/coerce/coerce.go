// Package coerce converts raw spreadsheet cell values into typed Go values.
// Every function is total: malformed input degrades to an absent (nil) or
// zero result, never to a panic or an error. Nil and empty strings are
// treated uniformly as "absent".
package coerce

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"maintsync/internal/logging"
)

// ToInt converts ints, floats, and numeric strings to an integer value.
// Fractional input is truncated ("3.9" becomes 3, "123.0" becomes 123),
// matching the float-then-int cast the source exports require. Returns nil
// when the value is absent or not numeric.
func ToInt(value interface{}) *int64 {
	switch v := value.(type) {
	case nil:
		return nil
	case int:
		n := int64(v)
		return &n
	case int32:
		n := int64(v)
		return &n
	case int64:
		return &v
	case float32:
		n := int64(v)
		return &n
	case float64:
		n := int64(v)
		return &n
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		// Tolerate thousands separators and stray inner spaces.
		s = strings.ReplaceAll(s, " ", "")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			logging.Logf(logging.Debug, "ToInt: unparseable value %q", v)
			return nil
		}
		n := int64(f)
		return &n
	default:
		s := strings.TrimSpace(fmt.Sprintf("%v", value))
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		n := int64(f)
		return &n
	}
}

// ToDecimal converts numbers and locale-formatted strings to a fixed-point
// decimal. When a dot appears before the last comma the dots are taken as
// thousands separators; otherwise commas are taken as the decimal point.
// Unparseable input yields zero, not an error: missing quantities count as
// zero in this system.
func ToDecimal(value interface{}) decimal.Decimal {
	switch v := value.(type) {
	case nil:
		return decimal.Zero
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case float32:
		return decimal.NewFromFloat32(v)
	case float64:
		return decimal.NewFromFloat(v)
	case decimal.Decimal:
		return v
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return decimal.Zero
		}
		lastComma := strings.LastIndex(s, ",")
		if lastComma != -1 && strings.Index(s, ".") != -1 && strings.Index(s, ".") < lastComma {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", ".")
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			logging.Logf(logging.Debug, "ToDecimal: unparseable value %q, using zero", v)
			return decimal.Zero
		}
		return d
	default:
		d, err := decimal.NewFromString(strings.TrimSpace(fmt.Sprintf("%v", value)))
		if err != nil {
			return decimal.Zero
		}
		return d
	}
}

// ToString trims a value's string form and truncates it silently to maxLen
// runes (0 means unlimited). Values empty after trimming become nil.
func ToString(value interface{}, maxLen int) *string {
	if value == nil {
		return nil
	}
	var s string
	switch v := value.(type) {
	case string:
		s = v
	default:
		s = fmt.Sprintf("%v", value)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if maxLen > 0 {
		runes := []rune(s)
		if len(runes) > maxLen {
			s = string(runes[:maxLen])
		}
	}
	return &s
}

// dateLayouts accepted by ToDate, tried in order.
var dateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
}

// ToDate parses DD/MM/YYYY and YYYY-MM-DD strings, passing through values
// that already carry date semantics. Anything else yields nil.
func ToDate(value interface{}) *time.Time {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		if v.IsZero() {
			return nil
		}
		d := time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)
		return &d
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return &t
			}
		}
		return nil
	default:
		return nil
	}
}

// ToClock parses a time of day, accepting HH:MM:SS and then HH:MM.
// Returns nil for anything else.
func ToClock(value interface{}) *time.Time {
	s := ""
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		return &v
	case string:
		s = strings.TrimSpace(v)
	default:
		s = strings.TrimSpace(fmt.Sprintf("%v", value))
	}
	if s == "" {
		return nil
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
