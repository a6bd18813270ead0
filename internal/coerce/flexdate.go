package coerce

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Portuguese month names mapped onto the English names the time layouts use.
var monthsPtToEn = map[string]string{
	"janeiro":   "January",
	"fevereiro": "February",
	"março":     "March",
	"marco":     "March",
	"abril":     "April",
	"maio":      "May",
	"junho":     "June",
	"julho":     "July",
	"agosto":    "August",
	"setembro":  "September",
	"outubro":   "October",
	"novembro":  "November",
	"dezembro":  "December",
}

// Layouts tried by ToFlexibleDate, in order. Covers the date shapes seen in
// 52-week schedule exports, including written-out Portuguese dates after
// month translation.
var flexibleLayouts = []string{
	"2 January 2006",
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
	"02.01.2006",
	"02/01/06",
	"02-01-06",
	"2 Jan 2006",
	"2 January 06",
	"2006/01/02",
	"01/02/2006",
	"2 de January de 2006",
	"2 de Jan de 2006",
}

var spaceRun = regexp.MustCompile(`\s+`)

// cleanDateText strips non-breaking spaces and collapses whitespace runs.
func cleanDateText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// translateMonth replaces a Portuguese month name with its English
// equivalent so the standard layouts can parse it.
func translateMonth(s string) string {
	lower := strings.ToLower(s)
	for pt, en := range monthsPtToEn {
		if idx := strings.Index(lower, pt); idx != -1 {
			return s[:idx] + en + s[idx+len(pt):]
		}
	}
	return s
}

// Excel serial dates count days from 1899-12-30.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ToFlexibleDate is the tolerant date parser used by the 52-week schedule
// import. It accepts values already carrying date semantics, Excel serial
// numbers, and a wide range of textual forms including Portuguese month
// names. Returns nil when nothing fits.
func ToFlexibleDate(value interface{}) *time.Time {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		if v.IsZero() {
			return nil
		}
		d := time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)
		return &d
	case int:
		return fromExcelSerial(float64(v))
	case int64:
		return fromExcelSerial(float64(v))
	case float64:
		return fromExcelSerial(v)
	}

	s := cleanDateText(stringOf(value))
	if s == "" {
		return nil
	}
	s = translateMonth(s)

	for _, layout := range flexibleLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func fromExcelSerial(days float64) *time.Time {
	if days < 1 || days > 200000 {
		return nil
	}
	t := excelEpoch.AddDate(0, 0, int(days))
	return &t
}

func stringOf(value interface{}) string {
	if s, ok := value.(string); ok {
		return s
	}
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%v", value)
}
