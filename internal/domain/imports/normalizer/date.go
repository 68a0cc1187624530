package normalizer

import (
	"strconv"
	"strings"
	"time"
)

// excelEpoch is the zero of Excel's 1900 date system, shifted two days to
// absorb the conventional off-by-one plus the phantom 1900-02-29.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// dateLayouts are tried in order after the Excel-serial check. DD/MM/YYYY
// comes before anything that could read the same digits month-first.
var dateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
	"2/1/2006",
	"2006/01/02",
	"02.01.2006",
	"2 January 2006",
	"January 2, 2006",
}

// ParseDate converts a raw cell into a date. The order matters: a purely
// numeric cell greater than 1 is an Excel serial date and must be resolved
// before any string-format attempt could misread it. The second return value
// is false when nothing matched; callers report that as a field error, never
// substitute a default.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial > 1 {
			days := int(serial)
			frac := serial - float64(days)
			t := excelEpoch.AddDate(0, 0, days).
				Add(time.Duration(frac * 24 * float64(time.Hour)))
			return t, true
		}
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	// Last resort: a lenient pass over ISO-with-time encodings some
	// spreadsheet tools emit.
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "02/01/2006 15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}
