package submission

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the layout reported dates are written with.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"2006/01/02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ParseDate converts a spreadsheet cell into a civil date at UTC midnight.
// Blank input yields the zero time. Spreadsheet serials are converted by the
// workbook reader, which knows the workbook's date system.
func ParseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return civil(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
