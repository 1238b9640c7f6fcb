package model

import "time"

// DateTimeLayout renders timestamps as a medium date and medium time,
// e.g. "19 Oct 2026, 3:04:05 pm".
const DateTimeLayout = "2 Jan 2006, 3:04:05 pm"

// FormatTime renders t in loc with DateTimeLayout.
func FormatTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateTimeLayout)
}
