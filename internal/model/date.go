package model

import "time"

// DateLayout is the wire format of every calendar date in query results.
const DateLayout = "2006-01-02"

// EarliestDate is the first calendar date any store can represent. Windows
// reaching further back start here.
var EarliestDate = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

// DateOf returns midnight UTC of the calendar day containing t.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a calendar date by n days.
func AddDays(date time.Time, n int) time.Time {
	return DateOf(date).AddDate(0, 0, n)
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(date time.Time) string {
	return date.UTC().Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
