package duedate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ISOLayout matches the millisecond UTC form browsers emit for Date.toISOString.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// datePattern is D[./]M[./]YYYY with an optional H:MM suffix.
var datePattern = regexp.MustCompile(`(\d{1,2})[./](\d{1,2})[./](\d{4})(?:\s*(\d{1,2}):(\d{2}))?`)

// rangePattern is "D.M.YYYY H:MM[:SS] - D.M.YYYY H:MM[:SS]" with both ends required.
var rangePattern = regexp.MustCompile(
	`(\d{1,2})\.(\d{1,2})\.(\d{4})\s+(\d{1,2}):(\d{2})(?::(\d{2}))?\s*-\s*(\d{1,2})\.(\d{1,2})\.(\d{4})\s+(\d{1,2}):(\d{2})(?::(\d{2}))?`)

// DueDate is a deadline found in free text.
type DueDate struct {
	// Time is the deadline in the parser's location
	Time time.Time

	// ISO is the UTC ISO-8601 form of Time
	ISO string

	// Timestamp is Time in epoch milliseconds
	Timestamp int64

	// Text is the exact matched substring, trimmed
	Text string
}

// Range is a start/end pair parsed from an exam schedule cell.
type Range struct {
	Start time.Time
	End   time.Time
}

// Pattern returns the due-date regular expression. Callers use it to test
// whether a block of text looks date-bearing without building a DueDate.
func Pattern() *regexp.Regexp {
	return datePattern
}

// Parse returns the first deadline in text, or nil when none is present.
// A missing time means 23:59:00 on that day. Values that do not form a real
// calendar date (31.04, 29.02 in a non-leap year, 24:00) are treated as absent.
func Parse(text string, loc *time.Location) *DueDate {
	m := datePattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	hour, minute := 23, 59
	if m[4] != "" && m[5] != "" {
		hour, _ = strconv.Atoi(m[4])
		minute, _ = strconv.Atoi(m[5])
	}

	t, ok := build(year, month, day, hour, minute, 0, loc)
	if !ok {
		return nil
	}
	return &DueDate{
		Time:      t,
		ISO:       FormatISO(t),
		Timestamp: t.UnixMilli(),
		Text:      strings.TrimSpace(m[0]),
	}
}

// ParseRange parses an exam date range. Both ends must be fully qualified.
func ParseRange(text string, loc *time.Location) *Range {
	m := rangePattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}
	start, ok := buildFrom(m[1:7], loc)
	if !ok {
		return nil
	}
	end, ok := buildFrom(m[7:13], loc)
	if !ok {
		return nil
	}
	return &Range{Start: start, End: end}
}

// FormatISO renders t the way collected payloads carry instants.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// buildFrom converts day, month, year, hour, minute, second groups.
func buildFrom(g []string, loc *time.Location) (time.Time, bool) {
	day, _ := strconv.Atoi(g[0])
	month, _ := strconv.Atoi(g[1])
	year, _ := strconv.Atoi(g[2])
	hour, _ := strconv.Atoi(g[3])
	minute, _ := strconv.Atoi(g[4])
	second := 0
	if g[5] != "" {
		second, _ = strconv.Atoi(g[5])
	}
	return build(year, month, day, hour, minute, second, loc)
}

// build rejects values that time.Date would silently roll over.
func build(year, month, day, hour, minute, second int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, loc)
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return time.Time{}, false
	}
	return t, true
}
