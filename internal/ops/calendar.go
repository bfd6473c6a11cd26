package ops

import (
	"net/url"
	"time"
)

const (
	calendarBase     = "https://calendar.google.com/calendar/render"
	calendarLocation = "SABİS - Sakarya Üniversitesi"
	calendarLayout   = "20060102T1504"
)

// AssignmentCalendarURL builds a Google Calendar template link for a
// one-hour event starting at the deadline.
func AssignmentCalendarURL(title string, due time.Time, loc *time.Location) string {
	return calendarURL(
		"[SABİS] Ödev Teslimi: "+title,
		"SABİS Ödev Teslimi\n\nÖdev: "+title+"\nTeslim Tarihi: "+FormatDue(due, loc)+
			"\n\n⚠️ Tavsiye: Hatırlatıcıyı 1 gün önceye kurunuz!",
		due, loc)
}

// ExamCalendarURL builds the calendar link for a quiz.
func ExamCalendarURL(title string, at time.Time, loc *time.Location) string {
	return calendarURL(
		"[SABİS] Kısa Sınav: "+title,
		"SABİS Kısa Sınav\n\nDers: "+title+"\nSınav Zamanı: "+FormatDue(at, loc)+
			"\n\n⚠️ Sınava zamanında katılmayı unutmayın!",
		at, loc)
}

// calendarURL encodes an event as wall-clock times in loc, without a zone suffix.
func calendarURL(text, details string, start time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	start = start.In(loc)
	end := start.Add(time.Hour)

	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", text)
	q.Set("dates", start.Format(calendarLayout)+"00/"+end.Format(calendarLayout)+"00")
	q.Set("details", details)
	q.Set("location", calendarLocation)
	return calendarBase + "?" + q.Encode()
}
