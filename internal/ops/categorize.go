package ops

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sabis-tools/sabis/internal/config"
	"github.com/sabis-tools/sabis/internal/errors"
	"github.com/sabis-tools/sabis/internal/extract"
	"github.com/sabis-tools/sabis/internal/text"
)

// Sort modes.
const (
	SortDateAsc  = "dateAsc"
	SortDateDesc = "dateDesc"
	SortNameAsc  = "nameAsc"
	SortNameDesc = "nameDesc"
)

// Entry kinds.
const (
	KindAssignment = "assignment"
	KindExam       = "exam"
)

const msPerDay = 24 * 60 * 60 * 1000

// Entry is one dated item prepared for display.
type Entry struct {
	Kind         string `json:"kind"`
	Title        string `json:"title"`
	DueTimestamp int64  `json:"dueTimestamp"`
	DueLabel     string `json:"dueLabel"`
	DiffMs       int64  `json:"diffMs"`
	Countdown    string `json:"countdown"`
	CalendarURL  string `json:"calendarUrl"`
	Link         string `json:"link,omitempty"`
	Status       string `json:"status,omitempty"`
}

// Buckets groups entries by urgency.
type Buckets struct {
	DueSoon  []Entry `json:"dueSoon"`
	LongTerm []Entry `json:"longTerm"`
	Overdue  []Entry `json:"overdue"`
}

// Len returns the number of entries across all buckets.
func (b *Buckets) Len() int {
	return len(b.DueSoon) + len(b.LongTerm) + len(b.Overdue)
}

// CategorizeInput contains the display knobs for Categorize.
type CategorizeInput struct {
	DueSoonDays  int
	LongTermDays int
	Search       string
	Sort         string // one of the Sort* modes; empty means dateAsc
	Now          time.Time
}

// ValidSort reports whether mode names a sort order. Empty is accepted.
func ValidSort(mode string) bool {
	switch mode {
	case "", SortDateAsc, SortDateDesc, SortNameAsc, SortNameDesc:
		return true
	}
	return false
}

// AssignmentEntries turns assignments into entries.
func AssignmentEntries(items []extract.Assignment, loc *time.Location) []Entry {
	out := make([]Entry, 0, len(items))
	for _, a := range items {
		title := a.Title
		if title == "" {
			title = "Ödev"
		}
		out = append(out, Entry{
			Kind:         KindAssignment,
			Title:        title,
			DueTimestamp: a.DueTimestamp,
			DueLabel:     FormatDue(time.UnixMilli(a.DueTimestamp), loc),
			CalendarURL:  AssignmentCalendarURL(title, time.UnixMilli(a.DueTimestamp), loc),
			Link:         a.SourceURL,
		})
	}
	return out
}

// ExamEntries turns exams into entries. Exams without a timestamp are skipped.
func ExamEntries(items []extract.Exam, loc *time.Location) []Entry {
	out := make([]Entry, 0, len(items))
	for _, e := range items {
		if e.DueTimestamp == nil || *e.DueTimestamp == 0 {
			continue
		}
		title := e.Title
		if title == "" {
			title = "Sınav"
		}
		due := time.UnixMilli(*e.DueTimestamp)
		entry := Entry{
			Kind:         KindExam,
			Title:        title,
			DueTimestamp: *e.DueTimestamp,
			DueLabel:     FormatDue(due, loc),
			CalendarURL:  ExamCalendarURL(title, due, loc),
			Status:       e.StatusText,
		}
		if e.JoinURL != nil {
			entry.Link = *e.JoinURL
		}
		out = append(out, entry)
	}
	return out
}

// Categorize filters entries by search, splits them into overdue, due-soon
// and long-term buckets relative to in.Now, and sorts each bucket.
// Anything between the two thresholds counts as due soon.
func Categorize(entries []Entry, in CategorizeInput) (*Buckets, error) {
	if !ValidSort(in.Sort) {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown sort %q", in.Sort))
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	nowMs := now.UnixMilli()
	query := text.LowerTR(strings.TrimSpace(in.Search))

	b := &Buckets{DueSoon: []Entry{}, LongTerm: []Entry{}, Overdue: []Entry{}}
	for _, e := range entries {
		if query != "" && !strings.Contains(text.LowerTR(e.Title), query) {
			continue
		}
		if e.DueTimestamp == 0 {
			continue
		}

		e.DiffMs = e.DueTimestamp - nowMs
		e.Countdown = Countdown(e.DiffMs)
		days := float64(e.DiffMs) / msPerDay

		switch {
		case days < 0:
			b.Overdue = append(b.Overdue, e)
		case days <= float64(in.DueSoonDays):
			b.DueSoon = append(b.DueSoon, e)
		case days >= float64(in.LongTermDays):
			b.LongTerm = append(b.LongTerm, e)
		default:
			b.DueSoon = append(b.DueSoon, e)
		}
	}

	less := sorter(in.Sort, nowMs)
	for _, bucket := range [][]Entry{b.DueSoon, b.LongTerm, b.Overdue} {
		sort.SliceStable(bucket, func(i, j int) bool { return less(bucket[i], bucket[j]) })
	}
	return b, nil
}

func sorter(mode string, nowMs int64) func(a, b Entry) bool {
	dist := func(e Entry) int64 {
		d := e.DueTimestamp - nowMs
		if d < 0 {
			return -d
		}
		return d
	}

	switch mode {
	case SortDateDesc:
		return func(a, b Entry) bool { return dist(a) > dist(b) }
	case SortNameAsc, SortNameDesc:
		c := collate.New(language.Turkish)
		desc := mode == SortNameDesc
		return func(a, b Entry) bool {
			cmp := c.CompareString(text.LowerTR(a.Title), text.LowerTR(b.Title))
			if desc {
				return cmp > 0
			}
			return cmp < 0
		}
	}
	return func(a, b Entry) bool { return dist(a) < dist(b) }
}

// Countdown renders the time left until a deadline diffMs away.
func Countdown(diffMs int64) string {
	days := float64(diffMs) / msPerDay
	switch {
	case days <= -1:
		return "Süresi geçti"
	case days < 0:
		return "Bugün teslim"
	case days < 0.5:
		return "Saatler içinde teslim"
	}
	return fmt.Sprintf("%d gün kaldı", int(math.Ceil(days)))
}

// FormatDue renders t as dd.MM.yyyy HH:mm in loc.
func FormatDue(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("02.01.2006 15:04")
}

// CategorizeInputFor fills the thresholds from cfg.
func CategorizeInputFor(cfg *config.Config, search, sort string, now time.Time) CategorizeInput {
	return CategorizeInput{
		DueSoonDays:  cfg.DueSoonDays,
		LongTermDays: cfg.LongTermDays,
		Search:       search,
		Sort:         sort,
		Now:          now,
	}
}
