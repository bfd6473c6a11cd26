package ops

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sabis-tools/sabis/internal/errors"
	"github.com/sabis-tools/sabis/internal/extract"
)

func titles(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Title
	}
	return out
}

func TestCategorize_Buckets(t *testing.T) {
	loc := istanbul(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, loc)
	at := func(d time.Duration) int64 { return now.Add(d).UnixMilli() }

	entries := []Entry{
		{Title: "geçmiş", DueTimestamp: at(-2 * time.Hour)},
		{Title: "yarın", DueTimestamp: at(24 * time.Hour)},
		{Title: "beş gün", DueTimestamp: at(5 * 24 * time.Hour)},
		{Title: "on gün", DueTimestamp: at(10 * 24 * time.Hour)},
		{Title: "tarihsiz"},
	}

	b, err := Categorize(entries, CategorizeInput{DueSoonDays: 3, LongTermDays: 10, Now: now})
	require.NoError(t, err)

	require.Equal(t, []string{"geçmiş"}, titles(b.Overdue))
	require.Equal(t, []string{"yarın", "beş gün"}, titles(b.DueSoon))
	require.Equal(t, []string{"on gün"}, titles(b.LongTerm))
	require.Equal(t, 4, b.Len())
	require.Equal(t, "Bugün teslim", b.Overdue[0].Countdown)
	require.Equal(t, int64(-2*time.Hour/time.Millisecond), b.Overdue[0].DiffMs)
}

func TestCategorize_SearchIsTurkishCaseInsensitive(t *testing.T) {
	now := time.Now()
	entries := []Entry{
		{Title: "İŞLETİM SİSTEMLERİ ödevi", DueTimestamp: now.Add(time.Hour).UnixMilli()},
		{Title: "Fizik", DueTimestamp: now.Add(time.Hour).UnixMilli()},
	}

	b, err := Categorize(entries, CategorizeInput{DueSoonDays: 3, LongTermDays: 10, Search: "işletim", Now: now})
	require.NoError(t, err)
	require.Equal(t, []string{"İŞLETİM SİSTEMLERİ ödevi"}, titles(b.DueSoon))
}

func TestCategorize_Sorting(t *testing.T) {
	now := time.Now()
	mk := func(title string, d time.Duration) Entry {
		return Entry{Title: title, DueTimestamp: now.Add(d).UnixMilli()}
	}
	entries := []Entry{
		mk("Çizim", 30*time.Hour),
		mk("Ağ", 10*time.Hour),
		mk("Zeka", 20*time.Hour),
		mk("Cebir", 40*time.Hour),
	}

	tests := []struct {
		sort string
		want []string
	}{
		{"", []string{"Ağ", "Zeka", "Çizim", "Cebir"}},
		{SortDateAsc, []string{"Ağ", "Zeka", "Çizim", "Cebir"}},
		{SortDateDesc, []string{"Cebir", "Çizim", "Zeka", "Ağ"}},
		{SortNameAsc, []string{"Ağ", "Cebir", "Çizim", "Zeka"}},
		{SortNameDesc, []string{"Zeka", "Çizim", "Cebir", "Ağ"}},
	}
	for _, tt := range tests {
		t.Run(tt.sort, func(t *testing.T) {
			b, err := Categorize(entries, CategorizeInput{DueSoonDays: 3, LongTermDays: 10, Sort: tt.sort, Now: now})
			require.NoError(t, err)
			require.Equal(t, tt.want, titles(b.DueSoon))
		})
	}
}

func TestCategorize_OverdueSortedByDistance(t *testing.T) {
	now := time.Now()
	entries := []Entry{
		{Title: "çok eski", DueTimestamp: now.Add(-72 * time.Hour).UnixMilli()},
		{Title: "az önce", DueTimestamp: now.Add(-time.Hour).UnixMilli()},
	}
	b, err := Categorize(entries, CategorizeInput{DueSoonDays: 3, LongTermDays: 10, Now: now})
	require.NoError(t, err)
	require.Equal(t, []string{"az önce", "çok eski"}, titles(b.Overdue))
}

func TestCategorize_UnknownSort(t *testing.T) {
	_, err := Categorize(nil, CategorizeInput{Sort: "random"})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST, got %v", err)
	}
}

func TestCountdown(t *testing.T) {
	const day = int64(24 * time.Hour / time.Millisecond)
	tests := []struct {
		diff int64
		want string
	}{
		{-2 * day, "Süresi geçti"},
		{-day, "Süresi geçti"},
		{-day / 2, "Bugün teslim"},
		{0, "Saatler içinde teslim"},
		{day / 4, "Saatler içinde teslim"},
		{day / 2, "1 gün kaldı"},
		{day, "1 gün kaldı"},
		{day + 1, "2 gün kaldı"},
		{10 * day, "10 gün kaldı"},
	}
	for _, tt := range tests {
		if got := Countdown(tt.diff); got != tt.want {
			t.Errorf("Countdown(%d) = %q, want %q", tt.diff, got, tt.want)
		}
	}
}

func TestAssignmentCalendarURL(t *testing.T) {
	loc := istanbul(t)
	due := time.Date(2025, 3, 15, 23, 59, 0, 0, loc)

	raw := AssignmentCalendarURL("Veri Yapıları Ödev 2", due, loc)
	require.True(t, strings.HasPrefix(raw, "https://calendar.google.com/calendar/render?"))

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	require.Equal(t, "TEMPLATE", q.Get("action"))
	require.Equal(t, "[SABİS] Ödev Teslimi: Veri Yapıları Ödev 2", q.Get("text"))
	require.Equal(t, "20250315T235900/20250316T005900", q.Get("dates"))
	require.Equal(t, "SABİS - Sakarya Üniversitesi", q.Get("location"))
	require.Contains(t, q.Get("details"), "Teslim Tarihi: 15.03.2025 23:59")
}

func TestExamCalendarURL(t *testing.T) {
	loc := istanbul(t)
	at := time.Date(2025, 11, 10, 10, 30, 0, 0, loc)

	u, err := url.Parse(ExamCalendarURL("Kısa Sınav 1", at.UTC(), loc))
	require.NoError(t, err)
	q := u.Query()
	require.Equal(t, "[SABİS] Kısa Sınav: Kısa Sınav 1", q.Get("text"))
	require.Equal(t, "20251110T103000/20251110T113000", q.Get("dates"))
	require.Contains(t, q.Get("details"), "Sınav Zamanı: 10.11.2025 10:30")
}

func TestExamEntries_SkipsUndated(t *testing.T) {
	loc := istanbul(t)
	due := time.Date(2025, 11, 10, 10, 30, 0, 0, loc).UnixMilli()
	join := "https://esinav.sabis.sakarya.edu.tr/Session/Exam/Join/1"

	entries := ExamEntries([]extract.Exam{
		{Title: "Kısa Sınav 1", DueTimestamp: &due, JoinURL: &join, StatusText: "Aktif"},
		{Title: "Kısa Sınav 2", DateRangeText: "tarih yok"},
	}, loc)

	require.Len(t, entries, 1)
	require.Equal(t, KindExam, entries[0].Kind)
	require.Equal(t, join, entries[0].Link)
	require.Equal(t, "10.11.2025 10:30", entries[0].DueLabel)
	require.Contains(t, entries[0].CalendarURL, "calendar.google.com")

	untitled := ExamEntries([]extract.Exam{{DueTimestamp: &due}}, loc)
	require.Equal(t, "Sınav", untitled[0].Title)
}

func TestAssignmentEntries(t *testing.T) {
	loc := istanbul(t)
	due := time.Date(2025, 3, 15, 23, 59, 0, 0, loc).UnixMilli()

	entries := AssignmentEntries([]extract.Assignment{
		{Title: "", DueTimestamp: due, SourceURL: "https://obs.sabis.sakarya.edu.tr/Ders/Odev/42"},
	}, loc)

	require.Len(t, entries, 1)
	require.Equal(t, KindAssignment, entries[0].Kind)
	require.Equal(t, "Ödev", entries[0].Title)
	require.Equal(t, "15.03.2025 23:59", entries[0].DueLabel)
	require.Contains(t, entries[0].CalendarURL, url.QueryEscape("[SABİS] Ödev Teslimi: Ödev"))
}
