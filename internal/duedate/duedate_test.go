package duedate

import (
	"testing"
	"time"
	_ "time/tzdata"
)

func istanbul(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Istanbul")
	if err != nil {
		t.Fatalf("LoadLocation() error = %v", err)
	}
	return loc
}

func TestParse_DefaultsToEndOfDay(t *testing.T) {
	loc := istanbul(t)

	got := Parse("Son teslim: 15.03.2025", loc)
	if got == nil {
		t.Fatal("Parse() = nil, want a due date")
	}

	want := time.Date(2025, 3, 15, 23, 59, 0, 0, loc)
	if !got.Time.Equal(want) {
		t.Errorf("Time = %v, want %v", got.Time, want)
	}
	if got.Timestamp != want.UnixMilli() {
		t.Errorf("Timestamp = %d, want %d", got.Timestamp, want.UnixMilli())
	}
	if got.Text != "15.03.2025" {
		t.Errorf("Text = %q, want %q", got.Text, "15.03.2025")
	}
	if got.ISO != "2025-03-15T20:59:00.000Z" {
		t.Errorf("ISO = %q, want %q", got.ISO, "2025-03-15T20:59:00.000Z")
	}
}

func TestParse_TimePresent(t *testing.T) {
	loc := istanbul(t)

	got := Parse("Teslim tarihi 15.03.2025 14:30", loc)
	if got == nil {
		t.Fatal("Parse() = nil, want a due date")
	}
	if got.Time.Hour() != 14 || got.Time.Minute() != 30 || got.Time.Second() != 0 {
		t.Errorf("Time = %v, want 14:30:00", got.Time)
	}
	if got.Text != "15.03.2025 14:30" {
		t.Errorf("Text = %q, want %q", got.Text, "15.03.2025 14:30")
	}
}

func TestParse_Variants(t *testing.T) {
	loc := istanbul(t)

	tests := []struct {
		name     string
		input    string
		wantNil  bool
		wantDate string
		wantText string
	}{
		{"slash separators", "due 5/3/2025", false, "2025-03-05 23:59", "5/3/2025"},
		{"single digit day and month", "1.2.2026 9:05 son", false, "2026-02-01 09:05", "1.2.2026 9:05"},
		{"first match wins", "15.03.2025 veya 20.03.2025", false, "2025-03-15 23:59", "15.03.2025"},
		{"no date", "Son teslim yakında", true, "", ""},
		{"two digit year", "15.03.25", true, "", ""},
		{"day 31 in a 30 day month", "31.04.2025", true, "", ""},
		{"february 29 non-leap", "29.02.2025", true, "", ""},
		{"february 29 leap", "29.02.2024", false, "2024-02-29 23:59", "29.02.2024"},
		{"month 13", "10.13.2025", true, "", ""},
		{"hour 24", "10.03.2025 24:00", true, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input, loc)
			if tt.wantNil {
				if got != nil {
					t.Errorf("Parse(%q) = %+v, want nil", tt.input, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("Parse(%q) = nil", tt.input)
			}
			if s := got.Time.Format("2006-01-02 15:04"); s != tt.wantDate {
				t.Errorf("Time = %s, want %s", s, tt.wantDate)
			}
			if got.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", got.Text, tt.wantText)
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	loc := istanbul(t)

	tests := []struct {
		name      string
		input     string
		wantNil   bool
		wantStart string
		wantEnd   string
	}{
		{
			name:      "without seconds",
			input:     "10.11.2025 10:00 - 10.11.2025 10:30",
			wantStart: "2025-11-10 10:00:00",
			wantEnd:   "2025-11-10 10:30:00",
		},
		{
			name:      "with seconds",
			input:     "1.12.2025 9:00:15 - 2.12.2025 23:59:59",
			wantStart: "2025-12-01 09:00:15",
			wantEnd:   "2025-12-02 23:59:59",
		},
		{
			name:    "missing end time",
			input:   "10.11.2025 10:00 - 10.11.2025",
			wantNil: true,
		},
		{
			name:    "slash dates are not exam ranges",
			input:   "10/11/2025 10:00 - 10/11/2025 10:30",
			wantNil: true,
		},
		{
			name:    "invalid end date",
			input:   "30.11.2025 10:00 - 31.11.2025 10:30",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseRange(tt.input, loc)
			if tt.wantNil {
				if got != nil {
					t.Errorf("ParseRange(%q) = %+v, want nil", tt.input, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ParseRange(%q) = nil", tt.input)
			}
			const layout = "2006-01-02 15:04:05"
			if s := got.Start.Format(layout); s != tt.wantStart {
				t.Errorf("Start = %s, want %s", s, tt.wantStart)
			}
			if s := got.End.Format(layout); s != tt.wantEnd {
				t.Errorf("End = %s, want %s", s, tt.wantEnd)
			}
		})
	}
}
