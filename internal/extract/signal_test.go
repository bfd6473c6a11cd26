package extract

import (
	"strings"
	"testing"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name  string
		input SignalInput
		want  SignalScore
	}{
		{
			name: "strict phrase with keyword near date",
			input: SignalInput{
				Text:    "Veri Yapıları Ödev 2 Yeni ödeviniz var. Son teslim: 15.03.2025",
				Title:   "Veri Yapıları Ödev 2",
				DueText: "15.03.2025",
			},
			want: SignalScore{Positive: 6, Negative: 0, Total: 6,
				HasKeywordNearDueDate: true, HasAnyHomeworkKeyword: true, HasStrictMatch: true},
		},
		{
			name: "strict phrase in title and text",
			input: SignalInput{
				Text:    "Ödeviniz var! Son teslim 01.04.2025",
				Title:   "Ödeviniz var",
				DueText: "01.04.2025",
			},
			want: SignalScore{Positive: 9, Negative: 0, Total: 9,
				HasKeywordNearDueDate: true, HasAnyHomeworkKeyword: true, HasStrictMatch: true},
		},
		{
			name: "seminar form without homework keyword",
			input: SignalInput{
				Text:    "Seminer Paneli başvuru formu Son teslim tarihi: 15.03.2025",
				Title:   "Seminer Paneli başvuru formu",
				DueText: "15.03.2025",
			},
			// title: seminer 2 + panel 2 + paneli 2 + basvuru 2 + form 1
			// text:  seminer 1 + panel 1 + paneli 1 + basvuru 1 + form 1
			want: SignalScore{Positive: 0, Negative: 14, Total: -14},
		},
		{
			name: "warning marker only adds one",
			input: SignalInput{
				Text:       "Rapor teslimi Son teslim 01.04.2025",
				DueText:    "01.04.2025",
				HasWarning: true,
			},
			want: SignalScore{Positive: 1, Negative: 0, Total: 1},
		},
		{
			name: "keyword far from date scores anywhere weight",
			input: SignalInput{
				Text:    "Homework " + strings.Repeat("lorem ipsum ", 30) + "Son teslim 01.04.2025",
				DueText: "01.04.2025",
			},
			want: SignalScore{Positive: 1, Negative: 0, Total: 1, HasAnyHomeworkKeyword: true},
		},
		{
			name: "due text missing from block",
			input: SignalInput{
				Text:    "Assignment uploaded",
				DueText: "01.04.2025",
			},
			want: SignalScore{Positive: 1, Negative: 0, Total: 1, HasAnyHomeworkKeyword: true},
		},
		{
			name:  "empty input",
			input: SignalInput{},
			want:  SignalScore{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.input, nil)
			if got != tt.want {
				t.Errorf("Evaluate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_WindowBoundary(t *testing.T) {
	rules := DefaultRules()
	due := "01.04.2025"

	// keyword ends exactly at the window edge
	inside := "odev" + strings.Repeat("x", rules.DueWindow-4) + due
	if got := Evaluate(SignalInput{Text: inside, DueText: due}, rules); !got.HasKeywordNearDueDate {
		t.Errorf("keyword %d chars before the date should count as near", rules.DueWindow)
	}

	outside := "odev" + strings.Repeat("x", rules.DueWindow-3) + due
	if got := Evaluate(SignalInput{Text: outside, DueText: due}, rules); got.HasKeywordNearDueDate {
		t.Errorf("keyword beyond the window should not count as near")
	}
}

// A keyword only in the title, with the date far down the body, is not near
// the date: the title does not carry the date text itself.
func TestEvaluate_TitleKeywordWithDistantDate(t *testing.T) {
	in := SignalInput{
		Title:   "Ödev 3",
		Text:    "Ödev 3 " + strings.Repeat("lorem ipsum ", 30) + "Son teslim 01.04.2025",
		DueText: "01.04.2025",
	}
	got := Evaluate(in, nil)
	if got.HasKeywordNearDueDate {
		t.Fatalf("Evaluate() = %+v, want no keyword near the date", got)
	}
	if !got.HasAnyHomeworkKeyword {
		t.Errorf("Evaluate() = %+v, want the title keyword counted", got)
	}
	if r := Accept(got, false); r != RejectNoSignal {
		t.Errorf("Accept() = %q, want %q", r, RejectNoSignal)
	}
}

func TestAccept(t *testing.T) {
	tests := []struct {
		name    string
		score   SignalScore
		warning bool
		want    Rejection
	}{
		{"strict passes", SignalScore{Positive: 3, Total: 3, HasStrictMatch: true}, false, ""},
		{"near plus keyword passes", SignalScore{Positive: 2, Total: 2, HasKeywordNearDueDate: true, HasAnyHomeworkKeyword: true}, false, ""},
		{"no signal", SignalScore{Positive: 1, Total: 1, HasAnyHomeworkKeyword: true}, false, RejectNoSignal},
		{"warning opens first gate", SignalScore{Positive: 2, Total: 2, HasAnyHomeworkKeyword: true}, true, ""},
		{"warning without keyword", SignalScore{Positive: 1, Total: 1}, true, RejectNoKeyword},
		{"negative total", SignalScore{Positive: 2, Negative: 3, Total: -1, HasKeywordNearDueDate: true, HasAnyHomeworkKeyword: true}, false, RejectLowScore},
		{"zero total", SignalScore{Positive: 2, Negative: 2, Total: 0, HasKeywordNearDueDate: true, HasAnyHomeworkKeyword: true}, false, RejectLowScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Accept(tt.score, tt.warning); got != tt.want {
				t.Errorf("Accept() = %q, want %q", got, tt.want)
			}
		})
	}
}
