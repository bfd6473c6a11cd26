package grade

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// leadingNumber matches the numeric prefix parseFloat-style readers accept.
var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// Tone names the color band of a weighted average.
type Tone string

const (
	ToneGood    Tone = "green"
	ToneAverage Tone = "blue"
	TonePoor    Tone = "red"
)

// Component is one grading row of a course table.
type Component struct {
	Label string   `json:"label"`
	Ratio *float64 `json:"ratio"`
	Score *float64 `json:"score"`
}

// TableResult is everything read from one course grade table.
type TableResult struct {
	// Average is Σ(score·ratio)/100 over rows with both values
	Average float64 `json:"average"`

	// TotalRatio is Σratio over the same rows
	TotalRatio float64 `json:"total_ratio"`

	// ColorScore is Average rescaled to the ratios entered so far
	ColorScore float64 `json:"color_score"`

	Tone       Tone        `json:"tone"`
	HasMakeup  bool        `json:"has_makeup"`
	Components []Component `json:"components"`
	FinalNote  *float64    `json:"final_note,omitempty"`
	MakeupNote *float64    `json:"makeup_note,omitempty"`

	// Announced is the letter already published in the "başarı notu" row
	Announced string `json:"announced,omitempty"`
}

// ReadTable reads a grade table laid out as ratio | work type | score.
// A makeup ("Bütünleme") row anywhere in the table removes every final row
// from the sum. Summary rows are skipped.
func ReadTable(table *goquery.Selection) TableResult {
	rows := table.Find("tbody tr")

	var res TableResult
	rows.Each(func(_ int, row *goquery.Selection) {
		if label := cellLower(row.Find("td"), 1); label == "bütünleme" {
			res.HasMakeup = true
		}
	})

	var sum float64
	rows.Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}
		label := cellLower(cells, 1)
		score := scoreCell(cells.Eq(2))

		switch {
		case strings.Contains(label, "bütünleme"):
			if score != nil {
				res.MakeupNote = score
			}
		case strings.Contains(label, "final"):
			if score != nil {
				res.FinalNote = score
			}
		}

		if strings.Contains(label, "başarı notu") {
			if letter := strings.TrimSpace(cells.Eq(2).Text()); isLetterGrade(letter) {
				res.Announced = letter
			}
			return
		}
		if strings.Contains(label, "ortalama") {
			return
		}
		if res.HasMakeup && strings.Contains(label, "final") {
			return
		}

		ratio := parseNumber(cells.Eq(0).Text())
		res.Components = append(res.Components, Component{
			Label: strings.TrimSpace(cells.Eq(1).Text()),
			Ratio: ratio,
			Score: score,
		})
		if ratio == nil || score == nil {
			return
		}
		sum += *score * *ratio / 100
		res.TotalRatio += *ratio
	})

	if res.TotalRatio > 0 {
		res.Average = sum
		res.ColorScore = sum * 100 / res.TotalRatio
	}
	res.Tone = ToneFor(res.ColorScore)
	return res
}

// WeightedAverage is ReadTable(table).Average.
func WeightedAverage(table *goquery.Selection) float64 {
	return ReadTable(table).Average
}

// ToneFor buckets a color score: above 75 good, 55 and up average, else poor.
func ToneFor(colorScore float64) Tone {
	switch {
	case colorScore > 75:
		return ToneGood
	case colorScore >= 55:
		return ToneAverage
	default:
		return TonePoor
	}
}

// scoreCell prefers a live input's value over the cell text.
func scoreCell(cell *goquery.Selection) *float64 {
	if input := cell.Find("input").First(); input.Length() > 0 {
		v, _ := input.Attr("value")
		return parseNumber(v)
	}
	return parseNumber(cell.Text())
}

func cellLower(cells *goquery.Selection, i int) string {
	if i >= cells.Length() {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(cells.Eq(i).Text()))
}

// parseNumber reads a comma- or dot-decimal number prefix. Returns nil when
// s does not start with a number.
func parseNumber(s string) *float64 {
	s = strings.Replace(strings.TrimSpace(s), ",", ".", 1)
	m := leadingNumber.FindString(s)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &v
}

// isLetterGrade accepts short non-numeric marks such as AA, FF, YT.
func isLetterGrade(s string) bool {
	n := utf8.RuneCountInString(s)
	return n > 0 && n <= 3 && parseNumber(s) == nil
}
