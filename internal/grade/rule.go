package grade

import (
	"regexp"
	"strconv"
)

var periodPattern = regexp.MustCompile(`/Ders/(\d{4})/(\d)`)

// Period is an academic term. Semester 1 is autumn, 2 spring, 3 summer.
type Period struct {
	Year     int `json:"year"`
	Semester int `json:"semester"`
}

// ParsePeriod reads the term from a course page path such as /Ders/2025/1.
func ParsePeriod(path string) *Period {
	m := periodPattern.FindStringSubmatch(path)
	if m == nil {
		return nil
	}
	year, _ := strconv.Atoi(m[1])
	semester, _ := strconv.Atoi(m[2])
	return &Period{Year: year, Semester: semester}
}

// FinalRule is the final-exam pass requirement and the first term it applies to.
type FinalRule struct {
	Year     int     `json:"year"`
	Semester int     `json:"semester"`
	PassMark float64 `json:"pass_mark"`
}

// DefaultFinalRule applies from the 2025 autumn term with a pass mark of 40.
func DefaultFinalRule() FinalRule {
	return FinalRule{Year: 2025, Semester: 1, PassMark: 40}
}

// Active reports whether the rule applies to p. An unknown term never activates it.
func (r FinalRule) Active(p *Period) bool {
	if p == nil {
		return false
	}
	if p.Year > r.Year {
		return true
	}
	return p.Year == r.Year && p.Semester >= r.Semester
}

// FinalInfo describes the exam that decides the final-failure override.
type FinalInfo struct {
	Note       float64 `json:"note"`
	NoteType   string  `json:"note_type"`
	Failed     bool    `json:"failed"`
	RuleActive bool    `json:"rule_active"`
}

// Evaluate builds the override input from the table's final and makeup
// notes. The makeup note wins when present. Returns nil when the rule is
// inactive or neither note was entered.
func (r FinalRule) Evaluate(p *Period, t TableResult) *FinalInfo {
	if !r.Active(p) {
		return nil
	}
	switch {
	case t.MakeupNote != nil:
		return &FinalInfo{Note: *t.MakeupNote, NoteType: "Bütünleme", Failed: *t.MakeupNote < r.PassMark, RuleActive: true}
	case t.FinalNote != nil:
		return &FinalInfo{Note: *t.FinalNote, NoteType: "Final", Failed: *t.FinalNote < r.PassMark, RuleActive: true}
	}
	return nil
}
