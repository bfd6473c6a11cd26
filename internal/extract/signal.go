package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/sabis-tools/sabis/internal/text"
)

// SignalInput is one candidate block as seen by the evaluator.
type SignalInput struct {
	Text       string
	Title      string
	DueText    string
	HasWarning bool
}

// SignalScore is the evaluator's verdict on a candidate.
type SignalScore struct {
	Positive              int  `json:"positive"`
	Negative              int  `json:"negative"`
	Total                 int  `json:"total"`
	HasKeywordNearDueDate bool `json:"hasKeywordNearDueDate"`
	HasAnyHomeworkKeyword bool `json:"hasAnyHomeworkKeyword"`
	HasStrictMatch        bool `json:"hasStrictMatch"`
}

// Rejection names the gate a candidate failed. Empty means accepted.
type Rejection string

const (
	RejectNoSignal  Rejection = "no_signal"
	RejectNoKeyword Rejection = "no_keyword"
	RejectLowScore  Rejection = "low_score"
	RejectNoDate    Rejection = "no_date"
)

// Evaluate scores a candidate block against the homework heuristics.
func Evaluate(in SignalInput, rules *Rules) SignalScore {
	r := rules.ready()

	normText := text.NormaliseForMatch(in.Text)
	normTitle := text.NormaliseForMatch(in.Title)
	normDue := text.NormaliseForMatch(in.DueText)

	strictText := containsAny(normText, r.strict)
	strictTitle := normTitle != "" && containsAny(normTitle, r.strict)

	nearText := r.keywordNear(normText, normDue)
	nearTitle := r.keywordNear(normTitle, normDue)
	inText := containsAny(normText, r.Keywords)
	inTitle := containsAny(normTitle, r.Keywords)

	score := SignalScore{
		HasKeywordNearDueDate: nearText || nearTitle,
		HasAnyHomeworkKeyword: inText || inTitle,
		HasStrictMatch:        strictText || strictTitle,
	}

	if strictText {
		score.Positive += r.StrictWeight
	}
	if strictTitle {
		score.Positive += r.StrictWeight
	}
	if score.HasKeywordNearDueDate {
		score.Positive += r.NearWeight
	} else if inText {
		score.Positive += r.AnywhereWeight
	}
	if inTitle {
		score.Positive += r.TitleWeight
	}
	if in.HasWarning {
		score.Positive += r.WarningWeight
	}

	for _, p := range r.Penalties {
		if p.Keyword == "" {
			continue
		}
		if strings.Contains(normTitle, p.Keyword) {
			score.Negative += p.Title
		}
		if strings.Contains(normText, p.Keyword) {
			score.Negative += p.Text
		}
	}

	score.Total = score.Positive - score.Negative
	return score
}

// Accept applies the independent gates that do not depend on the date.
// The date gate is applied by the caller, after scoring.
func Accept(score SignalScore, hasWarning bool) Rejection {
	if !score.HasStrictMatch && !score.HasKeywordNearDueDate && !hasWarning {
		return RejectNoSignal
	}
	if !score.HasAnyHomeworkKeyword && !score.HasStrictMatch {
		return RejectNoKeyword
	}
	if score.Positive <= 0 || score.Total <= 0 {
		return RejectLowScore
	}
	return ""
}

// keywordNear reports whether a homework keyword sits within DueWindow
// characters of due. Both arguments must already be normalised. When due
// does not occur in hay, proximity is unconfirmed and the answer is false;
// the anywhere-in-text signal covers that case.
func (r *Rules) keywordNear(hay, due string) bool {
	if hay == "" || due == "" {
		return false
	}
	idx := strings.Index(hay, due)
	if idx < 0 {
		return false
	}

	runes := []rune(hay)
	at := utf8.RuneCountInString(hay[:idx])
	start := max(0, at-r.DueWindow)
	end := min(len(runes), at+utf8.RuneCountInString(due)+r.DueWindow)

	return containsAny(string(runes[start:end]), r.Keywords)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}
