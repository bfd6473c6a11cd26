package grade

import (
	"github.com/sabis-tools/sabis/internal/metrics"
)

// Projection methods.
const (
	MethodAbsolute     = "absolute"
	MethodRelative     = "relative"
	MethodFinalFailure = "final_failure"
)

// ProjectInput is what a projection needs: the course score, an optional
// class average and optional final-exam information.
type ProjectInput struct {
	Score        float64
	ClassAverage *float64
	Final        *FinalInfo
}

// Projection is the projected outcome of a course.
type Projection struct {
	Score        float64    `json:"score"`
	ClassAverage *float64   `json:"class_average,omitempty"`
	TScore       *float64   `json:"t_score,omitempty"`
	Absolute     Band       `json:"absolute"`
	Relative     *Band      `json:"relative,omitempty"`
	Projected    Band       `json:"projected"`
	Method       string     `json:"method"`
	Color        string     `json:"color"`
	Scenarios    []Scenario `json:"scenarios,omitempty"`
	Final        *FinalInfo `json:"final,omitempty"`
}

// Project resolves the better of the absolute and curved grades and builds
// the what-if scenarios. A failed final under an active rule replaces the
// outcome with FD (when the standing was otherwise at least FD) or FF, and
// no scenarios are produced.
func Project(in ProjectInput) Projection {
	p := Projection{
		Score:        in.Score,
		ClassAverage: in.ClassAverage,
		Absolute:     Absolute(in.Score),
		Final:        in.Final,
	}

	p.Projected, p.Method = p.Absolute, MethodAbsolute
	if in.ClassAverage != nil {
		t := TScore(in.Score, *in.ClassAverage)
		rel := Relative(in.Score, *in.ClassAverage)
		p.TScore, p.Relative = &t, &rel
		if rel.Coefficient > p.Absolute.Coefficient {
			p.Projected, p.Method = rel, MethodRelative
		}
	}

	if in.Final != nil && in.Final.RuleActive && in.Final.Failed {
		p.Projected = finalFailureBand(p.Projected)
		p.Method = MethodFinalFailure
	} else {
		p.Scenarios = Scenarios(in.Score, in.ClassAverage)
	}

	p.Color = GradeColor(p.Projected.Letter)
	metrics.ProjectedGrades.WithLabelValues(p.Projected.Letter, p.Method).Inc()
	return p
}

func finalFailureBand(standing Band) Band {
	fd, _ := ByLetter("FD")
	if standing.Coefficient >= fd.Coefficient {
		return fd
	}
	ff, _ := ByLetter("FF")
	return ff
}
