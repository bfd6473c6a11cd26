package ops

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/sabis-tools/sabis/internal/config"
	"github.com/sabis-tools/sabis/internal/errors"
	"github.com/sabis-tools/sabis/internal/grade"
	"github.com/sabis-tools/sabis/internal/portal"
)

// courseCardSelector matches one course block on the grades page.
const courseCardSelector = ".card-custom.card-stretch"

// AverageSource looks up published class averages by course group.
type AverageSource interface {
	FetchClassAverage(ctx context.Context, groupID, token string) (*portal.ClassAverage, error)
}

// GradeInput contains parameters for the ProjectGrade operation.
type GradeInput struct {
	HTML    string // grades page or a single course table
	Path    string // or a saved page on disk
	PageURL string // course page URL; its /Ders/YYYY/S path selects the term

	// ClassAverage overrides every lookup when set
	ClassAverage *float64

	// Year and Semester override the term read from PageURL
	Year     int
	Semester int
}

// CourseGrade is the projection for one course table.
type CourseGrade struct {
	Course        string             `json:"course"`
	GroupID       string             `json:"group_id,omitempty"`
	Table         grade.TableResult  `json:"table"`
	Announced     string             `json:"announced,omitempty"`
	AverageSource string             `json:"average_source,omitempty"`
	RowAverages   []grade.RowAverage `json:"row_averages,omitempty"`
	Projection    grade.Projection   `json:"projection"`
	Period        *grade.Period      `json:"period,omitempty"`
}

// GradeOutput contains the result of the ProjectGrade operation.
type GradeOutput struct {
	Courses []CourseGrade `json:"courses"`
}

// ProjectGrade reads every course table in the input and projects a letter
// grade for each. Class averages come from input.ClassAverage, or from src
// when the card names a course group and src is non-nil. A failed average
// lookup is logged and the course falls back to the absolute scale.
func ProjectGrade(ctx context.Context, cfg *config.Config, src AverageSource, input GradeInput) (*GradeOutput, error) {
	if avg := input.ClassAverage; avg != nil && (math.IsNaN(*avg) || *avg < 0 || *avg > 100) {
		return nil, errors.NewInvalidRequest("class average must be a number between 0 and 100")
	}
	raw, err := htmlInput(input.HTML, input.Path)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, errors.NewParseFailed("grade table", err)
	}

	period := grade.ParsePeriod(input.PageURL)
	if input.Year > 0 || input.Semester > 0 {
		if input.Year <= 0 || input.Semester < 1 || input.Semester > 3 {
			return nil, errors.NewInvalidRequest("year and semester must be given together; semester is 1, 2 or 3")
		}
		period = &grade.Period{Year: input.Year, Semester: input.Semester}
	}
	rule := finalRule(cfg)
	token := portal.ExtractToken(raw)

	out := &GradeOutput{Courses: []CourseGrade{}}
	visit := func(name, cardHTML string, table *goquery.Selection) {
		course := CourseGrade{
			Course: name,
			Table:  grade.ReadTable(table),
			Period: period,
		}
		course.Announced = course.Table.Announced

		avg := input.ClassAverage
		if avg != nil {
			course.AverageSource = "input"
		} else if src != nil {
			if course.GroupID = grade.FindCourseGroupID(cardHTML); course.GroupID != "" {
				ca, err := src.FetchClassAverage(ctx, course.GroupID, token)
				if err != nil {
					logger.Info.Printf("class average for %s (%s): %v", name, course.GroupID, err)
				} else if ca != nil {
					avg, course.AverageSource = ca.Average, ca.Source
					if len(ca.Rows) > 0 {
						course.RowAverages = grade.MatchRowAverages(table, ca.Rows)
					}
				}
			}
		}

		course.Projection = grade.Project(grade.ProjectInput{
			Score:        course.Table.Average,
			ClassAverage: avg,
			Final:        rule.Evaluate(period, course.Table),
		})
		out.Courses = append(out.Courses, course)
	}

	cards := doc.Find(courseCardSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("table").Length() > 0
	})
	if cards.Length() == 0 {
		table := doc.Find("table").First()
		if table.Length() == 0 {
			return nil, errors.NewInvalidRequest("no grade table found in input")
		}
		visit("Ders", raw, table)
		return out, nil
	}

	cards.Each(func(i int, card *goquery.Selection) {
		cardHTML, _ := goquery.OuterHtml(card)
		visit(courseName(card, i), cardHTML, card.Find("table").First())
	})
	return out, nil
}

func finalRule(cfg *config.Config) grade.FinalRule {
	rule := grade.DefaultFinalRule()
	if cfg == nil {
		return rule
	}
	if cfg.FinalRuleYear > 0 {
		rule.Year = cfg.FinalRuleYear
	}
	if cfg.FinalRuleSemester > 0 {
		rule.Semester = cfg.FinalRuleSemester
	}
	if cfg.FinalPassMark > 0 {
		rule.PassMark = cfg.FinalPassMark
	}
	return rule
}

func courseName(card *goquery.Selection, i int) string {
	for _, sel := range []string{".card-title a", ".card-title", ".font-weight-bolder.text-hover-primary", "a.font-size-h5"} {
		if name := strings.TrimSpace(card.Find(sel).First().Text()); name != "" {
			return name
		}
	}
	return fmt.Sprintf("Ders %d", i+1)
}
