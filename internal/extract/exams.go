package extract

import (
	"time"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/sabis-tools/sabis/internal/duedate"
	"github.com/sabis-tools/sabis/internal/metrics"
	"github.com/sabis-tools/sabis/internal/text"
)

// joinLinkXPath matches the exam join anchor inside a row.
const joinLinkXPath = `.//a[contains(@href, '/Session/Exam/Join/')]`

// Exam is one row of the exam schedule.
type Exam struct {
	Title          string  `json:"title"`
	DateRangeText  string  `json:"dateRangeText"`
	StatusText     string  `json:"statusText"`
	StartTimestamp *int64  `json:"startTimestamp,omitempty"`
	DueTimestamp   *int64  `json:"dueTimestamp"`
	JoinURL        *string `json:"joinUrl"`
}

// ExamPayload is the result of one exam extraction pass.
type ExamPayload struct {
	Exams       []Exam `json:"exams"`
	CollectedAt string `json:"collectedAt"`
	SourceURL   string `json:"sourceUrl"`
}

// CollectExams maps the rows of the first table body in root. Other tables
// are ignored. Rows without cells or without a title are skipped.
func CollectExams(root *html.Node, sourceURL string, opts Options) *ExamPayload {
	if sourceURL == "" {
		if base := htmlquery.FindOne(root, "//base[@href]"); base != nil {
			sourceURL = htmlquery.SelectAttr(base, "href")
		}
	}

	exams := []Exam{}
	if tbody := htmlquery.FindOne(root, "//table//tbody"); tbody != nil {
		for _, row := range htmlquery.Find(tbody, ".//tr") {
			if exam, ok := mapExamRow(row, sourceURL, opts.Location); ok {
				exams = append(exams, exam)
			}
		}
	}
	metrics.ExamsExtracted.Add(float64(len(exams)))

	return &ExamPayload{
		Exams:       exams,
		CollectedAt: duedate.FormatISO(opts.now()),
		SourceURL:   sourceURL,
	}
}

// ParseExams parses raw HTML with p and collects the exam table from it.
func ParseExams(p Parser, raw, sourceURL string, opts Options) (*ExamPayload, error) {
	root, err := parseDocument(p, raw, "exams")
	if err != nil {
		return nil, err
	}
	return CollectExams(root, sourceURL, opts), nil
}

func mapExamRow(row *html.Node, baseURL string, loc *time.Location) (Exam, bool) {
	cells := htmlquery.Find(row, ".//td")
	if len(cells) == 0 {
		return Exam{}, false
	}

	exam := Exam{
		Title:         cellText(cells, 0),
		DateRangeText: cellText(cells, 1),
		StatusText:    cellText(cells, 2),
	}
	if exam.Title == "" {
		return Exam{}, false
	}

	if link := htmlquery.FindOne(row, joinLinkXPath); link != nil {
		if joinURL := absoluteURL(htmlquery.SelectAttr(link, "href"), baseURL); joinURL != "" {
			exam.JoinURL = &joinURL
		}
	}

	if r := duedate.ParseRange(exam.DateRangeText, loc); r != nil {
		start, end := r.Start.UnixMilli(), r.End.UnixMilli()
		exam.StartTimestamp = &start
		exam.DueTimestamp = &end
	}

	return exam, true
}

func cellText(cells []*html.Node, i int) string {
	if i >= len(cells) {
		return ""
	}
	return text.NormaliseWhitespace(htmlquery.InnerText(cells[i]))
}
