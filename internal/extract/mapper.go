package extract

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/sabis-tools/sabis/internal/duedate"
	"github.com/sabis-tools/sabis/internal/text"
)

// fallbackTitle is used when neither a heading nor a first sentence exists.
const fallbackTitle = "Baslik bulunamadi"

// Assignment is one surfaced assignment notice. Every Assignment has a due date.
type Assignment struct {
	Title        string `json:"title"`
	DueDate      string `json:"dueDate"`
	DueDateText  string `json:"dueDateText"`
	DueTimestamp int64  `json:"dueTimestamp"`
	SourceURL    string `json:"sourceUrl"`

	// rawTextKey is the normalised block text; dedup only, never serialised.
	rawTextKey string
}

// MapCard turns a card into an Assignment, or reports which gate rejected it.
func MapCard(card *goquery.Selection, baseURL string, loc *time.Location, rules *Rules) (*Assignment, Rejection) {
	r := rules.ready()

	blockText := text.NormaliseWhitespace(card.Text())
	due := duedate.Parse(blockText, loc)
	title := cardTitle(card)
	warning := r.hasWarningMarker(card)

	in := SignalInput{Text: blockText, Title: title, HasWarning: warning}
	if due != nil {
		in.DueText = due.Text
	}
	score := Evaluate(in, r)

	if reason := Accept(score, warning); reason != "" {
		return nil, reason
	}
	if due == nil {
		return nil, RejectNoDate
	}

	if utf8.RuneCountInString(title) <= 3 {
		title = strings.Split(blockText, ".")[0]
		if title == "" {
			title = fallbackTitle
		}
	}

	href, _ := card.Find("a").First().Attr("href")

	return &Assignment{
		Title:        text.NormaliseWhitespace(title),
		DueDate:      due.ISO,
		DueDateText:  due.Text,
		DueTimestamp: due.Timestamp,
		SourceURL:    absoluteURL(href, baseURL),
		rawTextKey:   text.NormaliseForMatch(blockText),
	}, ""
}

// cardTitle picks the first anchor, then the first heading, then the first bold run.
func cardTitle(card *goquery.Selection) string {
	for _, sel := range []string{"a", "h1, h2, h3, h4, h5, h6", "strong, b"} {
		if heading := card.Find(sel).First(); heading.Length() > 0 {
			return text.NormaliseWhitespace(heading.Text())
		}
	}
	return ""
}

func (r *Rules) hasWarningMarker(card *goquery.Selection) bool {
	if card.Find("[class*='warning']").Length() > 0 {
		return true
	}
	style, _ := card.Attr("style")
	return r.warningStyle.MatchString(style)
}
