package extract

import (
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sabis-tools/sabis/internal/duedate"
	"github.com/sabis-tools/sabis/internal/metrics"
)

// Options carries the per-call knobs shared by the collectors.
type Options struct {
	// Location is where date-only deadlines are anchored; nil means time.Local
	Location *time.Location

	// Rules overrides the built-in heuristics table
	Rules *Rules

	// Now stamps collectedAt; nil means time.Now
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// AssignmentPayload is the result of one assignment extraction pass.
type AssignmentPayload struct {
	Assignments []Assignment `json:"assignments"`
	CollectedAt string       `json:"collectedAt"`
	SourceURL   string       `json:"sourceUrl"`
}

// CollectAssignments runs the card pipeline over an already parsed document.
func CollectAssignments(doc *goquery.Document, sourceURL string, opts Options) *AssignmentPayload {
	source := effectiveSourceURL(doc, sourceURL)
	cards := CandidateCards(doc.Selection, opts.Rules)
	metrics.CardsScanned.Add(float64(len(cards)))

	mapped := make([]Assignment, 0, len(cards))
	for _, card := range cards {
		a, reason := MapCard(card, source, opts.Location, opts.Rules)
		if a == nil {
			metrics.CandidatesRejected.WithLabelValues(string(reason)).Inc()
			continue
		}
		mapped = append(mapped, *a)
	}

	assignments := Dedupe(mapped)
	metrics.AssignmentsExtracted.Add(float64(len(assignments)))

	return &AssignmentPayload{
		Assignments: assignments,
		CollectedAt: duedate.FormatISO(opts.now()),
		SourceURL:   source,
	}
}

// ParseAssignments parses raw HTML with p and collects assignments from it.
// A nil parser yields PARSE_UNAVAILABLE and a parser error PARSE_FAILED; an
// empty result is not an error.
func ParseAssignments(p Parser, raw, sourceURL string, opts Options) (*AssignmentPayload, error) {
	root, err := parseDocument(p, raw, "announcements")
	if err != nil {
		return nil, err
	}
	return CollectAssignments(goquery.NewDocumentFromNode(root), sourceURL, opts), nil
}
