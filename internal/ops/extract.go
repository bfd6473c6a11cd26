package ops

import (
	"github.com/sabis-tools/sabis/internal/extract"
)

// ExtractInput names an HTML document to run an extractor over.
type ExtractInput struct {
	HTML      string // inline document
	Path      string // or a file on disk
	SourceURL string // page URL used to resolve relative links
}

// ExtractAssignments runs the assignment pipeline over a saved or pasted page.
func ExtractAssignments(input ExtractInput, opts extract.Options) (*extract.AssignmentPayload, error) {
	raw, err := htmlInput(input.HTML, input.Path)
	if err != nil {
		return nil, err
	}
	return extract.ParseAssignments(extract.HTMLParser, raw, input.SourceURL, opts)
}

// ExtractExams runs the exam row mapper over a saved or pasted page.
func ExtractExams(input ExtractInput, opts extract.Options) (*extract.ExamPayload, error) {
	raw, err := htmlInput(input.HTML, input.Path)
	if err != nil {
		return nil, err
	}
	return extract.ParseExams(extract.HTMLParser, raw, input.SourceURL, opts)
}
