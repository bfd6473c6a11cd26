package extract

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/sabis-tools/sabis/internal/errors"
)

// Parser turns HTML bytes into a node tree.
type Parser interface {
	Parse(r io.Reader) (*html.Node, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(r io.Reader) (*html.Node, error)

// Parse calls f(r).
func (f ParserFunc) Parse(r io.Reader) (*html.Node, error) {
	return f(r)
}

// HTMLParser is the x/net/html tree builder.
var HTMLParser Parser = ParserFunc(html.Parse)

// parseDocument runs p over raw and maps failures onto the two parse error kinds.
func parseDocument(p Parser, raw, what string) (*html.Node, error) {
	if p == nil {
		return nil, errors.NewParseUnavailable(what)
	}
	root, err := p.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, errors.NewParseFailed(what, err)
	}
	if root == nil {
		return nil, errors.NewParseFailed(what, nil)
	}
	return root, nil
}

// effectiveSourceURL prefers the caller's URL and falls back to <base href>.
func effectiveSourceURL(doc *goquery.Document, sourceURL string) string {
	if sourceURL != "" {
		return sourceURL
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		return strings.TrimSpace(href)
	}
	return ""
}

// absoluteURL resolves href against base. Unresolvable input comes back verbatim.
func absoluteURL(href, base string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base == "" {
		return ref.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}
