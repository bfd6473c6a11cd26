package extract

import (
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/sabis-tools/sabis/internal/duedate"
)

// CandidateCards returns the card containers under root that carry deadline
// wording and a date, in document order and without duplicates. When root is
// a whole document only <body> is scanned.
func CandidateCards(root *goquery.Selection, rules *Rules) []*goquery.Selection {
	r := rules.ready()
	scope := root
	if root.Length() > 0 && root.Get(0).Type == html.DocumentNode {
		scope = root.Find("body").First()
	}
	if scope.Length() == 0 {
		return nil
	}

	seen := make(map[*html.Node]bool)
	var cards []*goquery.Selection

	scope.Find("*").Each(func(_ int, s *goquery.Selection) {
		if !r.isCandidate(s) {
			return
		}
		card := s
		if r.cardSelector != "" {
			if closest := s.Closest(r.cardSelector); closest.Length() > 0 {
				card = closest
			}
		}
		node := card.Get(0)
		if seen[node] {
			return
		}
		seen[node] = true
		cards = append(cards, card)
	})

	return cards
}

// isCandidate applies the element-level filters.
func (r *Rules) isCandidate(s *goquery.Selection) bool {
	if r.excluded[goquery.NodeName(s)] {
		return false
	}
	if role, _ := s.Attr("role"); role == "button" {
		return false
	}
	content := s.Text()
	if utf8.RuneCountInString(content) < r.MinCardChars {
		return false
	}
	return r.dueWording.MatchString(content) && duedate.Pattern().MatchString(content)
}
