package extract

import (
	"math"
	"sort"
	"strconv"

	"github.com/sabis-tools/sabis/internal/text"
)

// dedupKey returns the identity of one logical announcement: the due instant
// (or due text) plus the normalised block text, and separately the
// normalised link.
func dedupKey(a *Assignment) (base, link string) {
	var due string
	if a.DueTimestamp != 0 {
		due = "ts:" + strconv.FormatInt(a.DueTimestamp, 10)
	} else {
		raw := a.DueDateText
		if raw == "" {
			raw = a.DueDate
		}
		due = "txt:" + text.NormaliseForMatch(raw)
	}
	return due + "::" + a.rawTextKey, text.NormaliseForMatch(a.SourceURL)
}

type dedupGroup struct {
	unlinked int
	linked   map[string]int
}

// Dedupe collapses assignments that describe the same announcement.
// Records agreeing on due time, block text and link are duplicates and the
// first seen is kept. An unlinked record and a linked record with the same
// due time and text are also duplicates; the linked copy wins and takes the
// first one's position. The result is sorted ascending by due time, zero
// timestamps last, and the sort is stable.
func Dedupe(items []Assignment) []Assignment {
	groups := make(map[string]*dedupGroup, len(items))
	out := make([]Assignment, 0, len(items))

	for i := range items {
		base, link := dedupKey(&items[i])
		g, ok := groups[base]
		if !ok {
			g = &dedupGroup{unlinked: -1, linked: map[string]int{}}
			groups[base] = g
		}

		if link == "" {
			if g.unlinked >= 0 || len(g.linked) > 0 {
				continue
			}
			g.unlinked = len(out)
			out = append(out, items[i])
			continue
		}

		if _, dup := g.linked[link]; dup {
			continue
		}
		if g.unlinked >= 0 {
			out[g.unlinked] = items[i]
			g.linked[link] = g.unlinked
			g.unlinked = -1
			continue
		}
		g.linked[link] = len(out)
		out = append(out, items[i])
	}

	sort.SliceStable(out, func(i, j int) bool {
		return sortKey(out[i]) < sortKey(out[j])
	})
	return out
}

func sortKey(a Assignment) int64 {
	if a.DueTimestamp == 0 {
		return math.MaxInt64
	}
	return a.DueTimestamp
}
