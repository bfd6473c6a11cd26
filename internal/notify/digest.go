// Package notify builds and sends the due-soon digest.
package notify

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/sabis-tools/sabis/internal/ops"
)

// Digest is one rendered reminder message.
type Digest struct {
	Subject  string
	Markdown string
	HTML     string
	Count    int
}

// Empty reports whether the digest has nothing to remind about.
func (d *Digest) Empty() bool {
	return d == nil || d.Count == 0
}

// Build renders the overdue and due-soon entries of both lists. Long-term
// items are left out.
func Build(assignments, exams *ops.Buckets, now time.Time) (*Digest, error) {
	var md strings.Builder
	count := 0

	section := func(heading string, entries []ops.Entry) {
		if len(entries) == 0 {
			return
		}
		count += len(entries)
		fmt.Fprintf(&md, "## %s\n\n", heading)
		for _, e := range entries {
			title := escape(e.Title)
			if e.Link != "" {
				title = fmt.Sprintf("[%s](%s)", title, e.Link)
			}
			fmt.Fprintf(&md, "- **%s** %s (%s)", title, e.DueLabel, e.Countdown)
			if e.CalendarURL != "" {
				fmt.Fprintf(&md, " [Takvime ekle](%s)", e.CalendarURL)
			}
			md.WriteString("\n")
		}
		md.WriteString("\n")
	}

	fmt.Fprintf(&md, "# SABİS hatırlatma, %s\n\n", now.Format("02.01.2006"))
	if assignments != nil {
		section("Süresi geçen ödevler", assignments.Overdue)
		section("Yaklaşan ödevler", assignments.DueSoon)
	}
	if exams != nil {
		section("Yaklaşan sınavlar", exams.DueSoon)
	}

	d := &Digest{
		Subject:  fmt.Sprintf("[SABİS] %d yaklaşan teslim", count),
		Markdown: md.String(),
		Count:    count,
	}
	if count == 0 {
		d.Markdown += "Yaklaşan teslim yok.\n"
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(d.Markdown), &buf); err != nil {
		return nil, fmt.Errorf("render digest: %w", err)
	}
	d.HTML = buf.String()
	return d, nil
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, `*`, `\*`, `_`, `\_`, `[`, `\[`, `]`, `\]`, "`", "\\`",
)

func escape(s string) string {
	return markdownEscaper.Replace(s)
}
