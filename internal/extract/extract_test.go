package extract

import (
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/sabis-tools/sabis/internal/errors"
)

const portalURL = "https://obs.sabis.sakarya.edu.tr/"

func testOptions(t *testing.T) Options {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Istanbul")
	require.NoError(t, err)
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, loc)
	return Options{Location: loc, Now: func() time.Time { return fixed }}
}

func mustDoc(t *testing.T, raw string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	require.NoError(t, err)
	return doc
}

func TestCollectAssignments_StrictNotice(t *testing.T) {
	opts := testOptions(t)
	doc := mustDoc(t, `<html><body>
<div class="notification">
  <a href="/Ders/Odev/42">Veri Yapıları Ödev 2</a>
  <p>Yeni ödeviniz var. Son teslim: 15.03.2025</p>
</div>
</body></html>`)

	payload := CollectAssignments(doc, portalURL, opts)

	require.Len(t, payload.Assignments, 1)
	a := payload.Assignments[0]
	want := time.Date(2025, 3, 15, 23, 59, 0, 0, opts.Location)
	require.Equal(t, "Veri Yapıları Ödev 2", a.Title)
	require.Equal(t, want.UnixMilli(), a.DueTimestamp)
	require.Equal(t, "15.03.2025", a.DueDateText)
	require.Equal(t, "2025-03-15T20:59:00.000Z", a.DueDate)
	require.Equal(t, "https://obs.sabis.sakarya.edu.tr/Ders/Odev/42", a.SourceURL)
	require.Equal(t, portalURL, payload.SourceURL)
	require.Equal(t, "2025-03-01T06:00:00.000Z", payload.CollectedAt)
}

func TestCollectAssignments_TimeOverride(t *testing.T) {
	opts := testOptions(t)
	doc := mustDoc(t, `<body><article><h3>Fizik ödevi</h3>
<p>Teslim tarihi 15.03.2025 14:30</p></article></body>`)

	payload := CollectAssignments(doc, portalURL, opts)

	require.Len(t, payload.Assignments, 1)
	got := time.UnixMilli(payload.Assignments[0].DueTimestamp).In(opts.Location)
	require.Equal(t, 14, got.Hour())
	require.Equal(t, 30, got.Minute())
	require.Equal(t, "", payload.Assignments[0].SourceURL)
}

func TestCollectAssignments_RejectsUnrelatedAnnouncement(t *testing.T) {
	opts := testOptions(t)
	doc := mustDoc(t, `<body><div class="card">
<h4>Seminer Paneli başvuru formu</h4>
<p>Katılım için Son teslim tarihi: 15.03.2025</p>
</div></body>`)

	payload := CollectAssignments(doc, portalURL, opts)

	require.Empty(t, payload.Assignments)
}

func TestCollectAssignments_DeduplicatesPreferringLink(t *testing.T) {
	opts := testOptions(t)
	doc := mustDoc(t, `<body>
<li class="list-group-item"><strong>Algoritma ödevi</strong> Son teslim: 20.03.2025 12:00</li>
<li class="list-group-item"><a href="https://obs.sabis.sakarya.edu.tr/x">Algoritma ödevi</a> Son teslim: 20.03.2025 12:00</li>
</body>`)

	payload := CollectAssignments(doc, portalURL, opts)

	require.Len(t, payload.Assignments, 1)
	require.Equal(t, "https://obs.sabis.sakarya.edu.tr/x", payload.Assignments[0].SourceURL)
}

func TestCollectAssignments_SortedByDueDate(t *testing.T) {
	opts := testOptions(t)
	doc := mustDoc(t, `<body>
<div class="duyuru"><b>Proje ödevi</b> Son teslim 30.04.2025</div>
<div class="duyuru"><b>Lab ödevi</b> Son teslim 10.04.2025</div>
<div class="duyuru"><b>Kısa ödev</b> Son teslim 20.04.2025</div>
</body>`)

	payload := CollectAssignments(doc, portalURL, opts)

	require.Len(t, payload.Assignments, 3)
	titles := []string{payload.Assignments[0].Title, payload.Assignments[1].Title, payload.Assignments[2].Title}
	require.Equal(t, []string{"Lab ödevi", "Kısa ödev", "Proje ödevi"}, titles)
}

func TestCollectAssignments_Idempotent(t *testing.T) {
	opts := testOptions(t)
	raw := `<body>
<div class="timeline-item"><a href="/a">Ödev 1</a> Son teslim: 01.04.2025</div>
<div class="timeline-item"><a href="/b">Ödev 2</a> Son teslim: 01.04.2025</div>
<div class="timeline-item"><strong>Homework 3</strong> last one. Son teslim 02.04.2025 10:00</div>
</body>`

	first := CollectAssignments(mustDoc(t, raw), portalURL, opts)
	second := CollectAssignments(mustDoc(t, raw), portalURL, opts)

	require.Len(t, first.Assignments, 3)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("second run differs:\nfirst  %+v\nsecond %+v", first, second)
	}
}

func TestCandidateCards(t *testing.T) {
	doc := mustDoc(t, `<body>
<script>var x = "Son teslim 01.01.2025";</script>
<div role="button">Son teslim 01.01.2025 ödev</div>
<div class="card" id="one"><p>Son teslim 01.01.2025 ödev</p><span>Teslim tarihi 02.01.2025</span></div>
<section id="two"><p>Teslim tarihi: 03.01.2025 proje</p></section>
<p id="short">1.1.2025</p>
</body>`)

	cards := CandidateCards(doc.Selection, nil)

	var ids []string
	for _, c := range cards {
		id, _ := c.Attr("id")
		if id == "" {
			id = goquery.NodeName(c)
		}
		ids = append(ids, id)
	}
	// the card container absorbs both inner matches; the section and its
	// paragraph each resolve to themselves
	require.Equal(t, []string{"one", "two", "p"}, ids)
}

func TestMapCard_WarningMarkerOpensGate(t *testing.T) {
	opts := testOptions(t)
	body := "<b>Ödev</b> " + strings.Repeat("lorem ipsum ", 30) + "Son teslim 01.04.2025"

	plain := mustDoc(t, `<body><div class="card">`+body+`</div></body>`).Find(".card")
	a, reason := MapCard(plain, portalURL, opts.Location, nil)
	require.Nil(t, a)
	require.Equal(t, RejectNoSignal, reason)

	warned := mustDoc(t, `<body><div class="card" style="border-color:#FFA800">`+body+`</div></body>`).Find(".card")
	a, reason = MapCard(warned, portalURL, opts.Location, nil)
	require.NotNil(t, a)
	require.Equal(t, Rejection(""), reason)

	classed := mustDoc(t, `<body><div class="card"><i class="text-warning"></i>`+body+`</div></body>`).Find(".card")
	a, _ = MapCard(classed, portalURL, opts.Location, nil)
	require.NotNil(t, a)
}

func TestMapCard_TitleFallback(t *testing.T) {
	opts := testOptions(t)

	tests := []struct {
		name string
		html string
		want string
	}{
		{"first sentence", `<div class="card">Ödev teslimi. Son teslim: 02.04.2025</div>`, "Ödev teslimi"},
		{"short heading", `<div class="card"><h5>Ödv</h5> Yeni ödev. Son teslim: 02.04.2025</div>`, "Ödv Yeni ödev"},
		{"leading period", `<div class="card">. Ödev son teslim: 02.04.2025</div>`, fallbackTitle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := mustDoc(t, "<body>"+tt.html+"</body>").Find(".card")
			a, reason := MapCard(card, portalURL, opts.Location, nil)
			if a == nil {
				t.Fatalf("MapCard() rejected: %s", reason)
			}
			if a.Title != tt.want {
				t.Errorf("Title = %q, want %q", a.Title, tt.want)
			}
		})
	}
}

func TestDedupe(t *testing.T) {
	items := []Assignment{
		{Title: "b", DueTimestamp: 2000, rawTextKey: "x"},
		{Title: "a", DueTimestamp: 1000, rawTextKey: "y", SourceURL: "https://s/1"},
		{Title: "a-copy", DueTimestamp: 1000, rawTextKey: "y", SourceURL: "https://s/1"},
		{Title: "a-other-link", DueTimestamp: 1000, rawTextKey: "y", SourceURL: "https://s/2"},
		{Title: "no-ts", DueDateText: "01.01.2025", rawTextKey: "z"},
		{Title: "b-linked", DueTimestamp: 2000, rawTextKey: "x", SourceURL: "https://s/3"},
	}

	got := Dedupe(items)

	var titles []string
	for _, a := range got {
		titles = append(titles, a.Title)
	}
	require.Equal(t, []string{"a", "a-other-link", "b-linked", "no-ts"}, titles)
}

func TestParseAssignments_ErrorKinds(t *testing.T) {
	opts := testOptions(t)

	_, err := ParseAssignments(nil, "<html></html>", portalURL, opts)
	if !errors.Is(err, errors.ErrParseUnavailable) {
		t.Errorf("nil parser error = %v, want PARSE_UNAVAILABLE", err)
	}

	failing := ParserFunc(func(io.Reader) (*html.Node, error) {
		return nil, io.ErrUnexpectedEOF
	})
	_, err = ParseAssignments(failing, "<html>", portalURL, opts)
	if !errors.Is(err, errors.ErrParseFailed) {
		t.Errorf("failing parser error = %v, want PARSE_FAILED", err)
	}

	payload, err := ParseAssignments(HTMLParser, "", portalURL, opts)
	require.NoError(t, err)
	require.NotNil(t, payload)
	require.Empty(t, payload.Assignments)
}

func TestParseAssignments_BaseHref(t *testing.T) {
	opts := testOptions(t)
	raw := `<html><head><base href="https://obs.sabis.sakarya.edu.tr/Duyuru/"></head><body>
<div class="card"><a href="12">Ödev 12</a> Son teslim 05.05.2025</div></body></html>`

	payload, err := ParseAssignments(HTMLParser, raw, "", opts)

	require.NoError(t, err)
	require.Equal(t, "https://obs.sabis.sakarya.edu.tr/Duyuru/", payload.SourceURL)
	require.Len(t, payload.Assignments, 1)
	require.Equal(t, "https://obs.sabis.sakarya.edu.tr/Duyuru/12", payload.Assignments[0].SourceURL)
}

func TestParseExams(t *testing.T) {
	opts := testOptions(t)
	raw := `<html><body>
<table><thead><tr><th>Sınav</th><th>Tarih</th></tr></thead><tbody>
<tr><td> Kısa Sınav 1 </td><td>10.11.2025 10:00 - 10.11.2025 10:30</td><td>Aktif</td>
  <td><a href="/Session/Exam/Join/123">Katıl</a></td></tr>
<tr><td></td><td>10.11.2025 10:00 - 10.11.2025 10:30</td></tr>
<tr><td>Kısa Sınav 2</td><td>tarih yok</td><td>Bekliyor</td></tr>
</tbody></table>
<table><tbody><tr><td>Other table</td></tr></tbody></table>
</body></html>`

	payload, err := ParseExams(HTMLParser, raw, "https://esinav.sabis.sakarya.edu.tr/Session/Exam", opts)

	require.NoError(t, err)
	require.Len(t, payload.Exams, 2)

	first := payload.Exams[0]
	require.Equal(t, "Kısa Sınav 1", first.Title)
	require.Equal(t, "10.11.2025 10:00 - 10.11.2025 10:30", first.DateRangeText)
	require.Equal(t, "Aktif", first.StatusText)
	require.NotNil(t, first.DueTimestamp)
	require.Equal(t, time.Date(2025, 11, 10, 10, 30, 0, 0, opts.Location).UnixMilli(), *first.DueTimestamp)
	require.NotNil(t, first.JoinURL)
	require.Equal(t, "https://esinav.sabis.sakarya.edu.tr/Session/Exam/Join/123", *first.JoinURL)

	second := payload.Exams[1]
	require.Equal(t, "Kısa Sınav 2", second.Title)
	require.Nil(t, second.DueTimestamp)
	require.Nil(t, second.JoinURL)
}

func TestParseExams_NoTable(t *testing.T) {
	opts := testOptions(t)

	payload, err := ParseExams(HTMLParser, "<p>Sınav yok</p>", "", opts)

	require.NoError(t, err)
	require.NotNil(t, payload.Exams)
	require.Empty(t, payload.Exams)
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.toml")
	content := `due_window = 10
keywords = ["Ödev", "ÖDEV"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules() error = %v", err)
	}
	if rules.DueWindow != 10 {
		t.Errorf("DueWindow = %d, want 10", rules.DueWindow)
	}
	if !reflect.DeepEqual(rules.Keywords, []string{"odev", "odev"}) {
		t.Errorf("Keywords = %v, want normalised", rules.Keywords)
	}
	if rules.StrictWeight != 3 {
		t.Errorf("StrictWeight = %d, want default 3", rules.StrictWeight)
	}
	if len(rules.Penalties) != 14 {
		t.Errorf("len(Penalties) = %d, want default 14", len(rules.Penalties))
	}
}

func TestLoadRules_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"title penalty below text penalty", "[[penalties]]\nkeyword = \"panel\"\ntitle = 0\ntext = 2\n"},
		{"zero window", "due_window = 0\n"},
		{"bad regex", "due_wording = \"(\"\n"},
		{"not toml", "due_window = ["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rules.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadRules(path); err == nil {
				t.Errorf("LoadRules() error = nil, want error")
			}
		})
	}
}
