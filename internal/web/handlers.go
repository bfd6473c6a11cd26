package web

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sabis-tools/sabis/internal/config"
	"github.com/sabis-tools/sabis/internal/errors"
	"github.com/sabis-tools/sabis/internal/ops"
)

// maxFormBytes bounds POST bodies; pasted grade pages stay under the HTML limit.
const maxFormBytes = ops.MaxHTMLBytes + 64<<10

// Handlers contains HTTP route handlers for the dashboard.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	portal   Portal
	renderer *Renderer
	now      func() time.Time
}

// HandleAssignments handles GET /: categorized assignments.
func (h *Handlers) HandleAssignments(w http.ResponseWriter, r *http.Request) {
	var (
		out *ops.AssignmentsOutput
		err error
	)
	if h.portal != nil {
		out, err = ops.CollectAssignments(r.Context(), h.db, h.cfg, h.portal, ops.CollectInput{Refresh: parseBoolParam(r, "refresh")})
	} else {
		out, err = ops.LatestAssignments(h.db)
	}
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	entries := ops.AssignmentEntries(out.Assignments, h.cfg.Location())
	h.renderDeadlines(w, r, ops.KindAssignment, entries, out.Snapshot, out)
}

// HandleExams handles GET /exams: categorized quizzes.
func (h *Handlers) HandleExams(w http.ResponseWriter, r *http.Request) {
	var (
		out *ops.ExamsOutput
		err error
	)
	if h.portal != nil {
		out, err = ops.CollectExams(r.Context(), h.db, h.cfg, h.portal, ops.CollectInput{Refresh: parseBoolParam(r, "refresh")})
	} else {
		out, err = ops.LatestExams(h.db)
	}
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	entries := ops.ExamEntries(out.Exams, h.cfg.Location())
	h.renderDeadlines(w, r, ops.KindExam, entries, out.Snapshot, out)
}

func (h *Handlers) renderDeadlines(w http.ResponseWriter, r *http.Request, kind string, entries []ops.Entry, snap ops.SnapshotInfo, raw any) {
	search := r.URL.Query().Get("search")
	sort := r.URL.Query().Get("sort")

	buckets, err := ops.Categorize(entries, ops.CategorizeInputFor(h.cfg, search, sort, h.now()))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{
			"result":  raw,
			"buckets": buckets,
		})
		return
	}

	data := DeadlinesPageData{
		PageData: PageData{Title: "Ödevler", Version: h.renderer.version, Nav: "assignments"},
		Kind:     kind,
		Buckets:  buckets,
		Snapshot: snap,
		Search:   search,
		Sort:     sort,
	}
	if kind == ops.KindExam {
		data.PageData = PageData{Title: "Sınavlar", Version: h.renderer.version, Nav: "exams"}
	}
	h.renderer.renderPage(w, "deadlines", data)
}

// HandleGradeForm handles GET /grade: empty projector form.
func (h *Handlers) HandleGradeForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, "grade", GradePageData{
		PageData: PageData{Title: "Not hesaplama", Version: h.renderer.version, Nav: "grade"},
	})
}

// HandleGrade handles POST /grade: project grades for a pasted page.
func (h *Handlers) HandleGrade(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	data := GradePageData{
		PageData:     PageData{Title: "Not hesaplama", Version: h.renderer.version, Nav: "grade"},
		PageURL:      r.FormValue("page_url"),
		ClassAverage: strings.TrimSpace(r.FormValue("class_average")),
		Year:         strings.TrimSpace(r.FormValue("year")),
		Semester:     strings.TrimSpace(r.FormValue("semester")),
	}

	input := ops.GradeInput{
		HTML:    r.FormValue("html"),
		PageURL: data.PageURL,
	}
	if strings.TrimSpace(input.HTML) == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("html is required"))
		return
	}
	if data.ClassAverage != "" {
		v, err := strconv.ParseFloat(strings.Replace(data.ClassAverage, ",", ".", 1), 64)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("class_average must be a number"))
			return
		}
		input.ClassAverage = &v
	}
	var err error
	if input.Year, err = parseIntField(data.Year, "year"); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if input.Semester, err = parseIntField(data.Semester, "semester"); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	var src ops.AverageSource
	if h.portal != nil {
		src = h.portal
	}
	result, err := ops.ProjectGrade(r.Context(), h.cfg, src, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	data.Result = result
	h.renderer.renderPage(w, "grade", data)
}

// HandleSnapshots handles GET /snapshots: stored collection passes.
func (h *Handlers) HandleSnapshots(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	result, err := ops.ListSnapshots(h.db, ops.ListSnapshotsInput{
		Kind:   kind,
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, "snapshots", SnapshotsPageData{
		PageData: PageData{Title: "Kayıtlar", Version: h.renderer.version, Nav: "snapshots"},
		Result:   result,
		Kind:     kind,
	})
}

// HandlePurge handles POST /snapshots/purge: delete old snapshots.
func (h *Handlers) HandlePurge(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	if r.FormValue("confirm") != "true" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("confirm parameter must be \"true\""))
		return
	}

	input := ops.PurgeInput{
		Kind:       r.FormValue("kind"),
		KeepLatest: r.FormValue("keep_latest") == "true",
	}
	days, err := parseIntField(r.FormValue("older_than_days"), "older_than_days")
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	input.OlderThanDays = days

	result, err := ops.PurgeSnapshots(h.db, input, h.now())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/snapshots", http.StatusFound)
}

// HandleAbout handles GET /about: usage notes.
func (h *Handlers) HandleAbout(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, "about", AboutPageData{
		PageData:     PageData{Title: "Hakkında", Version: h.renderer.version, Nav: "about"},
		RenderedHTML: renderMarkdown(aboutMarkdown(h.cfg)),
	})
}

func aboutMarkdown(cfg *config.Config) string {
	return `# SABİS yardımcı

Bu pano SABİS duyurularından ödev teslim tarihlerini ve kısa sınav takvimini toplar.

## Gruplar

- **Yaklaşan**: ` + strconv.Itoa(cfg.DueSoonDays) + ` gün içinde teslim edilecekler
- **Uzun vadeli**: ` + strconv.Itoa(cfg.LongTermDays) + ` gün ve sonrası
- **Süresi geçen**: teslim tarihi geçmiş olanlar

Aradaki tarihler yaklaşanlarla birlikte gösterilir.

## Not hesaplama

Not sayfasının HTML kaynağını yapıştırın. Sınıf ortalaması varsa bağıl not da hesaplanır,
yoksa mutlak sistem kullanılır. Final barajı ` + strconv.FormatFloat(cfg.FinalPassMark, 'f', -1, 64) + ` puandır.

## JSON

Her sayfa ` + "`Accept: application/json`" + ` başlığıyla istenirse JSON döner.
Prometheus ölçümleri ` + "`/metrics`" + ` adresindedir.
`
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}

// parseIntField parses an optional integer form field; empty is zero.
func parseIntField(s, name string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.NewInvalidRequest(name + " must be an integer")
	}
	return v, nil
}
