package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sabis-tools/sabis/internal/config"
	"github.com/sabis-tools/sabis/internal/duedate"
	"github.com/sabis-tools/sabis/internal/errors"
	"github.com/sabis-tools/sabis/internal/extract"
	"github.com/sabis-tools/sabis/internal/ops"
)

// Portal is what the collect and grade tools need from the SABIS client.
type Portal interface {
	ops.Fetcher
	ops.AverageSource
}

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db     *sql.DB
	cfg    *config.Config
	portal Portal
	now    func() time.Time
}

// NewHandlers creates a new Handlers instance. portal may be nil, in which
// case the collect tools fail and project_grade uses no portal averages.
func NewHandlers(db *sql.DB, cfg *config.Config, portal Portal) *Handlers {
	return &Handlers{db: db, cfg: cfg, portal: portal, now: time.Now}
}

// Request types for each tool

// ExtractRequest represents the arguments for extract_assignments and extract_exams.
type ExtractRequest struct {
	HTML      string `json:"html,omitempty"`
	Path      string `json:"path,omitempty"`
	SourceURL string `json:"source_url,omitempty"`
	Search    string `json:"search,omitempty"`
	Sort      string `json:"sort,omitempty"`
}

// CollectRequest represents the arguments for collect_assignments and collect_exams.
type CollectRequest struct {
	Refresh bool   `json:"refresh,omitempty"`
	Search  string `json:"search,omitempty"`
	Sort    string `json:"sort,omitempty"`
}

// GradeRequest represents the arguments for project_grade.
type GradeRequest struct {
	HTML         string   `json:"html,omitempty"`
	Path         string   `json:"path,omitempty"`
	PageURL      string   `json:"page_url,omitempty"`
	ClassAverage *float64 `json:"class_average,omitempty"`
	Year         int      `json:"year,omitempty"`
	Semester     int      `json:"semester,omitempty"`
}

// CalendarRequest represents the arguments for calendar_url.
type CalendarRequest struct {
	Title string `json:"title"`
	Due   string `json:"due"`
	Kind  string `json:"kind,omitempty"`
}

// ListRequest represents the arguments for list_snapshots.
type ListRequest struct {
	Kind   string `json:"kind,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// PurgeRequest represents the arguments for purge_snapshots.
type PurgeRequest struct {
	Kind          string `json:"kind,omitempty"`
	OlderThanDays int    `json:"older_than_days,omitempty"`
	KeepLatest    bool   `json:"keep_latest,omitempty"`
}

// ExportRequest represents the arguments for export_snapshots.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
	Kind string `json:"kind,omitempty"`
}

// ImportRequest represents the arguments for import_snapshots.
type ImportRequest struct {
	Path string `json:"path"`
}

// Response types

// AssignmentsResult is a collected or extracted assignment list with its buckets.
type AssignmentsResult struct {
	*extract.AssignmentPayload
	Snapshot *ops.SnapshotInfo `json:"snapshot,omitempty"`
	Buckets  *ops.Buckets      `json:"buckets"`
}

// ExamsResult is a collected or extracted exam list with its buckets.
type ExamsResult struct {
	*extract.ExamPayload
	Snapshot *ops.SnapshotInfo `json:"snapshot,omitempty"`
	Buckets  *ops.Buckets      `json:"buckets"`
}

// CalendarResult is the output of calendar_url.
type CalendarResult struct {
	URL          string `json:"url"`
	DueTimestamp int64  `json:"dueTimestamp"`
}

// Handler implementations

// HandleExtractAssignments handles the extract_assignments tool call.
func (h *Handlers) HandleExtractAssignments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExtractRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	opts, err := ops.ExtractOptions(h.cfg)
	if err != nil {
		return errorResult(err), nil
	}

	payload, err := ops.ExtractAssignments(ops.ExtractInput{HTML: input.HTML, Path: input.Path, SourceURL: input.SourceURL}, opts)
	if err != nil {
		return errorResult(err), nil
	}
	buckets, err := h.categorize(ops.AssignmentEntries(payload.Assignments, h.cfg.Location()), input.Search, input.Sort)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(AssignmentsResult{AssignmentPayload: payload, Buckets: buckets})
}

// HandleExtractExams handles the extract_exams tool call.
func (h *Handlers) HandleExtractExams(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExtractRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	opts, err := ops.ExtractOptions(h.cfg)
	if err != nil {
		return errorResult(err), nil
	}

	payload, err := ops.ExtractExams(ops.ExtractInput{HTML: input.HTML, Path: input.Path, SourceURL: input.SourceURL}, opts)
	if err != nil {
		return errorResult(err), nil
	}
	buckets, err := h.categorize(ops.ExamEntries(payload.Exams, h.cfg.Location()), input.Search, input.Sort)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(ExamsResult{ExamPayload: payload, Buckets: buckets})
}

// HandleCollectAssignments handles the collect_assignments tool call.
func (h *Handlers) HandleCollectAssignments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CollectRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if !ops.ValidSort(input.Sort) {
		return errorResult(errors.NewInvalidRequest(fmt.Sprintf("unknown sort %q", input.Sort))), nil
	}
	if h.portal == nil {
		return errorResult(errors.NewInvalidRequest("portal client is not configured")), nil
	}

	out, err := ops.CollectAssignments(ctx, h.db, h.cfg, h.portal, ops.CollectInput{Refresh: input.Refresh})
	if err != nil {
		return errorResult(err), nil
	}
	buckets, err := h.categorize(ops.AssignmentEntries(out.Assignments, h.cfg.Location()), input.Search, input.Sort)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(AssignmentsResult{AssignmentPayload: out.AssignmentPayload, Snapshot: &out.Snapshot, Buckets: buckets})
}

// HandleCollectExams handles the collect_exams tool call.
func (h *Handlers) HandleCollectExams(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CollectRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if !ops.ValidSort(input.Sort) {
		return errorResult(errors.NewInvalidRequest(fmt.Sprintf("unknown sort %q", input.Sort))), nil
	}
	if h.portal == nil {
		return errorResult(errors.NewInvalidRequest("portal client is not configured")), nil
	}

	out, err := ops.CollectExams(ctx, h.db, h.cfg, h.portal, ops.CollectInput{Refresh: input.Refresh})
	if err != nil {
		return errorResult(err), nil
	}
	buckets, err := h.categorize(ops.ExamEntries(out.Exams, h.cfg.Location()), input.Search, input.Sort)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(ExamsResult{ExamPayload: out.ExamPayload, Snapshot: &out.Snapshot, Buckets: buckets})
}

// HandleProjectGrade handles the project_grade tool call.
func (h *Handlers) HandleProjectGrade(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GradeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	var src ops.AverageSource
	if h.portal != nil {
		src = h.portal
	}
	result, err := ops.ProjectGrade(ctx, h.cfg, src, ops.GradeInput{
		HTML:         input.HTML,
		Path:         input.Path,
		PageURL:      input.PageURL,
		ClassAverage: input.ClassAverage,
		Year:         input.Year,
		Semester:     input.Semester,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCalendarURL handles the calendar_url tool call.
func (h *Handlers) HandleCalendarURL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CalendarRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return errorResult(errors.NewInvalidRequest("title is required")), nil
	}

	loc := h.cfg.Location()
	due, err := ParseDue(input.Due, loc)
	if err != nil {
		return errorResult(err), nil
	}

	var link string
	switch input.Kind {
	case "", "assignment":
		link = ops.AssignmentCalendarURL(title, due, loc)
	case "exam":
		link = ops.ExamCalendarURL(title, due, loc)
	default:
		return errorResult(errors.NewInvalidRequest(fmt.Sprintf("unknown kind %q", input.Kind))), nil
	}
	return successResult(CalendarResult{URL: link, DueTimestamp: due.UnixMilli()})
}

// HandleListSnapshots handles the list_snapshots tool call.
func (h *Handlers) HandleListSnapshots(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListSnapshots(h.db, ops.ListSnapshotsInput{Kind: input.Kind, Limit: input.Limit, Offset: input.Offset})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandlePurgeSnapshots handles the purge_snapshots tool call.
func (h *Handlers) HandlePurgeSnapshots(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PurgeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.PurgeSnapshots(h.db, ops.PurgeInput{
		Kind:          input.Kind,
		OlderThanDays: input.OlderThanDays,
		KeepLatest:    input.KeepLatest,
	}, h.now())
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleExportSnapshots handles the export_snapshots tool call.
func (h *Handlers) HandleExportSnapshots(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ExportSnapshots(ctx, h.db, h.cfg, ops.ExportInput{Path: input.Path, Kind: input.Kind})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleImportSnapshots handles the import_snapshots tool call.
func (h *Handlers) HandleImportSnapshots(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ImportSnapshots(h.db, h.cfg, ops.ImportInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

func (h *Handlers) categorize(entries []ops.Entry, search, sort string) (*ops.Buckets, error) {
	return ops.Categorize(entries, ops.CategorizeInputFor(h.cfg, search, sort, h.now()))
}

// ParseDue reads a deadline given as RFC 3339, epoch milliseconds, or a
// dd.MM.yyyy[ HH:mm] date in loc.
func ParseDue(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.NewInvalidRequest("due is required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	if d := duedate.Parse(s, loc); d != nil {
		return d.Time, nil
	}
	return time.Time{}, errors.NewInvalidRequest(fmt.Sprintf("cannot read due time %q", s))
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var sErr *errors.SabisError
	if stderrors.As(err, &sErr) {
		errorObj := map[string]any{
			"code":    sErr.Code,
			"message": sErr.Message,
			"status":  sErr.Status,
		}
		if wrapped := err.Error(); wrapped != sErr.Error() {
			errorObj["message"] = strings.Replace(wrapped, sErr.Error(), sErr.Message, 1)
		}
		if sErr.Code != errors.ErrInternal && sErr.Details != nil {
			errorObj["details"] = sErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
