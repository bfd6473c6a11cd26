package ops

import (
	"database/sql"
	"fmt"

	"github.com/sabis-tools/sabis/internal/db"
	"github.com/sabis-tools/sabis/internal/errors"
)

// ListSnapshotsInput contains parameters for the ListSnapshots operation.
type ListSnapshotsInput struct {
	Kind   string // optional: assignments or exams
	Limit  int    // default: 20, max: 100
	Offset int
}

// ListSnapshotsOutput contains the result of the ListSnapshots operation.
type ListSnapshotsOutput struct {
	Items      []db.Snapshot `json:"items"`
	Pagination Pagination    `json:"pagination"`
	Sort       string        `json:"sort"`
}

// ListSnapshots returns snapshot metadata, newest first. Payloads are not loaded.
func ListSnapshots(database *sql.DB, input ListSnapshotsInput) (*ListSnapshotsOutput, error) {
	if input.Kind != "" && !db.ValidKind(input.Kind) {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown snapshot kind %q", input.Kind))
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	offset := max(input.Offset, 0)

	items, total, err := db.ListSnapshots(database, input.Kind, limit, offset)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []db.Snapshot{}
	}

	return &ListSnapshotsOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "created_at_desc",
	}, nil
}
