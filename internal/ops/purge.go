package ops

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sabis-tools/sabis/internal/db"
	"github.com/sabis-tools/sabis/internal/errors"
)

// PurgeInput contains parameters for the PurgeSnapshots operation.
type PurgeInput struct {
	Kind          string // optional filter
	OlderThanDays int    // purge snapshots created more than N days ago; 0 purges all
	KeepLatest    bool   // never purge the newest snapshot of a kind
}

// PurgeOutput contains the result of the PurgeSnapshots operation.
type PurgeOutput struct {
	Purged  int    `json:"purged"`
	Message string `json:"message"`
}

// PurgeSnapshots deletes old snapshots.
func PurgeSnapshots(database *sql.DB, input PurgeInput, now time.Time) (*PurgeOutput, error) {
	if input.Kind != "" && !db.ValidKind(input.Kind) {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown snapshot kind %q", input.Kind))
	}
	if input.OlderThanDays < 0 {
		return nil, errors.NewInvalidRequest("older_than_days must not be negative")
	}

	cutoff := now.Add(-time.Duration(input.OlderThanDays) * 24 * time.Hour).UnixMilli()
	if input.OlderThanDays == 0 {
		cutoff = now.UnixMilli() + 1
	}

	count, err := db.PurgeSnapshots(database, input.Kind, cutoff, input.KeepLatest)
	if err != nil {
		return nil, err
	}
	return &PurgeOutput{
		Purged:  count,
		Message: formatPurgeMessage(count, input),
	}, nil
}

func formatPurgeMessage(count int, input PurgeInput) string {
	if count == 0 {
		return "No snapshots to purge"
	}

	word := "snapshot"
	if count > 1 {
		word = "snapshots"
	}
	msg := fmt.Sprintf("Deleted %d %s %s", count, input.Kind, word)
	if input.Kind == "" {
		msg = fmt.Sprintf("Deleted %d %s", count, word)
	}
	if input.OlderThanDays > 0 {
		msg += fmt.Sprintf(" older than %d days", input.OlderThanDays)
	}
	return msg
}
