package ops

import (
	"database/sql"

	"github.com/sabis-tools/sabis/internal/db"
	"github.com/sabis-tools/sabis/internal/extract"
)

// LatestAssignments returns the newest stored assignment snapshot without
// contacting the portal. Returns NOT_FOUND when nothing has been collected.
func LatestAssignments(database *sql.DB) (*AssignmentsOutput, error) {
	payload, info, err := latest[extract.AssignmentPayload](database, db.KindAssignments)
	if err != nil {
		return nil, err
	}
	return &AssignmentsOutput{AssignmentPayload: payload, Snapshot: info}, nil
}

// LatestExams returns the newest stored exam snapshot.
func LatestExams(database *sql.DB) (*ExamsOutput, error) {
	payload, info, err := latest[extract.ExamPayload](database, db.KindExams)
	if err != nil {
		return nil, err
	}
	return &ExamsOutput{ExamPayload: payload, Snapshot: info}, nil
}

func latest[T any](database *sql.DB, kind string) (*T, SnapshotInfo, error) {
	snap, err := db.LatestSnapshot(database, kind)
	if err != nil {
		return nil, SnapshotInfo{}, err
	}
	payload, err := decodeSnapshot[T](snap)
	if err != nil {
		return nil, SnapshotInfo{}, err
	}
	return payload, SnapshotInfo{ID: snap.ID, FromCache: true, CreatedAt: snap.CreatedAt}, nil
}
