package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/sabis-tools/sabis/internal/errors"
)

// Snapshot kinds.
const (
	KindAssignments = "assignments"
	KindExams       = "exams"
)

// Snapshot is one cached collection pass.
type Snapshot struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	SourceURL   string `json:"source_url"`
	PayloadJSON string `json:"-"`
	ItemCount   int    `json:"item_count"`

	// CollectedAt and CreatedAt are unix milliseconds
	CollectedAt int64 `json:"collected_at"`
	CreatedAt   int64 `json:"created_at"`
}

const snapshotColumns = `id, kind, source_url, payload_json, item_count, collected_at, created_at`

// ValidKind reports whether kind names a snapshot table partition.
func ValidKind(kind string) bool {
	return kind == KindAssignments || kind == KindExams
}

// InsertSnapshot stores s.
func InsertSnapshot(db *sql.DB, s *Snapshot) error {
	_, err := db.Exec(`
		INSERT INTO snapshots (`+snapshotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Kind, s.SourceURL, s.PayloadJSON, s.ItemCount, s.CollectedAt, s.CreatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// InsertSnapshotIfAbsent stores s inside tx unless its id already exists.
// Reports whether a row was written.
func InsertSnapshotIfAbsent(tx *sql.Tx, s *Snapshot) (bool, error) {
	res, err := tx.Exec(`
		INSERT OR IGNORE INTO snapshots (`+snapshotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Kind, s.SourceURL, s.PayloadJSON, s.ItemCount, s.CollectedAt, s.CreatedAt)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return n > 0, nil
}

// GetSnapshot retrieves a snapshot by its ULID.
func GetSnapshot(db *sql.DB, id string) (*Snapshot, error) {
	row := db.QueryRow(`SELECT `+snapshotColumns+` FROM snapshots WHERE id = ?`, id)
	s, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return s, nil
}

// LatestSnapshot returns the most recently stored snapshot of kind.
func LatestSnapshot(db *sql.DB, kind string) (*Snapshot, error) {
	row := db.QueryRow(`
		SELECT `+snapshotColumns+`
		FROM snapshots
		WHERE kind = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, kind)
	s, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(kind + " snapshot")
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return s, nil
}

// ListSnapshots returns snapshots newest first, without payloads, and the
// total count for the filter. An empty kind lists every kind.
func ListSnapshots(db *sql.DB, kind string, limit, offset int) ([]Snapshot, int, error) {
	where, args := kindFilter(kind)

	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM snapshots`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	rows, err := db.Query(`
		SELECT id, kind, source_url, '', item_count, collected_at, created_at
		FROM snapshots`+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		s, err := ScanSnapshotFromRows(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return out, total, nil
}

// PurgeSnapshots deletes snapshots created before cutoff (unix ms). An empty
// kind purges every kind. The newest snapshot of each kind is kept when
// keepLatest is set.
func PurgeSnapshots(db *sql.DB, kind string, cutoff int64, keepLatest bool) (int, error) {
	var (
		conds []string
		args  []any
	)
	conds = append(conds, "created_at < ?")
	args = append(args, cutoff)
	if kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, kind)
	}
	if keepLatest {
		conds = append(conds, `id NOT IN (
			SELECT (
				SELECT l.id FROM snapshots l WHERE l.kind = k.kind
				ORDER BY l.created_at DESC, l.id DESC LIMIT 1
			)
			FROM (SELECT DISTINCT kind FROM snapshots) k
		)`)
	}

	result, err := db.Exec(`DELETE FROM snapshots WHERE `+strings.Join(conds, " AND "), args...)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

// StreamSnapshots returns full rows oldest first for export. The caller
// closes the rows.
func StreamSnapshots(ctx context.Context, db *sql.DB, kind string) (*sql.Rows, error) {
	where, args := kindFilter(kind)
	rows, err := db.QueryContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM snapshots`+where+`
		ORDER BY created_at ASC, id ASC
	`, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return rows, nil
}

// ScanSnapshotFromRows scans the current row of a snapshot query.
func ScanSnapshotFromRows(rows *sql.Rows) (*Snapshot, error) {
	var s Snapshot
	if err := rows.Scan(&s.ID, &s.Kind, &s.SourceURL, &s.PayloadJSON, &s.ItemCount, &s.CollectedAt, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanSnapshot(row *sql.Row) (*Snapshot, error) {
	var s Snapshot
	if err := row.Scan(&s.ID, &s.Kind, &s.SourceURL, &s.PayloadJSON, &s.ItemCount, &s.CollectedAt, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func kindFilter(kind string) (string, []any) {
	if kind == "" {
		return "", nil
	}
	return " WHERE kind = ?", []any{kind}
}
