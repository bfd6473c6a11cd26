package db

import (
	"context"
	"database/sql"
	"testing"

	"github.com/sabis-tools/sabis/internal/errors"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestSnapshot(id, kind string, createdAt int64) *Snapshot {
	return &Snapshot{
		ID:          id,
		Kind:        kind,
		SourceURL:   "https://obs.sabis.sakarya.edu.tr/",
		PayloadJSON: `{"assignments":[]}`,
		ItemCount:   0,
		CollectedAt: createdAt,
		CreatedAt:   createdAt,
	}
}

func mustInsert(t *testing.T, db *sql.DB, s *Snapshot) {
	t.Helper()
	if err := InsertSnapshot(db, s); err != nil {
		t.Fatalf("InsertSnapshot(%s) failed: %v", s.ID, err)
	}
}

func TestInsertAndGetSnapshot(t *testing.T) {
	db := openTestDB(t)

	s := newTestSnapshot("01A", KindAssignments, 1000)
	s.ItemCount = 2
	s.PayloadJSON = `{"assignments":[{"title":"x"},{"title":"y"}]}`
	mustInsert(t, db, s)

	got, err := GetSnapshot(db, "01A")
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if *got != *s {
		t.Errorf("GetSnapshot = %+v, want %+v", got, s)
	}
}

func TestGetSnapshot_NotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := GetSnapshot(db, "missing")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetSnapshot error = %v, want NOT_FOUND", err)
	}
}

func TestLatestSnapshot(t *testing.T) {
	db := openTestDB(t)

	mustInsert(t, db, newTestSnapshot("01A", KindAssignments, 1000))
	mustInsert(t, db, newTestSnapshot("01B", KindAssignments, 3000))
	mustInsert(t, db, newTestSnapshot("01C", KindExams, 5000))

	got, err := LatestSnapshot(db, KindAssignments)
	if err != nil {
		t.Fatalf("LatestSnapshot failed: %v", err)
	}
	if got.ID != "01B" {
		t.Errorf("LatestSnapshot ID = %s, want 01B", got.ID)
	}

	if _, err := LatestSnapshot(openTestDB(t), KindExams); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("LatestSnapshot on empty db error = %v, want NOT_FOUND", err)
	}
}

func TestListSnapshots(t *testing.T) {
	db := openTestDB(t)

	mustInsert(t, db, newTestSnapshot("01A", KindAssignments, 1000))
	mustInsert(t, db, newTestSnapshot("01B", KindExams, 2000))
	mustInsert(t, db, newTestSnapshot("01C", KindAssignments, 3000))

	tests := []struct {
		name    string
		kind    string
		limit   int
		offset  int
		wantIDs []string
		total   int
	}{
		{"all kinds", "", 10, 0, []string{"01C", "01B", "01A"}, 3},
		{"one kind", KindAssignments, 10, 0, []string{"01C", "01A"}, 2},
		{"paged", "", 1, 1, []string{"01B"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := ListSnapshots(db, tt.kind, tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("ListSnapshots failed: %v", err)
			}
			if total != tt.total {
				t.Errorf("total = %d, want %d", total, tt.total)
			}
			if len(items) != len(tt.wantIDs) {
				t.Fatalf("len(items) = %d, want %d", len(items), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if items[i].ID != id {
					t.Errorf("items[%d].ID = %s, want %s", i, items[i].ID, id)
				}
				if items[i].PayloadJSON != "" {
					t.Errorf("items[%d] carries a payload", i)
				}
			}
		})
	}
}

func TestPurgeSnapshots(t *testing.T) {
	tests := []struct {
		name       string
		kind       string
		keepLatest bool
		want       int
		remaining  []string
	}{
		{"all old", "", false, 3, []string{"01D"}},
		{"one kind", KindExams, false, 1, []string{"01A", "01B", "01D"}},
		{"keep latest per kind", "", true, 2, []string{"01C", "01D"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := openTestDB(t)
			mustInsert(t, db, newTestSnapshot("01A", KindAssignments, 1000))
			mustInsert(t, db, newTestSnapshot("01B", KindAssignments, 2000))
			mustInsert(t, db, newTestSnapshot("01C", KindExams, 3000))
			mustInsert(t, db, newTestSnapshot("01D", KindAssignments, 9000))

			n, err := PurgeSnapshots(db, tt.kind, 5000, tt.keepLatest)
			if err != nil {
				t.Fatalf("PurgeSnapshots failed: %v", err)
			}
			if n != tt.want {
				t.Errorf("purged = %d, want %d", n, tt.want)
			}

			items, _, err := ListSnapshots(db, "", 10, 0)
			if err != nil {
				t.Fatalf("ListSnapshots failed: %v", err)
			}
			got := map[string]bool{}
			for _, s := range items {
				got[s.ID] = true
			}
			if len(got) != len(tt.remaining) {
				t.Errorf("remaining = %v, want %v", got, tt.remaining)
			}
			for _, id := range tt.remaining {
				if !got[id] {
					t.Errorf("snapshot %s was purged", id)
				}
			}
		})
	}
}

func TestStreamSnapshots(t *testing.T) {
	db := openTestDB(t)

	mustInsert(t, db, newTestSnapshot("01B", KindAssignments, 2000))
	mustInsert(t, db, newTestSnapshot("01A", KindAssignments, 1000))
	mustInsert(t, db, newTestSnapshot("01C", KindExams, 3000))

	rows, err := StreamSnapshots(context.Background(), db, KindAssignments)
	if err != nil {
		t.Fatalf("StreamSnapshots failed: %v", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		s, err := ScanSnapshotFromRows(rows)
		if err != nil {
			t.Fatalf("ScanSnapshotFromRows failed: %v", err)
		}
		if s.PayloadJSON == "" {
			t.Errorf("snapshot %s streamed without payload", s.ID)
		}
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "01A" || ids[1] != "01B" {
		t.Errorf("streamed ids = %v, want [01A 01B]", ids)
	}
}

func TestValidKind(t *testing.T) {
	if !ValidKind(KindAssignments) || !ValidKind(KindExams) {
		t.Error("known kinds rejected")
	}
	if ValidKind("grades") {
		t.Error("unknown kind accepted")
	}
}
