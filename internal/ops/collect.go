package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/sabis-tools/sabis/internal/config"
	"github.com/sabis-tools/sabis/internal/db"
	"github.com/sabis-tools/sabis/internal/duedate"
	"github.com/sabis-tools/sabis/internal/errors"
	"github.com/sabis-tools/sabis/internal/extract"
)

// CollectInput contains parameters for the collect operations.
type CollectInput struct {
	Refresh bool // bypass a fresh cached snapshot
}

// SnapshotInfo describes where a collect result came from.
type SnapshotInfo struct {
	ID        string `json:"id,omitempty"`
	FromCache bool   `json:"from_cache"`
	Stale     bool   `json:"stale,omitempty"`
	Error     string `json:"error,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// AssignmentsOutput is an assignment payload plus its snapshot provenance.
type AssignmentsOutput struct {
	*extract.AssignmentPayload
	Snapshot SnapshotInfo `json:"snapshot"`
}

// ExamsOutput is an exam payload plus its snapshot provenance.
type ExamsOutput struct {
	*extract.ExamPayload
	Snapshot SnapshotInfo `json:"snapshot"`
}

// CollectAssignments returns the current assignment list, served from the
// snapshot cache when fresh and fetched from the portal otherwise.
func CollectAssignments(ctx context.Context, database *sql.DB, cfg *config.Config, f Fetcher, input CollectInput) (*AssignmentsOutput, error) {
	payload, info, err := collect(ctx, database, cfg, db.KindAssignments, input.Refresh,
		f.FetchAnnouncements,
		func(p *extract.AssignmentPayload) (int, string, string) {
			return len(p.Assignments), p.SourceURL, p.CollectedAt
		})
	if err != nil {
		return nil, err
	}
	return &AssignmentsOutput{AssignmentPayload: payload, Snapshot: info}, nil
}

// CollectExams is CollectAssignments for the exam schedule.
func CollectExams(ctx context.Context, database *sql.DB, cfg *config.Config, f Fetcher, input CollectInput) (*ExamsOutput, error) {
	payload, info, err := collect(ctx, database, cfg, db.KindExams, input.Refresh,
		f.FetchExams,
		func(p *extract.ExamPayload) (int, string, string) {
			return len(p.Exams), p.SourceURL, p.CollectedAt
		})
	if err != nil {
		return nil, err
	}
	return &ExamsOutput{ExamPayload: payload, Snapshot: info}, nil
}

// collect implements the cache policy shared by both kinds:
//  1. a snapshot younger than the cache max age is served unless refresh is set
//  2. a non-empty fetch result is stored and returned
//  3. an empty or failed fetch falls back to the latest snapshot, marked stale
//  4. with nothing cached, the fetch error (or the empty payload) is returned
func collect[T any](
	ctx context.Context,
	database *sql.DB,
	cfg *config.Config,
	kind string,
	refresh bool,
	fetch func(context.Context) (*T, error),
	describe func(*T) (count int, sourceURL, collectedAt string),
) (*T, SnapshotInfo, error) {
	cached, err := db.LatestSnapshot(database, kind)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, SnapshotInfo{}, err
	}

	now := time.Now()
	if cached != nil && !refresh && now.Sub(time.UnixMilli(cached.CreatedAt)) < cfg.CacheMaxAge() {
		payload, err := decodeSnapshot[T](cached)
		if err != nil {
			return nil, SnapshotInfo{}, err
		}
		logger.Debug.Printf("serving cached %s snapshot %s", kind, cached.ID)
		return payload, SnapshotInfo{ID: cached.ID, FromCache: true, CreatedAt: cached.CreatedAt}, nil
	}

	fresh, fetchErr := fetch(ctx)
	if fetchErr == nil {
		count, sourceURL, collectedAt := describe(fresh)
		if count > 0 {
			snap, err := storeSnapshot(database, kind, fresh, count, sourceURL, collectedAt, now)
			if err != nil {
				return nil, SnapshotInfo{}, err
			}
			return fresh, SnapshotInfo{ID: snap.ID, CreatedAt: snap.CreatedAt}, nil
		}
	}

	if cached == nil {
		if fetchErr != nil {
			return nil, SnapshotInfo{}, fetchErr
		}
		return fresh, SnapshotInfo{}, nil
	}

	payload, err := decodeSnapshot[T](cached)
	if err != nil {
		return nil, SnapshotInfo{}, err
	}
	info := SnapshotInfo{ID: cached.ID, FromCache: true, Stale: true, CreatedAt: cached.CreatedAt}
	if fetchErr != nil {
		info.Error = fetchErr.Error()
		logger.Info.Printf("%s fetch failed, serving snapshot %s: %v", kind, cached.ID, fetchErr)
	} else {
		info.Error = fmt.Sprintf("portal returned no %s", kind)
	}
	return payload, info, nil
}

func storeSnapshot(database *sql.DB, kind string, payload any, count int, sourceURL, collectedAt string, now time.Time) (*db.Snapshot, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	collected := now.UnixMilli()
	if t, err := time.Parse(duedate.ISOLayout, collectedAt); err == nil {
		collected = t.UnixMilli()
	}

	snap := &db.Snapshot{
		ID:          ulid.MustNew(ulid.Timestamp(now), ulid.Monotonic(rand.Reader, 0)).String(),
		Kind:        kind,
		SourceURL:   sourceURL,
		PayloadJSON: string(data),
		ItemCount:   count,
		CollectedAt: collected,
		CreatedAt:   now.UnixMilli(),
	}
	if err := db.InsertSnapshot(database, snap); err != nil {
		return nil, err
	}
	logger.Info.Printf("stored %s snapshot %s (%d items)", kind, snap.ID, count)
	return snap, nil
}

func decodeSnapshot[T any](s *db.Snapshot) (*T, error) {
	var payload T
	if err := json.Unmarshal([]byte(s.PayloadJSON), &payload); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("corrupt %s snapshot %s: %w", s.Kind, s.ID, err))
	}
	return &payload, nil
}
