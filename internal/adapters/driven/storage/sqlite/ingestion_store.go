package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/custodia-labs/profrank/internal/core/domain"
)

// ==================== Ingestion Metadata ====================

// GetIngestionMetadata returns the freshness record.
// Returns domain.ErrNotFound until a cycle has succeeded.
func (s *Store) GetIngestionMetadata(ctx context.Context) (*domain.IngestionMetadata, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT last_refresh, instructor_count, review_count, refresh_in_progress, last_run_id
		FROM ingestion_metadata WHERE id = 1
	`)

	var meta domain.IngestionMetadata
	var lastRefresh, lastRunID sql.NullString
	var inProgress int
	if err := row.Scan(&lastRefresh, &meta.InstructorCount, &meta.ReviewCount, &inProgress, &lastRunID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageErr("scanning ingestion metadata", err)
	}

	meta.LastRefresh = parseNullableTime(lastRefresh)
	if meta.LastRefresh.IsZero() {
		return nil, domain.ErrNotFound
	}
	meta.RefreshInProgress = inProgress == 1
	meta.LastRunID = lastRunID.String

	return &meta, nil
}

// SetIngestionMetadata replaces the freshness record.
func (s *Store) SetIngestionMetadata(ctx context.Context, meta domain.IngestionMetadata) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingestion_metadata (id, last_refresh, instructor_count, review_count, refresh_in_progress, last_run_id)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_refresh = excluded.last_refresh,
			instructor_count = excluded.instructor_count,
			review_count = excluded.review_count,
			refresh_in_progress = excluded.refresh_in_progress,
			last_run_id = excluded.last_run_id
	`, formatNullableTime(meta.LastRefresh), meta.InstructorCount, meta.ReviewCount,
		boolToInt(meta.RefreshInProgress), nullString(meta.LastRunID))
	if err != nil {
		return storageErr("saving ingestion metadata", err)
	}
	return nil
}

// SetRefreshInProgress flips the in-progress flag without touching the
// refresh timestamp.
func (s *Store) SetRefreshInProgress(ctx context.Context, runID string, inProgress bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingestion_metadata (id, refresh_in_progress, last_run_id)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			refresh_in_progress = excluded.refresh_in_progress,
			last_run_id = COALESCE(excluded.last_run_id, ingestion_metadata.last_run_id)
	`, boolToInt(inProgress), nullString(runID))
	if err != nil {
		return storageErr("saving refresh flag", err)
	}
	return nil
}

// ==================== Ingestion Runs ====================

// RecordRun inserts or updates an ingestion run.
func (s *Store) RecordRun(ctx context.Context, run *domain.IngestionRun) error {
	if run == nil || run.ID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingestion_runs (id, started_at, finished_at, status, forced, pages,
			instructors_upserted, reviews_added, records_skipped, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			status = excluded.status,
			pages = excluded.pages,
			instructors_upserted = excluded.instructors_upserted,
			reviews_added = excluded.reviews_added,
			records_skipped = excluded.records_skipped,
			error = excluded.error
	`, run.ID, formatTime(run.StartedAt), formatNullableTime(run.FinishedAt), string(run.Status),
		boolToInt(run.Forced), run.Pages, run.InstructorsUpserted, run.ReviewsAdded,
		run.RecordsSkipped, nullString(run.Error))
	if err != nil {
		return storageErr("recording ingestion run", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.IngestionRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, status, forced, pages,
			instructors_upserted, reviews_added, records_skipped, error
		FROM ingestion_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, storageErr("querying ingestion runs", err)
	}
	defer rows.Close()

	var runs []domain.IngestionRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		var run domain.IngestionRun
		var startedAt, finishedAt, errMsg sql.NullString
		var status string
		var forced int
		if err := rows.Scan(&run.ID, &startedAt, &finishedAt, &status, &forced, &run.Pages,
			&run.InstructorsUpserted, &run.ReviewsAdded, &run.RecordsSkipped, &errMsg); err != nil {
			return nil, storageErr("scanning ingestion run", err)
		}
		run.StartedAt = parseNullableTime(startedAt)
		run.FinishedAt = parseNullableTime(finishedAt)
		run.Status = domain.RunStatus(status)
		run.Forced = forced == 1
		run.Error = errMsg.String
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating ingestion runs", err)
	}

	return runs, nil
}

// PruneRuns keeps only the newest keep runs.
func (s *Store) PruneRuns(ctx context.Context, keep int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM ingestion_runs
		WHERE id NOT IN (
			SELECT id FROM ingestion_runs ORDER BY started_at DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return storageErr("pruning ingestion runs", err)
	}
	return nil
}
