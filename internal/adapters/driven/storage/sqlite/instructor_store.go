package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/profrank/internal/core/domain"
	"github.com/custodia-labs/profrank/internal/core/ports/driven"
)

// reviewTagSep joins review tags in a single column.
const reviewTagSep = "--"

// ==================== Page Transactions ====================

// cacheTx implements driven.CacheTx over a database transaction.
type cacheTx struct {
	tx *sql.Tx
}

var _ driven.CacheTx = (*cacheTx)(nil)

// Begin opens a write transaction covering one page.
func (s *Store) Begin(ctx context.Context) (driven.CacheTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("beginning transaction", err)
	}
	return &cacheTx{tx: tx}, nil
}

// UpsertInstructor inserts or replaces an instructor by ID.
// Tags and courses are replaced wholesale.
func (t *cacheTx) UpsertInstructor(ctx context.Context, instr *domain.Instructor) error {
	if instr == nil || instr.ID == 0 {
		return domain.ErrInvalidInput
	}
	if instr.UpdatedAt.IsZero() {
		instr.UpdatedAt = time.Now().UTC()
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO instructors (id, node_id, first_name, last_name, department, raw_department,
			avg_quality, avg_difficulty, would_take_again, rating_count, composite_score, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			node_id = excluded.node_id,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			department = excluded.department,
			raw_department = excluded.raw_department,
			avg_quality = excluded.avg_quality,
			avg_difficulty = excluded.avg_difficulty,
			would_take_again = excluded.would_take_again,
			rating_count = excluded.rating_count,
			composite_score = excluded.composite_score,
			updated_at = excluded.updated_at
	`, instr.ID, instr.NodeID, instr.FirstName, instr.LastName, instr.Department, instr.RawDepartment,
		nullMetric(instr.Quality), nullMetric(instr.Difficulty), nullMetric(instr.WouldTakeAgain),
		instr.RatingCount, instr.Composite, formatTime(instr.UpdatedAt))
	if err != nil {
		return storageErr("saving instructor", err)
	}

	if err := t.replaceCounts(ctx, "instructor_tags", "name", instr.ID, instr.Tags); err != nil {
		return err
	}
	return t.replaceCounts(ctx, "instructor_courses", "code", instr.ID, instr.Courses)
}

// replaceCounts swaps an instructor's multiset rows in table.
func (t *cacheTx) replaceCounts(ctx context.Context, table, column string, id int64, counts []domain.Count) error {
	//nolint:gosec // table and column are package constants
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE instructor_id = ?", id); err != nil {
		return storageErr("clearing "+table, err)
	}
	if len(counts) == 0 {
		return nil
	}

	//nolint:gosec // table and column are package constants
	stmt, err := t.tx.PrepareContext(ctx,
		"INSERT INTO "+table+" (instructor_id, "+column+", count) VALUES (?, ?, ?)")
	if err != nil {
		return storageErr("preparing "+table, err)
	}
	defer stmt.Close()

	for _, c := range counts {
		if _, err := stmt.ExecContext(ctx, id, c.Name, c.Count); err != nil {
			return storageErr("saving "+table, err)
		}
	}
	return nil
}

// UpsertReviews inserts reviews not yet cached and ignores known IDs.
func (t *cacheTx) UpsertReviews(ctx context.Context, reviews []domain.Review) (int, error) {
	if len(reviews) == 0 {
		return 0, nil
	}

	stmt, err := t.tx.PrepareContext(ctx, `
		INSERT INTO reviews (id, instructor_id, quality, difficulty, would_take_again, course, grade,
			comment, tags, thumbs_up, thumbs_down, posted_at, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return 0, storageErr("preparing reviews", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	inserted := 0
	for i := range reviews {
		r := &reviews[i]
		if r.ID == "" {
			return inserted, domain.ErrInvalidInput
		}
		ingestedAt := r.IngestedAt
		if ingestedAt.IsZero() {
			ingestedAt = now
		}

		res, err := stmt.ExecContext(ctx, r.ID, r.InstructorID,
			nullMetric(r.Quality), nullMetric(r.Difficulty), triToNull(r.WouldTakeAgain),
			r.Course, r.Grade, r.Comment, strings.Join(r.Tags, reviewTagSep),
			r.ThumbsUp, r.ThumbsDown, formatNullableTime(r.PostedAt), formatTime(ingestedAt))
		if err != nil {
			return inserted, storageErr("saving review", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	return inserted, nil
}

// Commit makes the page visible.
func (t *cacheTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return storageErr("committing page", err)
	}
	return nil
}

// Rollback discards the page. Safe after Commit.
func (t *cacheTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return storageErr("rolling back page", err)
	}
	return nil
}

// ==================== Instructor Reads ====================

// instructorColumns is the column list scanned by scanInstructor.
const instructorColumns = `id, node_id, first_name, last_name, department, raw_department,
	avg_quality, avg_difficulty, would_take_again, rating_count, composite_score, updated_at`

// ListInstructors returns instructors passing the filter, ordered by ID.
func (s *Store) ListInstructors(ctx context.Context, filter domain.InstructorFilter) ([]domain.Instructor, error) {
	where, args := filterClause(filter)

	// Read in one snapshot so multisets match their instructor rows
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("beginning read", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, "SELECT "+instructorColumns+" FROM instructors"+where+" ORDER BY id", args...)
	if err != nil {
		return nil, storageErr("querying instructors", err)
	}
	defer rows.Close()

	var instructors []domain.Instructor //nolint:prealloc // size unknown from query
	index := make(map[int64]int)
	for rows.Next() {
		instr, err := scanInstructor(rows)
		if err != nil {
			return nil, err
		}
		index[instr.ID] = len(instructors)
		instructors = append(instructors, *instr)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating instructors", err)
	}
	if len(instructors) == 0 {
		return instructors, nil
	}

	subquery := " WHERE instructor_id IN (SELECT id FROM instructors" + where + ")"
	err = loadCounts(ctx, tx, "SELECT instructor_id, name, count FROM instructor_tags"+subquery+
		" ORDER BY instructor_id, count DESC, name", args, func(id int64, c domain.Count) {
		if i, ok := index[id]; ok {
			instructors[i].Tags = append(instructors[i].Tags, c)
		}
	})
	if err != nil {
		return nil, err
	}

	err = loadCounts(ctx, tx, "SELECT instructor_id, code, count FROM instructor_courses"+subquery+
		" ORDER BY instructor_id, count DESC, code", args, func(id int64, c domain.Count) {
		if i, ok := index[id]; ok {
			instructors[i].Courses = append(instructors[i].Courses, c)
		}
	})
	if err != nil {
		return nil, err
	}

	return instructors, nil
}

// GetInstructor returns one instructor.
func (s *Store) GetInstructor(ctx context.Context, id int64) (*domain.Instructor, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("beginning read", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, "SELECT "+instructorColumns+" FROM instructors WHERE id = ?", id)
	if err != nil {
		return nil, storageErr("querying instructor", err)
	}
	var instr *domain.Instructor
	if rows.Next() {
		instr, err = scanInstructor(rows)
	}
	rows.Close()
	if err != nil {
		return nil, err
	}
	if instr == nil {
		return nil, domain.ErrNotFound
	}

	args := []any{id}
	err = loadCounts(ctx, tx, "SELECT instructor_id, name, count FROM instructor_tags WHERE instructor_id = ?"+
		" ORDER BY count DESC, name", args, func(_ int64, c domain.Count) {
		instr.Tags = append(instr.Tags, c)
	})
	if err != nil {
		return nil, err
	}
	err = loadCounts(ctx, tx, "SELECT instructor_id, code, count FROM instructor_courses WHERE instructor_id = ?"+
		" ORDER BY count DESC, code", args, func(_ int64, c domain.Count) {
		instr.Courses = append(instr.Courses, c)
	})
	if err != nil {
		return nil, err
	}

	return instr, nil
}

// UpdateComposites rewrites cached composite scores by instructor ID.
func (s *Store) UpdateComposites(ctx context.Context, scores map[int64]float64) error {
	if len(scores) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, "UPDATE instructors SET composite_score = ? WHERE id = ?")
	if err != nil {
		return storageErr("preparing composite update", err)
	}
	defer stmt.Close()

	for id, score := range scores {
		if _, err := stmt.ExecContext(ctx, score, id); err != nil {
			return storageErr("updating composite", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("committing composites", err)
	}
	return nil
}

// Counts returns row totals.
func (s *Store) Counts(ctx context.Context) (domain.CacheCounts, error) {
	var c domain.CacheCounts
	row := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM instructors), (SELECT COUNT(*) FROM reviews)
	`)
	if err := row.Scan(&c.Instructors, &c.Reviews); err != nil {
		return c, storageErr("counting rows", err)
	}
	return c, nil
}

// ==================== Review Reads ====================

// ListReviews returns an instructor's reviews, newest first.
func (s *Store) ListReviews(ctx context.Context, instructorID int64) ([]domain.Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, instructor_id, quality, difficulty, would_take_again, course, grade,
			comment, tags, thumbs_up, thumbs_down, posted_at, ingested_at
		FROM reviews
		WHERE instructor_id = ?
		ORDER BY posted_at DESC, id
	`, instructorID)
	if err != nil {
		return nil, storageErr("querying reviews", err)
	}
	defer rows.Close()

	var reviews []domain.Review //nolint:prealloc // size unknown from query
	for rows.Next() {
		var r domain.Review
		var quality, difficulty sql.NullFloat64
		var wta sql.NullInt64
		var tags string
		var postedAt, ingestedAt sql.NullString
		if err := rows.Scan(&r.ID, &r.InstructorID, &quality, &difficulty, &wta, &r.Course, &r.Grade,
			&r.Comment, &tags, &r.ThumbsUp, &r.ThumbsDown, &postedAt, &ingestedAt); err != nil {
			return nil, storageErr("scanning review", err)
		}
		r.Quality = scanMetric(quality)
		r.Difficulty = scanMetric(difficulty)
		r.WouldTakeAgain = nullToTri(wta)
		if tags != "" {
			r.Tags = strings.Split(tags, reviewTagSep)
		}
		r.PostedAt = parseNullableTime(postedAt)
		r.IngestedAt = parseNullableTime(ingestedAt)
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating reviews", err)
	}

	return reviews, nil
}

// ==================== Helper Functions ====================

// filterClause builds a WHERE clause for an instructor filter.
func filterClause(f domain.InstructorFilter) (string, []any) {
	var conds []string
	var args []any
	if f.Department != "" {
		conds = append(conds, "department = ?")
		args = append(args, f.Department)
	}
	if f.MinRatings > 0 {
		conds = append(conds, "rating_count >= ?")
		args = append(args, f.MinRatings)
	}
	if f.CourseCode != "" {
		conds = append(conds, "id IN (SELECT instructor_id FROM instructor_courses WHERE code = ?)")
		args = append(args, f.CourseCode)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// loadCounts streams multiset rows into fn.
func loadCounts(ctx context.Context, tx *sql.Tx, query string, args []any, fn func(int64, domain.Count)) error {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return storageErr("querying counts", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var c domain.Count
		if err := rows.Scan(&id, &c.Name, &c.Count); err != nil {
			return storageErr("scanning counts", err)
		}
		fn(id, c)
	}
	if err := rows.Err(); err != nil {
		return storageErr("iterating counts", err)
	}
	return nil
}

// scanInstructor scans an instructor row.
func scanInstructor(rows *sql.Rows) (*domain.Instructor, error) {
	var instr domain.Instructor
	var quality, difficulty, wta sql.NullFloat64
	var updatedAt sql.NullString
	if err := rows.Scan(&instr.ID, &instr.NodeID, &instr.FirstName, &instr.LastName,
		&instr.Department, &instr.RawDepartment, &quality, &difficulty, &wta,
		&instr.RatingCount, &instr.Composite, &updatedAt); err != nil {
		return nil, fmt.Errorf("%w: scanning instructor: %w", domain.ErrStorage, err)
	}
	instr.Quality = scanMetric(quality)
	instr.Difficulty = scanMetric(difficulty)
	instr.WouldTakeAgain = scanMetric(wta)
	instr.UpdatedAt = parseNullableTime(updatedAt)
	return &instr, nil
}

// triToNull maps a tri-state answer to 1, 0 or NULL.
func triToNull(t domain.TriState) any {
	switch t {
	case domain.TriYes:
		return 1
	case domain.TriNo:
		return 0
	default:
		return nil
	}
}

// nullToTri is the inverse of triToNull.
func nullToTri(v sql.NullInt64) domain.TriState {
	if !v.Valid {
		return domain.TriUnknown
	}
	if v.Int64 == 1 {
		return domain.TriYes
	}
	return domain.TriNo
}
