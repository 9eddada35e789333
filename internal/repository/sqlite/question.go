package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/revision-tracker/internal/apperror"
	"github.com/sakif/revision-tracker/internal/model"
	"github.com/sakif/revision-tracker/internal/repository"
)

// Compile-time check that *DB satisfies the interface.
var _ repository.QuestionRepository = (*DB)(nil)

const questionColumns = `id, user_id, question, link, topic, difficulty, source, created_at, last_revised`

// execer is the subset shared by *sql.DB and *sql.Tx, so inserts can run
// either standalone or inside a batch transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Create inserts a question and fills in its ID.
//
// CreatedAt is kept when the caller already set it (imports carry their own
// creation time) and stamped with the current time otherwise.
func (db *DB) Create(ctx context.Context, q *model.Question) error {
	if err := insertQuestion(ctx, db.conn, q); err != nil {
		return fmt.Errorf("sqlite: creating question: %w", err)
	}
	return nil
}

// CreateBatch inserts every question in one transaction.
//
// TRANSACTIONS:
// BeginTx pins a connection; every statement must go through tx, not db.conn.
// The deferred Rollback is a no-op once Commit has succeeded, so it is safe
// to defer it unconditionally.
func (db *DB) CreateBatch(ctx context.Context, qs []model.Question) error {
	if len(qs) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning import transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range qs {
		if err := insertQuestion(ctx, tx, &qs[i]); err != nil {
			return fmt.Errorf("sqlite: importing question %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing import: %w", err)
	}
	return nil
}

func insertQuestion(ctx context.Context, ex execer, q *model.Question) error {
	q.ID = xid.New().String()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
	q.CreatedAt = q.CreatedAt.UTC()
	if q.LastRevised != nil {
		at := q.LastRevised.UTC()
		q.LastRevised = &at
	}

	_, err := ex.ExecContext(ctx,
		`INSERT INTO questions (`+questionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID,
		q.UserID,
		q.Question,
		q.Link,
		q.Topic,
		q.Difficulty,
		nullString(q.Source),
		q.CreatedAt,
		nullTime(q.LastRevised),
	)
	return err
}

// GetByID returns one of userID's questions.
// Questions owned by someone else are reported as not found.
func (db *DB) GetByID(ctx context.Context, userID, id string) (*model.Question, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+questionColumns+`
		 FROM questions
		 WHERE id = ? AND user_id = ?`,
		id, userID,
	)

	q, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("question", id)
		}
		return nil, fmt.Errorf("sqlite: getting question %s: %w", id, err)
	}
	return q, nil
}

// List returns every question of userID, newest first. The whole set is
// returned because filtering, sorting and statistics run in memory over it.
func (db *DB) List(ctx context.Context, userID string) ([]model.Question, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+questionColumns+`
		 FROM questions
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing questions: %w", err)
	}
	defer rows.Close()

	questions := make([]model.Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning question row: %w", err)
		}
		questions = append(questions, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating questions: %w", err)
	}

	return questions, nil
}

// Update rewrites the editable fields. id, user_id, created_at and
// last_revised are never changed here.
func (db *DB) Update(ctx context.Context, q *model.Question) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE questions
		 SET question = ?, link = ?, topic = ?, difficulty = ?, source = ?
		 WHERE id = ? AND user_id = ?`,
		q.Question,
		q.Link,
		q.Topic,
		q.Difficulty,
		nullString(q.Source),
		q.ID,
		q.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating question %s: %w", q.ID, err)
	}
	return expectOneRow(result, q.ID)
}

// Delete removes one of userID's questions.
func (db *DB) Delete(ctx context.Context, userID, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM questions WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting question %s: %w", id, err)
	}
	return expectOneRow(result, id)
}

// SetLastRevised persists a "mark revised" proposal.
func (db *DB) SetLastRevised(ctx context.Context, userID, id string, at time.Time) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE questions SET last_revised = ? WHERE id = ? AND user_id = ?`,
		at.UTC(), id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: revising question %s: %w", id, err)
	}
	return expectOneRow(result, id)
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanQuestion(s scanner) (*model.Question, error) {
	var (
		q           model.Question
		source      sql.NullString
		lastRevised sql.NullTime
	)
	err := s.Scan(
		&q.ID,
		&q.UserID,
		&q.Question,
		&q.Link,
		&q.Topic,
		&q.Difficulty,
		&source,
		&q.CreatedAt,
		&lastRevised,
	)
	if err != nil {
		return nil, err
	}

	if source.Valid {
		q.Source = &source.String
	}
	if lastRevised.Valid {
		at := lastRevised.Time
		q.LastRevised = &at
	}
	return &q, nil
}

func expectOneRow(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("question", id)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
