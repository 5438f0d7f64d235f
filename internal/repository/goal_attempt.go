package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doglog/doglog/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrGoalAttemptNotFound = errors.New("goal attempt not found")
)

type GoalAttemptRepository interface {
	WithTx(tx *sqlx.Tx) GoalAttemptRepository
	Create(ctx context.Context, attempt *model.GoalAttempt) error
	NextSeq(ctx context.Context, stepID string) (int64, error)
	Last(ctx context.Context, stepID string) (*model.GoalAttempt, error)
	Attempts(ctx context.Context, stepID string) ([]*model.GoalAttempt, error)
	Outcomes(ctx context.Context, stepID string) ([]string, error)
	Delete(ctx context.Context, attemptID string) error
}

type goalAttemptRepository struct {
	db sqlx.ExtContext
}

func NewGoalAttemptRepository(db *sqlx.DB) GoalAttemptRepository {
	return &goalAttemptRepository{db: db}
}

func (r *goalAttemptRepository) WithTx(tx *sqlx.Tx) GoalAttemptRepository {
	return &goalAttemptRepository{db: tx}
}

func (r *goalAttemptRepository) Create(ctx context.Context, attempt *model.GoalAttempt) error {
	query := `INSERT INTO goal_attempts (id, step_id, seq, outcome, note, duration_seconds, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		attempt.ID,
		attempt.StepID,
		attempt.Seq,
		attempt.Outcome,
		attempt.Note,
		attempt.DurationSeconds,
		attempt.CreatedAt,
	)

	return err
}

// NextSeq returns the next insertion sequence for a step. Callers hold the
// step lock, so the value cannot race.
func (r *goalAttemptRepository) NextSeq(ctx context.Context, stepID string) (int64, error) {
	var seq int64
	err := sqlx.GetContext(ctx, r.db, &seq, `SELECT COALESCE(MAX(seq), 0) + 1 FROM goal_attempts WHERE step_id = $1`, stepID)
	return seq, err
}

// Last returns the most recent attempt, latest created_at first and highest seq on ties.
func (r *goalAttemptRepository) Last(ctx context.Context, stepID string) (*model.GoalAttempt, error) {
	attempt := &model.GoalAttempt{}
	query := `SELECT * FROM goal_attempts WHERE step_id = $1 ORDER BY created_at DESC, seq DESC LIMIT 1`

	err := sqlx.GetContext(ctx, r.db, attempt, query, stepID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGoalAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

// Attempts returns the step's history in chronological order.
func (r *goalAttemptRepository) Attempts(ctx context.Context, stepID string) ([]*model.GoalAttempt, error) {
	var attempts []*model.GoalAttempt
	query := `SELECT * FROM goal_attempts WHERE step_id = $1 ORDER BY created_at ASC, seq ASC`

	err := sqlx.SelectContext(ctx, r.db, &attempts, query, stepID)
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *goalAttemptRepository) Outcomes(ctx context.Context, stepID string) ([]string, error) {
	var outcomes []string
	query := `SELECT outcome FROM goal_attempts WHERE step_id = $1 ORDER BY created_at ASC, seq ASC`

	err := sqlx.SelectContext(ctx, r.db, &outcomes, query, stepID)
	if err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (r *goalAttemptRepository) Delete(ctx context.Context, attemptID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM goal_attempts WHERE id = $1`, attemptID)
	if err != nil {
		return err
	}

	return checkAffected(result, ErrGoalAttemptNotFound)
}
