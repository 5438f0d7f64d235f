package repository

import (
	"context"
	"errors"

	"github.com/doglog/doglog/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrAIRunNotFound = errors.New("ai run not found")
)

type AIRunRepository interface {
	Create(ctx context.Context, run *model.AIRun) error
	Complete(ctx context.Context, runID, responsePayload string) error
	Fail(ctx context.Context, runID, message string) error
	Runs(ctx context.Context, goalID string) ([]*model.AIRun, error)
}

type aiRunRepository struct {
	db *sqlx.DB
}

func NewAIRunRepository(db *sqlx.DB) AIRunRepository {
	return &aiRunRepository{db: db}
}

func (r *aiRunRepository) Create(ctx context.Context, run *model.AIRun) error {
	query := `INSERT INTO ai_runs (id, goal_id, provider, model, purpose, input_summary, request_payload, status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.GoalID,
		run.Provider,
		run.Model,
		run.Purpose,
		run.InputSummary,
		run.RequestPayload,
		run.Status,
		run.CreatedAt,
	)

	return err
}

func (r *aiRunRepository) Complete(ctx context.Context, runID, responsePayload string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE ai_runs SET status = $1, response_payload = $2, completed_at = $3 WHERE id = $4`,
		model.AIRunStatusSuccess, responsePayload, now(), runID,
	)
	if err != nil {
		return err
	}

	return checkAffected(result, ErrAIRunNotFound)
}

func (r *aiRunRepository) Fail(ctx context.Context, runID, message string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE ai_runs SET status = $1, error_message = $2, completed_at = $3 WHERE id = $4`,
		model.AIRunStatusFailed, message, now(), runID,
	)
	if err != nil {
		return err
	}

	return checkAffected(result, ErrAIRunNotFound)
}

func (r *aiRunRepository) Runs(ctx context.Context, goalID string) ([]*model.AIRun, error) {
	var runs []*model.AIRun
	err := r.db.SelectContext(ctx, &runs, `SELECT * FROM ai_runs WHERE goal_id = $1 ORDER BY created_at DESC`, goalID)
	if err != nil {
		return nil, err
	}
	return runs, nil
}
