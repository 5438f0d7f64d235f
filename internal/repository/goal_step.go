package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doglog/doglog/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrGoalStepNotFound = errors.New("goal step not found")
)

type GoalStepRepository interface {
	WithTx(tx *sqlx.Tx) GoalStepRepository
	CreateSteps(ctx context.Context, steps []*model.GoalStep) error
	ByID(ctx context.Context, stepID string) (*model.GoalStep, error)
	LockByID(ctx context.Context, stepID string) (*model.GoalStep, error)
	Steps(ctx context.Context, goalID string) ([]*model.GoalStep, error)
	StepsByGoalIDs(ctx context.Context, goalIDs []string) (map[string][]*model.GoalStep, error)
	UpdateDetails(ctx context.Context, step *model.GoalStep) error
	UpdateProgress(ctx context.Context, step *model.GoalStep) error
}

type goalStepRepository struct {
	db sqlx.ExtContext
}

func NewGoalStepRepository(db *sqlx.DB) GoalStepRepository {
	return &goalStepRepository{db: db}
}

func (r *goalStepRepository) WithTx(tx *sqlx.Tx) GoalStepRepository {
	return &goalStepRepository{db: tx}
}

// CreateSteps inserts steps whose StepOrder was reserved on the goal.
func (r *goalStepRepository) CreateSteps(ctx context.Context, steps []*model.GoalStep) error {
	query := `INSERT INTO goal_steps (id, goal_id, title, details, success_criteria, step_order, status, estimated_minutes,
	                                  pass_count, needs_work_count, consecutive_passes, ai_generated, completed_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	for _, s := range steps {
		_, err := r.db.ExecContext(ctx, query,
			s.ID,
			s.GoalID,
			s.Title,
			s.Details,
			s.SuccessCriteria,
			s.StepOrder,
			s.Status,
			s.EstimatedMinutes,
			s.PassCount,
			s.NeedsWorkCount,
			s.ConsecutivePasses,
			s.AIGenerated,
			s.CompletedAt,
			s.CreatedAt,
			s.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create step %d: %w", s.StepOrder, err)
		}
	}

	return nil
}

func (r *goalStepRepository) ByID(ctx context.Context, stepID string) (*model.GoalStep, error) {
	return r.get(ctx, `SELECT * FROM goal_steps WHERE id = $1`, stepID)
}

// LockByID loads the step holding an exclusive row lock until the enclosing
// transaction ends. Must be called on a repository bound with WithTx.
func (r *goalStepRepository) LockByID(ctx context.Context, stepID string) (*model.GoalStep, error) {
	return r.get(ctx, `SELECT * FROM goal_steps WHERE id = $1`+forUpdate(r.db), stepID)
}

func (r *goalStepRepository) get(ctx context.Context, query string, args ...any) (*model.GoalStep, error) {
	step := &model.GoalStep{}
	err := sqlx.GetContext(ctx, r.db, step, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGoalStepNotFound
	}
	if err != nil {
		return nil, err
	}
	return step, nil
}

func (r *goalStepRepository) Steps(ctx context.Context, goalID string) ([]*model.GoalStep, error) {
	var steps []*model.GoalStep
	err := sqlx.SelectContext(ctx, r.db, &steps, `SELECT * FROM goal_steps WHERE goal_id = $1 ORDER BY step_order ASC`, goalID)
	if err != nil {
		return nil, err
	}
	return steps, nil
}

func (r *goalStepRepository) StepsByGoalIDs(ctx context.Context, goalIDs []string) (map[string][]*model.GoalStep, error) {
	out := make(map[string][]*model.GoalStep, len(goalIDs))
	if len(goalIDs) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM goal_steps WHERE goal_id IN (?) ORDER BY goal_id, step_order ASC`, goalIDs)
	if err != nil {
		return nil, err
	}

	var steps []*model.GoalStep
	err = sqlx.SelectContext(ctx, r.db, &steps, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	for _, s := range steps {
		out[s.GoalID] = append(out[s.GoalID], s)
	}
	return out, nil
}

func (r *goalStepRepository) UpdateDetails(ctx context.Context, step *model.GoalStep) error {
	query := `UPDATE goal_steps
	          SET title = $1, details = $2, success_criteria = $3, estimated_minutes = $4, updated_at = $5
	          WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query,
		step.Title,
		step.Details,
		step.SuccessCriteria,
		step.EstimatedMinutes,
		step.UpdatedAt,
		step.ID,
	)
	if err != nil {
		return err
	}

	return checkAffected(result, ErrGoalStepNotFound)
}

// UpdateProgress writes the mastery projection (counters, status, completed_at).
func (r *goalStepRepository) UpdateProgress(ctx context.Context, step *model.GoalStep) error {
	query := `UPDATE goal_steps
	          SET pass_count = $1, needs_work_count = $2, consecutive_passes = $3, status = $4, completed_at = $5, updated_at = $6
	          WHERE id = $7`

	result, err := r.db.ExecContext(ctx, query,
		step.PassCount,
		step.NeedsWorkCount,
		step.ConsecutivePasses,
		step.Status,
		step.CompletedAt,
		step.UpdatedAt,
		step.ID,
	)
	if err != nil {
		return err
	}

	return checkAffected(result, ErrGoalStepNotFound)
}
