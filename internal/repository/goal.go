package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doglog/doglog/internal/model"
	"github.com/jmoiron/sqlx"
)

const (
	GoalSortRecent   = "recent"
	GoalSortCreated  = "created"
	GoalSortPriority = "priority"
	GoalSortTitle    = "title"
)

var (
	ErrGoalNotFound = errors.New("goal not found")
)

type GoalRepository interface {
	WithTx(tx *sqlx.Tx) GoalRepository
	Create(ctx context.Context, goal *model.Goal) error
	ByID(ctx context.Context, goalID string) (*model.Goal, error)
	LockByID(ctx context.Context, goalID string) (*model.Goal, error)
	Active(ctx context.Context) (*model.Goal, error)
	Goals(ctx context.Context, sortBy string) ([]*model.Goal, error)
	Update(ctx context.Context, goal *model.Goal) error
	UpdateStatus(ctx context.Context, goalID, status string) error
	DemoteActive(ctx context.Context, exceptGoalID string) (int64, error)
	ReserveStepOrders(ctx context.Context, goalID string, count int) (int, error)
	Delete(ctx context.Context, goalID string) error
}

type goalRepository struct {
	db sqlx.ExtContext
}

func NewGoalRepository(db *sqlx.DB) GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) WithTx(tx *sqlx.Tx) GoalRepository {
	return &goalRepository{db: tx}
}

func (r *goalRepository) Create(ctx context.Context, goal *model.Goal) error {
	query := `INSERT INTO goals (id, title, description, status, priority, target_date, success_criteria, next_step_order, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		goal.ID,
		goal.Title,
		goal.Description,
		goal.Status,
		goal.Priority,
		goal.TargetDate,
		goal.SuccessCriteria,
		goal.NextStepOrder,
		goal.CreatedAt,
		goal.UpdatedAt,
	)

	return err
}

func (r *goalRepository) ByID(ctx context.Context, goalID string) (*model.Goal, error) {
	return r.get(ctx, `SELECT * FROM goals WHERE id = $1`, goalID)
}

func (r *goalRepository) LockByID(ctx context.Context, goalID string) (*model.Goal, error) {
	return r.get(ctx, `SELECT * FROM goals WHERE id = $1`+forUpdate(r.db), goalID)
}

func (r *goalRepository) Active(ctx context.Context) (*model.Goal, error) {
	return r.get(ctx, `SELECT * FROM goals WHERE status = $1`, model.GoalStatusActive)
}

func (r *goalRepository) get(ctx context.Context, query string, args ...any) (*model.Goal, error) {
	goal := &model.Goal{}
	err := sqlx.GetContext(ctx, r.db, goal, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGoalNotFound
	}
	if err != nil {
		return nil, err
	}
	return goal, nil
}

func (r *goalRepository) Goals(ctx context.Context, sortBy string) ([]*model.Goal, error) {
	var goals []*model.Goal

	// Validate and build ORDER BY clause
	var orderBy string
	switch sortBy {
	case GoalSortCreated:
		orderBy = "ORDER BY created_at DESC"
	case GoalSortPriority:
		orderBy = "ORDER BY priority ASC, updated_at DESC"
	case GoalSortTitle:
		orderBy = "ORDER BY LOWER(title) ASC"
	default: // GoalSortRecent or empty
		orderBy = "ORDER BY updated_at DESC, created_at DESC"
	}

	err := sqlx.SelectContext(ctx, r.db, &goals, `SELECT * FROM goals `+orderBy)
	if err != nil {
		return nil, err
	}

	return goals, nil
}

func (r *goalRepository) Update(ctx context.Context, goal *model.Goal) error {
	query := `UPDATE goals
	          SET title = $1, description = $2, priority = $3, target_date = $4, success_criteria = $5, updated_at = $6
	          WHERE id = $7`

	result, err := r.db.ExecContext(ctx, query,
		goal.Title,
		goal.Description,
		goal.Priority,
		goal.TargetDate,
		goal.SuccessCriteria,
		goal.UpdatedAt,
		goal.ID,
	)
	if err != nil {
		return err
	}

	return checkAffected(result, ErrGoalNotFound)
}

func (r *goalRepository) UpdateStatus(ctx context.Context, goalID, status string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE goals SET status = $1, updated_at = $2 WHERE id = $3`,
		status, now(), goalID,
	)
	if err != nil {
		return err
	}

	return checkAffected(result, ErrGoalNotFound)
}

// DemoteActive pauses every active goal other than exceptGoalID.
func (r *goalRepository) DemoteActive(ctx context.Context, exceptGoalID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE goals SET status = $1, updated_at = $2 WHERE status = $3 AND id <> $4`,
		model.GoalStatusPaused, now(), model.GoalStatusActive, exceptGoalID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ReserveStepOrders claims count consecutive step orders for a goal and
// returns the first one. Orders are never handed out twice.
func (r *goalRepository) ReserveStepOrders(ctx context.Context, goalID string, count int) (int, error) {
	var start int
	err := sqlx.GetContext(ctx, r.db, &start, `SELECT next_step_order FROM goals WHERE id = $1`+forUpdate(r.db), goalID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrGoalNotFound
	}
	if err != nil {
		return 0, err
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE goals SET next_step_order = $1, updated_at = $2 WHERE id = $3`,
		start+count, now(), goalID,
	)
	if err != nil {
		return 0, err
	}

	return start, nil
}

func (r *goalRepository) Delete(ctx context.Context, goalID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = $1`, goalID)
	if err != nil {
		return err
	}

	return checkAffected(result, ErrGoalNotFound)
}
