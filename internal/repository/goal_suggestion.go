package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doglog/doglog/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrGoalSuggestionNotFound = errors.New("goal suggestion not found")
)

type GoalSuggestionRepository interface {
	ByDate(ctx context.Context, date string) (*model.GoalSuggestion, error)
	Upsert(ctx context.Context, suggestion *model.GoalSuggestion) error
}

type goalSuggestionRepository struct {
	db *sqlx.DB
}

func NewGoalSuggestionRepository(db *sqlx.DB) GoalSuggestionRepository {
	return &goalSuggestionRepository{db: db}
}

func (r *goalSuggestionRepository) ByDate(ctx context.Context, date string) (*model.GoalSuggestion, error) {
	suggestion := &model.GoalSuggestion{}
	err := r.db.GetContext(ctx, suggestion, `SELECT * FROM goal_suggestions WHERE suggestion_date = $1`, date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGoalSuggestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return suggestion, nil
}

// Upsert stores the day's suggestion. Concurrent writers for the same day
// collapse to one row; the last writer wins.
func (r *goalSuggestionRepository) Upsert(ctx context.Context, suggestion *model.GoalSuggestion) error {
	query := `INSERT INTO goal_suggestions (suggestion_date, goal_id, source, notice, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          ON CONFLICT (suggestion_date) DO UPDATE
	          SET goal_id = excluded.goal_id,
	              source = excluded.source,
	              notice = excluded.notice,
	              updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		suggestion.SuggestionDate,
		suggestion.GoalID,
		suggestion.Source,
		suggestion.Notice,
		suggestion.CreatedAt,
		suggestion.UpdatedAt,
	)

	return err
}
