package model

import (
	"time"
)

const (
	AIRunStatusQueued  = "queued"
	AIRunStatusSuccess = "success"
	AIRunStatusFailed  = "failed"

	AIRunPurposeGoalBreakdown = "goal_breakdown"
)

// AIRun is an audit row for one step generation request.
type AIRun struct {
	ID              string     `db:"id"`
	GoalID          string     `db:"goal_id"`
	Provider        string     `db:"provider"`
	Model           string     `db:"model"`
	Purpose         string     `db:"purpose"`
	InputSummary    string     `db:"input_summary"`
	RequestPayload  string     `db:"request_payload"`
	ResponsePayload *string    `db:"response_payload"`
	Status          string     `db:"status"`
	ErrorMessage    *string    `db:"error_message"`
	CreatedAt       time.Time  `db:"created_at"`
	CompletedAt     *time.Time `db:"completed_at"`
}
