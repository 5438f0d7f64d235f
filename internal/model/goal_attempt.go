package model

import (
	"time"
)

const (
	AttemptOutcomePass      = "pass"
	AttemptOutcomeNeedsWork = "needs_work"
)

// GoalAttempt is an append-only log entry. Seq is unique per step and breaks
// ties between attempts sharing a CreatedAt.
type GoalAttempt struct {
	ID              string    `db:"id" json:"id"`
	StepID          string    `db:"step_id" json:"step_id"`
	Seq             int64     `db:"seq" json:"seq"`
	Outcome         string    `db:"outcome" json:"outcome"`
	Note            string    `db:"note" json:"note"`
	DurationSeconds *int      `db:"duration_seconds" json:"duration_seconds"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
