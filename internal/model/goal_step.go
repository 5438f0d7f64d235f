package model

import (
	"time"
)

const (
	StepStatusPending    = "pending"
	StepStatusInProgress = "in_progress"
	StepStatusDone       = "done"

	DefaultEstimatedMinutes = 10
)

// GoalStep is one ordered milestone of a goal. PassCount, NeedsWorkCount and
// ConsecutivePasses are a projection of the step's attempt log.
type GoalStep struct {
	ID                string     `db:"id" json:"id"`
	GoalID            string     `db:"goal_id" json:"goal_id"`
	Title             string     `db:"title" json:"title"`
	Details           string     `db:"details" json:"details"`
	SuccessCriteria   string     `db:"success_criteria" json:"success_criteria"`
	StepOrder         int        `db:"step_order" json:"step_order"`
	Status            string     `db:"status" json:"status"`
	EstimatedMinutes  int        `db:"estimated_minutes" json:"estimated_minutes"`
	PassCount         int        `db:"pass_count" json:"pass_count"`
	NeedsWorkCount    int        `db:"needs_work_count" json:"needs_work_count"`
	ConsecutivePasses int        `db:"consecutive_passes" json:"consecutive_passes"`
	AIGenerated       bool       `db:"ai_generated" json:"ai_generated"`
	CompletedAt       *time.Time `db:"completed_at" json:"completed_at"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

func (s *GoalStep) IsDone() bool {
	return s.Status == StepStatusDone
}

func (s *GoalStep) TotalAttempts() int {
	return s.PassCount + s.NeedsWorkCount
}

// StepDraft is a proposed step before it is appended to a goal.
type StepDraft struct {
	Title            string `json:"title"`
	Details          string `json:"details"`
	SuccessCriteria  string `json:"success_criteria,omitempty"`
	EstimatedMinutes int    `json:"estimated_minutes"`
}
