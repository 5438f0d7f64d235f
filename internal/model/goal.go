package model

import (
	"time"
)

const (
	GoalStatusDraft    = "draft"
	GoalStatusActive   = "active"
	GoalStatusPaused   = "paused"
	GoalStatusAchieved = "achieved"
	GoalStatusArchived = "archived"

	DefaultGoalPriority = 3
)

var GoalStatuses = []string{
	GoalStatusDraft,
	GoalStatusActive,
	GoalStatusPaused,
	GoalStatusAchieved,
	GoalStatusArchived,
}

type Goal struct {
	ID              string    `db:"id" json:"id"`
	Title           string    `db:"title" json:"title"`
	Description     string    `db:"description" json:"description"`
	Status          string    `db:"status" json:"status"`
	Priority        int       `db:"priority" json:"priority"`
	TargetDate      *string   `db:"target_date" json:"target_date"` // YYYY-MM-DD
	SuccessCriteria string    `db:"success_criteria" json:"success_criteria"`
	NextStepOrder   int       `db:"next_step_order" json:"-"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`

	// Computed fields (not in database)
	Steps []*GoalStep `db:"-" json:"steps"`
}

// IsTerminal reports whether the goal can no longer be worked on.
func (g *Goal) IsTerminal() bool {
	return g.Status == GoalStatusAchieved || g.Status == GoalStatusArchived
}

// Progress returns the share of done steps as a whole percentage.
func (g *Goal) Progress() int {
	if len(g.Steps) == 0 {
		return 0
	}
	done := 0
	for _, s := range g.Steps {
		if s.IsDone() {
			done++
		}
	}
	return done * 100 / len(g.Steps)
}
