package model

import (
	"time"
)

const (
	SuggestionSourceAI                 = "ai"
	SuggestionSourceFallbackLastActive = "fallback_last_active"
	SuggestionSourceFallbackRecent     = "fallback_recent"
)

// GoalSuggestion caches the suggested goal for one calendar day.
type GoalSuggestion struct {
	SuggestionDate string    `db:"suggestion_date" json:"suggestion_date"` // YYYY-MM-DD
	GoalID         string    `db:"goal_id" json:"goal_id"`
	Source         string    `db:"source" json:"source"`
	Notice         *string   `db:"notice" json:"notice,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
