package model

import (
	"time"
)

const (
	ValencePositive = "positive"
	ValenceNegative = "negative"

	EventSourceManual = "manual"

	DefaultIntensity = 3
)

// BehaviorEvent is a single logged behavior. ClientEventID is generated by the
// client when the event is queued and is the upsert key on the server.
type BehaviorEvent struct {
	ID            string    `db:"id" json:"id"`
	ClientEventID string    `db:"client_event_id" json:"client_event_id"`
	OccurredAt    time.Time `db:"occurred_at" json:"occurred_at"`
	Valence       string    `db:"valence" json:"valence"`
	Intensity     int       `db:"intensity" json:"intensity"`
	Notes         *string   `db:"notes" json:"notes"`
	Context       JSONMap   `db:"context" json:"context"`
	Source        string    `db:"source" json:"source"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`

	// Loaded from event_tags
	Tags []string `db:"-" json:"tags"`
}

func (e *BehaviorEvent) IsPositive() bool {
	return e.Valence == ValencePositive
}

type EventFilter struct {
	From    *time.Time
	To      *time.Time
	Valence string
	Tag     string
	Limit   int
}
