// Package client is the DogLog command-line client: a durable offline queue of
// behavior events and the protocol that syncs it to the server.
package client

import (
	"strings"
	"time"

	"github.com/doglog/doglog/internal/model"
	"github.com/doglog/doglog/internal/validation"
	"github.com/google/uuid"
)

// Event is a behavior event as queued locally and sent in a batch.
type Event struct {
	ClientEventID string         `json:"client_event_id"`
	OccurredAt    time.Time      `json:"occurred_at"`
	Valence       string         `json:"valence"`
	Intensity     int            `json:"intensity"`
	Tags          []string       `json:"tags"`
	Notes         *string        `json:"notes"`
	Context       map[string]any `json:"context"`
}

// NewEvent stamps a fresh idempotency key and the current time. A zero
// intensity means the default.
func NewEvent(valence string, intensity int, tags []string, notes string) (Event, error) {
	err := validation.ValidateValence(valence)
	if err != nil {
		return Event{}, err
	}

	if intensity == 0 {
		intensity = model.DefaultIntensity
	}
	if intensity < 1 || intensity > 5 {
		return Event{}, &validation.Error{Field: "intensity", Message: "must be between 1 and 5"}
	}

	ev := Event{
		ClientEventID: uuid.New().String(),
		OccurredAt:    time.Now().UTC(),
		Valence:       valence,
		Intensity:     intensity,
		Tags:          validation.NormalizeTags(tags),
		Context:       map[string]any{},
	}
	if n := strings.TrimSpace(notes); n != "" {
		ev.Notes = &n
	}
	return ev, nil
}
