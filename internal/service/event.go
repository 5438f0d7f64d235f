package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/doglog/doglog/internal/model"
	"github.com/doglog/doglog/internal/repository"
	"github.com/doglog/doglog/internal/validation"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// EventInput is one behavior event as submitted by a client batch.
type EventInput struct {
	ClientEventID string         `json:"client_event_id"`
	OccurredAt    string         `json:"occurred_at"`
	Valence       string         `json:"valence"`
	Intensity     *int           `json:"intensity"`
	Tags          []string       `json:"tags"`
	Notes         *string        `json:"notes"`
	Context       map[string]any `json:"context"`
	Source        *string        `json:"source"`
}

type EventService struct {
	repo repository.EventRepository
	tx   repository.TxRunner
}

func NewEventService(repo repository.EventRepository, tx repository.TxRunner) *EventService {
	return &EventService{
		repo: repo,
		tx:   tx,
	}
}

// SaveBatch upserts every event keyed by client_event_id. The batch is all or
// nothing: one invalid event rejects the whole batch and nothing is stored.
func (s *EventService) SaveBatch(ctx context.Context, inputs []EventInput) ([]*model.BehaviorEvent, error) {
	if len(inputs) == 0 {
		return nil, &validation.Error{Field: "events", Message: "must be a non-empty array"}
	}

	now := timeNow()
	events := make([]*model.BehaviorEvent, 0, len(inputs))
	for i, in := range inputs {
		event, err := s.toEvent(in, now)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		events = append(events, event)
	}

	saved := make([]*model.BehaviorEvent, 0, len(events))
	err := s.tx.InTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.repo.WithTx(tx)
		for _, event := range events {
			row, err := repo.Upsert(ctx, event)
			if err != nil {
				return err
			}
			saved = append(saved, row)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save event batch: %w", err)
	}

	slog.Info("event batch saved", "count", len(saved))
	return saved, nil
}

func (s *EventService) toEvent(in EventInput, now time.Time) (*model.BehaviorEvent, error) {
	event := &model.BehaviorEvent{
		ID:            uuid.New().String(),
		ClientEventID: strings.TrimSpace(in.ClientEventID),
		Valence:       strings.TrimSpace(in.Valence),
		Intensity:     model.DefaultIntensity,
		Notes:         in.Notes,
		Context:       model.JSONMap(in.Context),
		Source:        model.EventSourceManual,
		Tags:          validation.NormalizeTags(in.Tags),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if in.Intensity != nil {
		event.Intensity = *in.Intensity
	}
	if in.Source != nil && strings.TrimSpace(*in.Source) != "" {
		event.Source = strings.TrimSpace(*in.Source)
	}
	if event.Context == nil {
		event.Context = model.JSONMap{}
	}
	if event.Notes != nil {
		trimmed := strings.TrimSpace(*event.Notes)
		if trimmed == "" {
			event.Notes = nil
		} else {
			event.Notes = &trimmed
		}
	}

	if in.OccurredAt != "" {
		occurredAt, err := validation.ParseTime("occurred_at", in.OccurredAt)
		if err != nil {
			return nil, err
		}
		event.OccurredAt = occurredAt.UTC().Truncate(time.Microsecond)
	}

	err := validation.ValidateEvent(event)
	if err != nil {
		return nil, err
	}

	return event, nil
}

func (s *EventService) Events(ctx context.Context, filter model.EventFilter) ([]*model.BehaviorEvent, error) {
	if filter.Valence != "" {
		err := validation.ValidateValence(filter.Valence)
		if err != nil {
			return nil, err
		}
	}
	if filter.Tag != "" {
		tags := validation.NormalizeTags([]string{filter.Tag})
		if len(tags) > 0 {
			filter.Tag = tags[0]
		}
	}
	if filter.From != nil {
		from := filter.From.UTC()
		filter.From = &from
	}
	if filter.To != nil {
		to := filter.To.UTC()
		filter.To = &to
	}

	return s.repo.Events(ctx, filter)
}

func (s *EventService) ByClientEventID(ctx context.Context, clientEventID string) (*model.BehaviorEvent, error) {
	return s.repo.ByClientEventID(ctx, clientEventID)
}
