package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doglog/doglog/internal/model"
	"github.com/jmoiron/sqlx"
)

const (
	DefaultEventLimit = 50
	MaxEventLimit     = 200
)

var (
	ErrEventNotFound = errors.New("event not found")
)

type EventRepository interface {
	WithTx(tx *sqlx.Tx) EventRepository
	Upsert(ctx context.Context, event *model.BehaviorEvent) (*model.BehaviorEvent, error)
	ByClientEventID(ctx context.Context, clientEventID string) (*model.BehaviorEvent, error)
	Events(ctx context.Context, filter model.EventFilter) ([]*model.BehaviorEvent, error)
	All(ctx context.Context) ([]*model.BehaviorEvent, error)
}

type eventRepository struct {
	db sqlx.ExtContext
}

func NewEventRepository(db *sqlx.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) WithTx(tx *sqlx.Tx) EventRepository {
	return &eventRepository{db: tx}
}

// Upsert inserts the event or, when client_event_id already exists, overwrites
// the stored fields in place. The row id and created_at survive; tags are replaced.
func (r *eventRepository) Upsert(ctx context.Context, event *model.BehaviorEvent) (*model.BehaviorEvent, error) {
	query := `INSERT INTO behavior_events (id, client_event_id, occurred_at, valence, intensity, notes, context, source, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          ON CONFLICT (client_event_id) DO UPDATE
	          SET occurred_at = excluded.occurred_at,
	              valence = excluded.valence,
	              intensity = excluded.intensity,
	              notes = excluded.notes,
	              context = excluded.context,
	              source = excluded.source,
	              updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.ClientEventID,
		event.OccurredAt,
		event.Valence,
		event.Intensity,
		event.Notes,
		event.Context,
		event.Source,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert event %s: %w", event.ClientEventID, err)
	}

	saved := &model.BehaviorEvent{}
	err = sqlx.GetContext(ctx, r.db, saved, `SELECT * FROM behavior_events WHERE client_event_id = $1`, event.ClientEventID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload event %s: %w", event.ClientEventID, err)
	}

	_, err = r.db.ExecContext(ctx, `DELETE FROM event_tags WHERE event_id = $1`, saved.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to clear tags: %w", err)
	}

	for _, tag := range event.Tags {
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO event_tags (event_id, tag) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			saved.ID, tag,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to save tag %q: %w", tag, err)
		}
	}

	saved.Tags = append([]string{}, event.Tags...)
	return saved, nil
}

func (r *eventRepository) ByClientEventID(ctx context.Context, clientEventID string) (*model.BehaviorEvent, error) {
	event := &model.BehaviorEvent{}
	err := sqlx.GetContext(ctx, r.db, event, `SELECT * FROM behavior_events WHERE client_event_id = $1`, clientEventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}

	tags, err := r.tags(ctx, []string{event.ID})
	if err != nil {
		return nil, err
	}
	event.Tags = tags[event.ID]
	return event, nil
}

// Events returns events newest first, filtered by time range, valence and tag.
func (r *eventRepository) Events(ctx context.Context, filter model.EventFilter) ([]*model.BehaviorEvent, error) {
	var where []string
	var args []any

	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("e.occurred_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("e.occurred_at <= $%d", len(args)))
	}
	if filter.Valence != "" {
		args = append(args, filter.Valence)
		where = append(where, fmt.Sprintf("e.valence = $%d", len(args)))
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		where = append(where, fmt.Sprintf("EXISTS (SELECT 1 FROM event_tags t WHERE t.event_id = e.id AND t.tag = $%d)", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	if limit > MaxEventLimit {
		limit = MaxEventLimit
	}
	args = append(args, limit)

	query := `SELECT e.* FROM behavior_events e`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(` ORDER BY e.occurred_at DESC, e.id DESC LIMIT $%d`, len(args))

	var events []*model.BehaviorEvent
	err := sqlx.SelectContext(ctx, r.db, &events, query, args...)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}

	tags, err := r.tags(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, e := range events {
		e.Tags = tags[e.ID]
		if e.Tags == nil {
			e.Tags = []string{}
		}
	}

	return events, nil
}

// All returns every event oldest first with its tags, for export.
func (r *eventRepository) All(ctx context.Context) ([]*model.BehaviorEvent, error) {
	var events []*model.BehaviorEvent
	err := sqlx.SelectContext(ctx, r.db, &events, `SELECT * FROM behavior_events ORDER BY occurred_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		EventID string `db:"event_id"`
		Tag     string `db:"tag"`
	}
	err = sqlx.SelectContext(ctx, r.db, &rows, `SELECT event_id, tag FROM event_tags ORDER BY event_id, tag`)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}

	tags := make(map[string][]string)
	for _, row := range rows {
		tags[row.EventID] = append(tags[row.EventID], row.Tag)
	}

	for _, e := range events {
		e.Tags = tags[e.ID]
		if e.Tags == nil {
			e.Tags = []string{}
		}
	}

	return events, nil
}

func (r *eventRepository) tags(ctx context.Context, eventIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`SELECT event_id, tag FROM event_tags WHERE event_id IN (?) ORDER BY tag`, eventIDs)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		EventID string `db:"event_id"`
		Tag     string `db:"tag"`
	}
	err = sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}

	for _, row := range rows {
		out[row.EventID] = append(out[row.EventID], row.Tag)
	}
	return out, nil
}
