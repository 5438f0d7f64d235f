package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/doglog/doglog/internal/model"
	"github.com/doglog/doglog/internal/repository"
	"github.com/doglog/doglog/internal/storage"
)

var (
	ErrStorageNotConfigured = errors.New("archive storage is not configured")
)

// Snapshot is a full export of goals (with steps) and events.
type Snapshot struct {
	ExportedAt time.Time              `json:"exported_at"`
	Goals      []*model.Goal          `json:"goals"`
	Events     []*model.BehaviorEvent `json:"events"`
}

type Archive struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type ExportService struct {
	goals     *GoalService
	eventRepo repository.EventRepository
	storage   storage.Storage
}

// NewExportService creates the service. store may be nil, in which case
// Archive returns ErrStorageNotConfigured.
func NewExportService(goals *GoalService, eventRepo repository.EventRepository, store storage.Storage) *ExportService {
	return &ExportService{
		goals:     goals,
		eventRepo: eventRepo,
		storage:   store,
	}
}

func (s *ExportService) Snapshot(ctx context.Context) (*Snapshot, error) {
	goals, err := s.goals.Goals(ctx, repository.GoalSortCreated)
	if err != nil {
		return nil, fmt.Errorf("failed to load goals: %w", err)
	}

	events, err := s.eventRepo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	if goals == nil {
		goals = []*model.Goal{}
	}
	if events == nil {
		events = []*model.BehaviorEvent{}
	}

	return &Snapshot{
		ExportedAt: timeNow(),
		Goals:      goals,
		Events:     events,
	}, nil
}

// Archive writes a snapshot to storage under exports/ and returns a download link.
func (s *ExportService) Archive(ctx context.Context) (*Archive, error) {
	if s.storage == nil {
		return nil, ErrStorageNotConfigured
	}

	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := fmt.Sprintf("exports/doglog-%s.json", snapshot.ExportedAt.Format("20060102T150405Z"))
	err = s.storage.Save(ctx, key, bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}

	url, err := s.storage.URL(ctx, key)
	if err != nil {
		// An archive nobody can download is removed again.
		delErr := s.storage.Delete(ctx, key)
		if delErr != nil {
			slog.Error("failed to remove unlinked archive", "key", key, "error", delErr)
		}
		return nil, err
	}

	slog.Info("export archived", "key", key, "goals", len(snapshot.Goals), "events", len(snapshot.Events))
	return &Archive{Key: key, URL: url}, nil
}
