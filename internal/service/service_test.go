package service

import (
	"context"
	"testing"

	"github.com/doglog/doglog/internal/db/dbtest"
	"github.com/doglog/doglog/internal/model"
	"github.com/doglog/doglog/internal/repository"
)

type testServices struct {
	goals       *GoalService
	steps       *StepService
	events      *EventService
	suggestions repository.GoalSuggestionRepository
	runs        repository.AIRunRepository
	eventRepo   repository.EventRepository
	goalRepo    repository.GoalRepository
	stepRepo    repository.GoalStepRepository
	tx          repository.TxRunner
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()

	database := dbtest.New(t)
	tx := repository.NewTxRunner(database)
	goalRepo := repository.NewGoalRepository(database)
	stepRepo := repository.NewGoalStepRepository(database)
	attemptRepo := repository.NewGoalAttemptRepository(database)
	eventRepo := repository.NewEventRepository(database)

	return &testServices{
		goals:       NewGoalService(goalRepo, stepRepo, tx),
		steps:       NewStepService(stepRepo, attemptRepo, tx),
		events:      NewEventService(eventRepo, tx),
		suggestions: repository.NewGoalSuggestionRepository(database),
		runs:        repository.NewAIRunRepository(database),
		eventRepo:   eventRepo,
		goalRepo:    goalRepo,
		stepRepo:    stepRepo,
		tx:          tx,
	}
}

// createGoal creates a goal with n steps and the given status.
func createGoal(t *testing.T, svc *GoalService, title, status string, n int) *model.Goal {
	t.Helper()

	var drafts []model.StepDraft
	for i := 0; i < n; i++ {
		drafts = append(drafts, model.StepDraft{Title: title + " step", EstimatedMinutes: 10})
	}

	goal, err := svc.Create(context.Background(), GoalInput{
		Title:  title,
		Status: status,
		Steps:  drafts,
	})
	if err != nil {
		t.Fatalf("Create(%q) error = %v", title, err)
	}
	return goal
}

func ptr[T any](v T) *T {
	return &v
}
