package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/doglog/doglog/internal/model"
	"github.com/doglog/doglog/internal/repository"
)

type fakePlanner struct {
	drafts []model.StepDraft
	err    error
}

func (f *fakePlanner) PlanSteps(ctx context.Context, goal *model.Goal) ([]model.StepDraft, error) {
	return f.drafts, f.err
}

func (f *fakePlanner) Provider() string { return "openai" }
func (f *fakePlanner) Model() string    { return "test-model" }

func TestGenerateWithPlanner(t *testing.T) {
	svcs := newTestServices(t)
	ctx := context.Background()
	goal := createGoal(t, svcs.goals, "Calm greetings", model.GoalStatusActive, 1)

	planner := &fakePlanner{drafts: []model.StepDraft{
		{Title: strings.Repeat("t", 200), Details: "Wait at the door", EstimatedMinutes: 3},
		{Title: "Guests ignore jumping", EstimatedMinutes: 12},
	}}
	svc := NewStepGenerationService(svcs.goals, svcs.runs, planner)

	result, err := svc.Generate(ctx, goal.ID)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if result.GenerationMode != GenerationModeCloud || result.Provider != "openai" || result.Model != "test-model" || result.Notice != nil {
		t.Errorf("result = %+v", result)
	}
	if len(result.Steps) != 2 {
		t.Fatalf("len(steps) = %d, want 2", len(result.Steps))
	}

	first := result.Steps[0]
	if len(first.Title) != 120 || first.EstimatedMinutes != 5 || !first.AIGenerated || first.StepOrder != 1 {
		t.Errorf("first step = %+v", first)
	}

	runs, err := svcs.runs.Runs(ctx, goal.ID)
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 1 || runs[0].Status != model.AIRunStatusSuccess || runs[0].ResponsePayload == nil || runs[0].CompletedAt == nil {
		t.Errorf("runs = %+v", runs)
	}
}

func TestGenerateFallback(t *testing.T) {
	tests := []struct {
		name       string
		planner    StepPlanner
		title      string
		wantNotice string
		wantFirst  string
	}{
		{name: "no planner", planner: nil, title: "Loose leash walking", wantNotice: NoticeKeyMissing, wantFirst: "Set baseline walk"},
		{name: "planner error", planner: &fakePlanner{err: errors.New("503")}, title: "Recall", wantNotice: NoticeCloudUnavailable, wantFirst: "Define success cues"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svcs := newTestServices(t)
			ctx := context.Background()
			goal := createGoal(t, svcs.goals, tt.title, model.GoalStatusActive, 0)

			svc := NewStepGenerationService(svcs.goals, svcs.runs, tt.planner)
			result, err := svc.Generate(ctx, goal.ID)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}

			if result.GenerationMode != GenerationModeFallback || result.Provider != FallbackProvider || result.Model != FallbackModel {
				t.Errorf("result = %+v", result)
			}
			if result.Notice == nil || *result.Notice != tt.wantNotice {
				t.Errorf("Notice = %v, want %q", result.Notice, tt.wantNotice)
			}
			if len(result.Steps) != 5 || result.Steps[0].Title != tt.wantFirst {
				t.Errorf("steps = %+v", result.Steps)
			}

			runs, err := svcs.runs.Runs(ctx, goal.ID)
			if err != nil {
				t.Fatalf("Runs() error = %v", err)
			}
			if len(runs) != 1 || runs[0].Status != model.AIRunStatusSuccess {
				t.Errorf("runs = %+v", runs)
			}
		})
	}
}

func TestGenerateUnknownGoal(t *testing.T) {
	svcs := newTestServices(t)
	svc := NewStepGenerationService(svcs.goals, svcs.runs, nil)

	_, err := svc.Generate(context.Background(), "missing")
	if !errors.Is(err, repository.ErrGoalNotFound) {
		t.Errorf("Generate() error = %v, want ErrGoalNotFound", err)
	}
}

func TestFallbackStepsWithinLimits(t *testing.T) {
	for _, title := range []string{"Walk nicely", "Leave it"} {
		for _, d := range FallbackSteps(title) {
			if d.Title == "" || len(d.Title) > 120 || d.EstimatedMinutes < 5 || d.EstimatedMinutes > 30 {
				t.Errorf("FallbackSteps(%q) draft = %+v", title, d)
			}
		}
	}
}
