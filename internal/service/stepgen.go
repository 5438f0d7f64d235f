package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/doglog/doglog/internal/model"
	"github.com/doglog/doglog/internal/repository"
	"github.com/google/uuid"
)

const (
	GenerationModeCloud    = "cloud"
	GenerationModeFallback = "fallback"

	FallbackProvider = "fallback"
	FallbackModel    = "deterministic-fallback"

	NoticeKeyMissing       = "Cloud AI key missing. Fallback plan generated."
	NoticeCloudUnavailable = "Cloud AI unavailable. Fallback plan generated."
)

// StepPlanner proposes training steps for a goal.
type StepPlanner interface {
	PlanSteps(ctx context.Context, goal *model.Goal) ([]model.StepDraft, error)
	Provider() string
	Model() string
}

type GenerationResult struct {
	Steps          []*model.GoalStep `json:"steps"`
	GenerationMode string            `json:"generation_mode"`
	Provider       string            `json:"provider"`
	Model          string            `json:"model"`
	Notice         *string           `json:"notice"`
}

// StepGenerationService appends AI planned steps to a goal. Planner failures
// never fail the request; a deterministic plan is used instead.
type StepGenerationService struct {
	goals   *GoalService
	runRepo repository.AIRunRepository
	planner StepPlanner
}

// NewStepGenerationService creates the service. planner may be nil when no
// API key is configured.
func NewStepGenerationService(goals *GoalService, runRepo repository.AIRunRepository, planner StepPlanner) *StepGenerationService {
	return &StepGenerationService{
		goals:   goals,
		runRepo: runRepo,
		planner: planner,
	}
}

func (s *StepGenerationService) Generate(ctx context.Context, goalID string) (*GenerationResult, error) {
	goal, err := s.goals.ByID(ctx, goalID)
	if err != nil {
		return nil, err
	}

	provider, modelName := FallbackProvider, FallbackModel
	if s.planner != nil {
		provider, modelName = s.planner.Provider(), s.planner.Model()
	}

	request, _ := json.Marshal(map[string]string{
		"title":       goal.Title,
		"description": goal.Description,
	})
	run := &model.AIRun{
		ID:             uuid.New().String(),
		GoalID:         goal.ID,
		Provider:       provider,
		Model:          modelName,
		Purpose:        model.AIRunPurposeGoalBreakdown,
		InputSummary:   "Break down goal: " + goal.Title,
		RequestPayload: string(request),
		Status:         model.AIRunStatusQueued,
		CreatedAt:      timeNow(),
	}
	err = s.runRepo.Create(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("failed to create ai run: %w", err)
	}

	result, drafts := s.plan(ctx, goal)

	result.Steps, err = s.goals.AppendSteps(ctx, goal.ID, drafts, true)
	if err != nil {
		failErr := s.runRepo.Fail(ctx, run.ID, err.Error())
		if failErr != nil {
			slog.Error("failed to mark ai run failed", "error", failErr, "run_id", run.ID)
		}
		return nil, err
	}

	response, _ := json.Marshal(result)
	err = s.runRepo.Complete(ctx, run.ID, string(response))
	if err != nil {
		slog.Error("failed to complete ai run", "error", err, "run_id", run.ID)
	}

	slog.Info("goal steps generated",
		"goal_id", goal.ID,
		"mode", result.GenerationMode,
		"provider", result.Provider,
		"steps", len(result.Steps),
	)

	return result, nil
}

func (s *StepGenerationService) plan(ctx context.Context, goal *model.Goal) (*GenerationResult, []model.StepDraft) {
	if s.planner == nil {
		return fallbackResult(NoticeKeyMissing), FallbackSteps(goal.Title)
	}

	drafts, err := s.planner.PlanSteps(ctx, goal)
	if err != nil {
		slog.Warn("step planner failed, using fallback plan", "error", err, "goal_id", goal.ID)
		return fallbackResult(NoticeCloudUnavailable), FallbackSteps(goal.Title)
	}

	return &GenerationResult{
		GenerationMode: GenerationModeCloud,
		Provider:       s.planner.Provider(),
		Model:          s.planner.Model(),
	}, drafts
}

func fallbackResult(notice string) *GenerationResult {
	return &GenerationResult{
		GenerationMode: GenerationModeFallback,
		Provider:       FallbackProvider,
		Model:          FallbackModel,
		Notice:         &notice,
	}
}

// FallbackSteps is the plan used when no planner answers. Leash and walking
// goals get a walk-specific plan.
func FallbackSteps(goalTitle string) []model.StepDraft {
	title := strings.ToLower(goalTitle)
	if strings.Contains(title, "leash") || strings.Contains(title, "walk") {
		return []model.StepDraft{
			{Title: "Set baseline walk", Details: "Do a 10-minute walk at easy distance and log every pull or check-in.", EstimatedMinutes: 10},
			{Title: "Reinforce check-ins", Details: "Reward voluntary eye contact with high-value treats every few steps.", EstimatedMinutes: 12},
			{Title: "Short focused reps", Details: "Practice 3 x 5-minute loose-leash blocks in low-distraction areas.", EstimatedMinutes: 15},
			{Title: "Increase distraction gradually", Details: "Add one harder environment and keep reinforcement rate high at first.", EstimatedMinutes: 20},
			{Title: "Proof and review", Details: "Run two normal walks and compare positive vs negative event counts.", EstimatedMinutes: 20},
		}
	}

	return []model.StepDraft{
		{Title: "Define success cues", Details: "Write the exact behavior marker and reward timing for this goal.", EstimatedMinutes: 10},
		{Title: "Run low-distraction reps", Details: "Practice short repetitions in a quiet environment and log outcomes.", EstimatedMinutes: 12},
		{Title: "Increase difficulty one step", Details: "Add one variable: distance, duration, or distraction level.", EstimatedMinutes: 15},
		{Title: "Track consistency", Details: "Aim for two consecutive sessions with >80% successful reps.", EstimatedMinutes: 10},
		{Title: "Generalize behavior", Details: "Repeat in a new location and keep reward value high initially.", EstimatedMinutes: 20},
	}
}
