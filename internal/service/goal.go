package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/doglog/doglog/internal/model"
	"github.com/doglog/doglog/internal/repository"
	"github.com/doglog/doglog/internal/validation"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrActivationConflict means concurrent activations kept colliding on the
// single active goal slot.
var ErrActivationConflict = errors.New("another goal was activated at the same time, please retry")

// activationRetries is how often a transaction that lost the race for the
// active slot is rerun.
const activationRetries = 2

// GoalInput creates a goal. Status defaults to active; creating an active goal
// pauses whichever goal was active before.
type GoalInput struct {
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Status          string            `json:"status"`
	Priority        *int              `json:"priority"`
	TargetDate      *string           `json:"target_date"`
	SuccessCriteria string            `json:"success_criteria"`
	Steps           []model.StepDraft `json:"steps"`
}

// GoalUpdate changes goal fields. Nil fields are left untouched.
type GoalUpdate struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	Priority        *int    `json:"priority"`
	TargetDate      *string `json:"target_date"`
	SuccessCriteria *string `json:"success_criteria"`
}

// StepUpdate changes step fields. Status is derived from attempts and cannot be set.
type StepUpdate struct {
	Title            *string `json:"title"`
	Details          *string `json:"details"`
	SuccessCriteria  *string `json:"success_criteria"`
	EstimatedMinutes *int    `json:"estimated_minutes"`
}

type GoalService struct {
	repo     repository.GoalRepository
	stepRepo repository.GoalStepRepository
	tx       repository.TxRunner
}

func NewGoalService(
	repo repository.GoalRepository,
	stepRepo repository.GoalStepRepository,
	tx repository.TxRunner,
) *GoalService {
	return &GoalService{
		repo:     repo,
		stepRepo: stepRepo,
		tx:       tx,
	}
}

func (s *GoalService) Create(ctx context.Context, in GoalInput) (*model.Goal, error) {
	err := validation.ValidateGoalTitle(in.Title)
	if err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = model.GoalStatusActive
	}
	err = validation.ValidateGoalStatus(status)
	if err != nil {
		return nil, err
	}

	priority := model.DefaultGoalPriority
	if in.Priority != nil {
		priority = *in.Priority
	}
	err = validation.ValidatePriority(priority)
	if err != nil {
		return nil, err
	}

	err = validation.ValidateTargetDate(in.TargetDate)
	if err != nil {
		return nil, err
	}

	now := timeNow()
	goal := &model.Goal{
		ID:              uuid.New().String(),
		Title:           strings.TrimSpace(in.Title),
		Description:     strings.TrimSpace(in.Description),
		Status:          status,
		Priority:        priority,
		TargetDate:      emptyToNil(in.TargetDate),
		SuccessCriteria: strings.TrimSpace(in.SuccessCriteria),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	steps := buildSteps(goal.ID, 0, in.Steps, false)
	goal.NextStepOrder = len(steps)

	err = s.activationTx(ctx, func(tx *sqlx.Tx) error {
		goals := s.repo.WithTx(tx)

		if goal.Status == model.GoalStatusActive {
			_, err := goals.DemoteActive(ctx, goal.ID)
			if err != nil {
				return fmt.Errorf("failed to demote active goal: %w", err)
			}
		}

		err := goals.Create(ctx, goal)
		if err != nil {
			return fmt.Errorf("failed to create goal: %w", err)
		}

		return s.stepRepo.WithTx(tx).CreateSteps(ctx, steps)
	})
	if err != nil {
		return nil, err
	}

	goal.Steps = steps
	slog.Info("goal created", "goal_id", goal.ID, "status", goal.Status, "steps", len(steps))
	return goal, nil
}

// ByID returns the goal with its steps in order.
func (s *GoalService) ByID(ctx context.Context, goalID string) (*model.Goal, error) {
	goal, err := s.repo.ByID(ctx, goalID)
	if err != nil {
		return nil, err
	}

	goal.Steps, err = s.stepRepo.Steps(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if goal.Steps == nil {
		goal.Steps = []*model.GoalStep{}
	}

	return goal, nil
}

// Goals returns every goal with its steps.
func (s *GoalService) Goals(ctx context.Context, sortBy string) ([]*model.Goal, error) {
	goals, err := s.repo.Goals(ctx, sortBy)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(goals))
	for i, g := range goals {
		ids[i] = g.ID
	}

	steps, err := s.stepRepo.StepsByGoalIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, g := range goals {
		g.Steps = steps[g.ID]
		if g.Steps == nil {
			g.Steps = []*model.GoalStep{}
		}
	}

	return goals, nil
}

func (s *GoalService) Update(ctx context.Context, goalID string, in GoalUpdate) (*model.Goal, error) {
	goal, err := s.repo.ByID(ctx, goalID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		err = validation.ValidateGoalTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		goal.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		goal.Description = strings.TrimSpace(*in.Description)
	}
	if in.Priority != nil {
		err = validation.ValidatePriority(*in.Priority)
		if err != nil {
			return nil, err
		}
		goal.Priority = *in.Priority
	}
	if in.TargetDate != nil {
		err = validation.ValidateTargetDate(in.TargetDate)
		if err != nil {
			return nil, err
		}
		goal.TargetDate = emptyToNil(in.TargetDate)
	}
	if in.SuccessCriteria != nil {
		goal.SuccessCriteria = strings.TrimSpace(*in.SuccessCriteria)
	}

	goal.UpdatedAt = timeNow()
	err = s.repo.Update(ctx, goal)
	if err != nil {
		return nil, err
	}

	return s.ByID(ctx, goalID)
}

// SetStatus moves a goal to status. Moving to active goes through Activate so
// the single-active-goal rule holds.
func (s *GoalService) SetStatus(ctx context.Context, goalID, status string) (*model.Goal, error) {
	err := validation.ValidateGoalStatus(status)
	if err != nil {
		return nil, err
	}

	if status == model.GoalStatusActive {
		return s.Activate(ctx, goalID)
	}

	err = s.repo.UpdateStatus(ctx, goalID, status)
	if err != nil {
		return nil, err
	}

	slog.Info("goal status changed", "goal_id", goalID, "status", status)
	return s.ByID(ctx, goalID)
}

// Activate makes goalID the only active goal. The previous active goal is
// paused in the same transaction, so no reader sees zero or two active goals.
func (s *GoalService) Activate(ctx context.Context, goalID string) (*model.Goal, error) {
	err := s.activationTx(ctx, func(tx *sqlx.Tx) error {
		goals := s.repo.WithTx(tx)

		goal, err := goals.LockByID(ctx, goalID)
		if err != nil {
			return err
		}

		demoted, err := goals.DemoteActive(ctx, goalID)
		if err != nil {
			return fmt.Errorf("failed to demote active goal: %w", err)
		}

		if goal.Status != model.GoalStatusActive {
			err = goals.UpdateStatus(ctx, goalID, model.GoalStatusActive)
			if err != nil {
				return fmt.Errorf("failed to activate goal: %w", err)
			}
		}

		slog.Info("goal activated", "goal_id", goalID, "demoted", demoted)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.ByID(ctx, goalID)
}

// activationTx runs fn in a transaction and reruns it when the unique index on
// the active goal rejects the commit. Under READ COMMITTED two activations can
// both demote before either promotion is visible; the loser sees the winner on
// its next run.
func (s *GoalService) activationTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	for attempt := 0; ; attempt++ {
		err := s.tx.InTx(ctx, fn)
		if err == nil || !repository.IsUniqueViolation(err) {
			return err
		}
		if attempt == activationRetries {
			slog.Error("active goal conflict persisted", "attempts", attempt+1, "error", err)
			return ErrActivationConflict
		}
		slog.Warn("active goal conflict, retrying", "attempt", attempt+1)
	}
}

func (s *GoalService) Delete(ctx context.Context, goalID string) error {
	return s.repo.Delete(ctx, goalID)
}

// AppendSteps adds steps after the goal's existing ones. Drafts without a
// title are skipped.
func (s *GoalService) AppendSteps(ctx context.Context, goalID string, drafts []model.StepDraft, aiGenerated bool) ([]*model.GoalStep, error) {
	var steps []*model.GoalStep

	err := s.tx.InTx(ctx, func(tx *sqlx.Tx) error {
		goals := s.repo.WithTx(tx)

		steps = buildSteps(goalID, 0, drafts, aiGenerated)
		start, err := goals.ReserveStepOrders(ctx, goalID, len(steps))
		if err != nil {
			return err
		}

		for _, step := range steps {
			step.StepOrder += start
		}
		return s.stepRepo.WithTx(tx).CreateSteps(ctx, steps)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("goal steps appended", "goal_id", goalID, "count", len(steps), "ai_generated", aiGenerated)
	return steps, nil
}

func (s *GoalService) Step(ctx context.Context, stepID string) (*model.GoalStep, error) {
	return s.stepRepo.ByID(ctx, stepID)
}

func (s *GoalService) UpdateStep(ctx context.Context, stepID string, in StepUpdate) (*model.GoalStep, error) {
	step, err := s.stepRepo.ByID(ctx, stepID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		err = validation.ValidateStepTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		step.Title = validation.Truncate(*in.Title, validation.MaxStepTitleLength)
	}
	if in.Details != nil {
		step.Details = validation.Truncate(*in.Details, validation.MaxStepDetailsLength)
	}
	if in.SuccessCriteria != nil {
		step.SuccessCriteria = strings.TrimSpace(*in.SuccessCriteria)
	}
	if in.EstimatedMinutes != nil {
		step.EstimatedMinutes = validation.ClampMinutes(*in.EstimatedMinutes)
	}

	step.UpdatedAt = timeNow()
	err = s.stepRepo.UpdateDetails(ctx, step)
	if err != nil {
		return nil, err
	}

	return step, nil
}

func buildSteps(goalID string, startOrder int, drafts []model.StepDraft, aiGenerated bool) []*model.GoalStep {
	now := timeNow()
	steps := []*model.GoalStep{}
	order := startOrder

	for _, d := range drafts {
		title := validation.Truncate(d.Title, validation.MaxStepTitleLength)
		if title == "" {
			continue
		}

		steps = append(steps, &model.GoalStep{
			ID:               uuid.New().String(),
			GoalID:           goalID,
			Title:            title,
			Details:          validation.Truncate(d.Details, validation.MaxStepDetailsLength),
			SuccessCriteria:  strings.TrimSpace(d.SuccessCriteria),
			StepOrder:        order,
			Status:           model.StepStatusPending,
			EstimatedMinutes: validation.ClampMinutes(d.EstimatedMinutes),
			AIGenerated:      aiGenerated,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
		order++
	}

	return steps
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
