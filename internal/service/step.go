package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/doglog/doglog/internal/mastery"
	"github.com/doglog/doglog/internal/model"
	"github.com/doglog/doglog/internal/repository"
	"github.com/doglog/doglog/internal/validation"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNothingToUndo = errors.New("no attempts to undo")
)

type AttemptInput struct {
	Outcome         string  `json:"outcome"`
	Note            *string `json:"note"`
	DurationSeconds *int    `json:"duration_seconds"`
}

type AttemptResult struct {
	Step    *model.GoalStep
	Attempt *model.GoalAttempt
	// Unchanged is set when the step was already done and nothing was recorded.
	Unchanged bool
}

type UndoResult struct {
	Step          *model.GoalStep
	UndoneOutcome string
}

// StepService records training attempts against goal steps and keeps the
// step's mastery counters in line with its attempt log.
type StepService struct {
	stepRepo    repository.GoalStepRepository
	attemptRepo repository.GoalAttemptRepository
	tx          repository.TxRunner
}

func NewStepService(
	stepRepo repository.GoalStepRepository,
	attemptRepo repository.GoalAttemptRepository,
	tx repository.TxRunner,
) *StepService {
	return &StepService{
		stepRepo:    stepRepo,
		attemptRepo: attemptRepo,
		tx:          tx,
	}
}

// RecordAttempt appends one outcome to the step's log and updates its counters
// incrementally. A done step is returned as is.
func (s *StepService) RecordAttempt(ctx context.Context, stepID string, in AttemptInput) (*AttemptResult, error) {
	err := validation.ValidateOutcome(in.Outcome)
	if err != nil {
		return nil, err
	}
	if in.DurationSeconds != nil && *in.DurationSeconds < 0 {
		return nil, &validation.Error{Field: "duration_seconds", Message: "must not be negative"}
	}

	result := &AttemptResult{}
	err = s.tx.InTx(ctx, func(tx *sqlx.Tx) error {
		steps := s.stepRepo.WithTx(tx)
		attempts := s.attemptRepo.WithTx(tx)

		step, err := steps.LockByID(ctx, stepID)
		if err != nil {
			return err
		}

		if step.IsDone() {
			result.Step = step
			result.Unchanged = true
			return nil
		}

		seq, err := attempts.NextSeq(ctx, stepID)
		if err != nil {
			return fmt.Errorf("failed to get attempt sequence: %w", err)
		}

		now := timeNow()
		attempt := &model.GoalAttempt{
			ID:              uuid.New().String(),
			StepID:          stepID,
			Seq:             seq,
			Outcome:         in.Outcome,
			Note:            noteText(in.Note),
			DurationSeconds: in.DurationSeconds,
			CreatedAt:       now,
		}
		err = attempts.Create(ctx, attempt)
		if err != nil {
			return fmt.Errorf("failed to create attempt: %w", err)
		}

		mastery.FromStep(step).Apply(in.Outcome).ApplyTo(step, timeNow)
		step.UpdatedAt = now

		err = steps.UpdateProgress(ctx, step)
		if err != nil {
			return fmt.Errorf("failed to update step progress: %w", err)
		}

		result.Step = step
		result.Attempt = attempt
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Unchanged {
		slog.Info("attempt recorded",
			"step_id", stepID,
			"outcome", in.Outcome,
			"status", result.Step.Status,
			"consecutive_passes", result.Step.ConsecutivePasses,
		)
	}

	return result, nil
}

// UndoLastAttempt removes the step's latest attempt and rebuilds the counters
// by replaying what is left of the log.
func (s *StepService) UndoLastAttempt(ctx context.Context, stepID string) (*UndoResult, error) {
	result := &UndoResult{}
	err := s.tx.InTx(ctx, func(tx *sqlx.Tx) error {
		steps := s.stepRepo.WithTx(tx)
		attempts := s.attemptRepo.WithTx(tx)

		step, err := steps.LockByID(ctx, stepID)
		if err != nil {
			return err
		}

		last, err := attempts.Last(ctx, stepID)
		if errors.Is(err, repository.ErrGoalAttemptNotFound) {
			return ErrNothingToUndo
		}
		if err != nil {
			return fmt.Errorf("failed to load last attempt: %w", err)
		}

		err = attempts.Delete(ctx, last.ID)
		if err != nil {
			return fmt.Errorf("failed to delete attempt: %w", err)
		}

		outcomes, err := attempts.Outcomes(ctx, stepID)
		if err != nil {
			return fmt.Errorf("failed to load attempt history: %w", err)
		}

		mastery.Replay(outcomes).ApplyTo(step, timeNow)
		step.UpdatedAt = timeNow()

		err = steps.UpdateProgress(ctx, step)
		if err != nil {
			return fmt.Errorf("failed to update step progress: %w", err)
		}

		result.Step = step
		result.UndoneOutcome = last.Outcome
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("attempt undone",
		"step_id", stepID,
		"outcome", result.UndoneOutcome,
		"status", result.Step.Status,
	)

	return result, nil
}

// Attempts returns the step's history oldest first.
func (s *StepService) Attempts(ctx context.Context, stepID string) ([]*model.GoalAttempt, error) {
	_, err := s.stepRepo.ByID(ctx, stepID)
	if err != nil {
		return nil, err
	}

	attempts, err := s.attemptRepo.Attempts(ctx, stepID)
	if err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = []*model.GoalAttempt{}
	}
	return attempts, nil
}

func noteText(note *string) string {
	if note == nil {
		return ""
	}
	return strings.TrimSpace(*note)
}
