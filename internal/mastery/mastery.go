// Package mastery derives a goal step's progress from its attempt history.
//
// A step is mastered once its trailing run of passes reaches Threshold.
// Forward recording may apply outcomes incrementally with Progress.Apply;
// anything that removes history must rebuild the projection with Replay.
package mastery

import (
	"time"

	"github.com/doglog/doglog/internal/model"
)

// Threshold is the trailing pass run that marks a step done.
const Threshold = 3

type Progress struct {
	PassCount         int
	NeedsWorkCount    int
	ConsecutivePasses int
	Status            string
}

// ValidOutcome reports whether outcome can be recorded as an attempt.
func ValidOutcome(outcome string) bool {
	return outcome == model.AttemptOutcomePass || outcome == model.AttemptOutcomeNeedsWork
}

// StatusFor maps attempt totals to a step status.
func StatusFor(attempts, consecutivePasses int) string {
	switch {
	case attempts == 0:
		return model.StepStatusPending
	case consecutivePasses >= Threshold:
		return model.StepStatusDone
	default:
		return model.StepStatusInProgress
	}
}

// Replay rebuilds progress from outcomes in chronological order.
func Replay(outcomes []string) Progress {
	var p Progress
	for _, o := range outcomes {
		if o == model.AttemptOutcomePass {
			p.PassCount++
		} else {
			p.NeedsWorkCount++
		}
	}

	for i := len(outcomes) - 1; i >= 0; i-- {
		if outcomes[i] != model.AttemptOutcomePass {
			break
		}
		p.ConsecutivePasses++
	}

	p.Status = StatusFor(len(outcomes), p.ConsecutivePasses)
	return p
}

// Apply returns the progress after appending one outcome.
func (p Progress) Apply(outcome string) Progress {
	if outcome == model.AttemptOutcomePass {
		p.PassCount++
		p.ConsecutivePasses++
	} else {
		p.NeedsWorkCount++
		p.ConsecutivePasses = 0
	}
	p.Status = StatusFor(p.Attempts(), p.ConsecutivePasses)
	return p
}

func (p Progress) Attempts() int {
	return p.PassCount + p.NeedsWorkCount
}

func (p Progress) Done() bool {
	return p.Status == model.StepStatusDone
}

// FromStep reads the cached projection stored on a step.
func FromStep(s *model.GoalStep) Progress {
	return Progress{
		PassCount:         s.PassCount,
		NeedsWorkCount:    s.NeedsWorkCount,
		ConsecutivePasses: s.ConsecutivePasses,
		Status:            s.Status,
	}
}

// ApplyTo writes progress onto the step. CompletedAt is stamped the first time
// the step becomes done and cleared when it leaves done.
func (p Progress) ApplyTo(s *model.GoalStep, now func() time.Time) {
	s.PassCount = p.PassCount
	s.NeedsWorkCount = p.NeedsWorkCount
	s.ConsecutivePasses = p.ConsecutivePasses
	s.Status = p.Status

	if p.Done() {
		if s.CompletedAt == nil {
			t := now()
			s.CompletedAt = &t
		}
		return
	}
	s.CompletedAt = nil
}
