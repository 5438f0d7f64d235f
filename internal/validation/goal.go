package validation

import (
	"slices"
	"strings"
	"time"

	"github.com/doglog/doglog/internal/model"
)

const (
	MaxGoalTitleLength   = 200
	MaxStepTitleLength   = 120
	MaxStepDetailsLength = 500
	MinStepMinutes       = 5
	MaxStepMinutes       = 30
)

// ValidateGoalTitle validates a goal title
func ValidateGoalTitle(title string) error {
	trimmed := strings.TrimSpace(title)

	if trimmed == "" {
		return newError("title", "is required")
	}

	if len(trimmed) > MaxGoalTitleLength {
		return newError("title", "is too long (max %d characters)", MaxGoalTitleLength)
	}

	return nil
}

func ValidateGoalStatus(status string) error {
	if !slices.Contains(model.GoalStatuses, status) {
		return newError("status", "must be one of %s", strings.Join(model.GoalStatuses, ", "))
	}
	return nil
}

// ValidateTargetDate accepts an empty value or a YYYY-MM-DD date.
func ValidateTargetDate(date *string) error {
	if date == nil || *date == "" {
		return nil
	}
	_, err := time.Parse(time.DateOnly, *date)
	if err != nil {
		return newError("target_date", "must be formatted YYYY-MM-DD")
	}
	return nil
}

func ValidatePriority(priority int) error {
	if priority < 1 || priority > 5 {
		return newError("priority", "must be between 1 and 5")
	}
	return nil
}

func ValidateOutcome(outcome string) error {
	if outcome != model.AttemptOutcomePass && outcome != model.AttemptOutcomeNeedsWork {
		return newError("outcome", "must be pass or needs_work")
	}
	return nil
}

func ValidateStepTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return newError("title", "is required")
	}
	return nil
}

// ClampMinutes bounds a step estimate, defaulting when unset.
func ClampMinutes(minutes int) int {
	if minutes <= 0 {
		return model.DefaultEstimatedMinutes
	}
	return min(MaxStepMinutes, max(MinStepMinutes, minutes))
}

// Truncate shortens s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
