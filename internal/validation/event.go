package validation

import (
	"strings"
	"time"

	"github.com/doglog/doglog/internal/model"
	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	MaxTagLength   = 32
	MaxTagsPerItem = 20
	MaxNotesLength = 2000
)

var tagCaser = cases.Lower(language.Und)

// ValidateEvent checks a behavior event as received from a client batch.
func ValidateEvent(e *model.BehaviorEvent) error {
	if strings.TrimSpace(e.ClientEventID) == "" {
		return newError("client_event_id", "is required")
	}

	if len(e.ClientEventID) > 100 {
		return newError("client_event_id", "is too long (max 100 characters)")
	}

	if e.Valence == "" {
		return newError("valence", "is required")
	}

	if err := ValidateValence(e.Valence); err != nil {
		return err
	}

	if e.OccurredAt.IsZero() {
		return newError("occurred_at", "is required")
	}

	if e.Intensity < 1 || e.Intensity > 5 {
		return newError("intensity", "must be between 1 and 5, got %d", e.Intensity)
	}

	if e.Notes != nil && len(*e.Notes) > MaxNotesLength {
		return newError("notes", "is too long (max %d characters)", MaxNotesLength)
	}

	return nil
}

func ValidateValence(valence string) error {
	if valence != model.ValencePositive && valence != model.ValenceNegative {
		return newError("valence", "must be positive or negative, got %q", valence)
	}
	return nil
}

// NormalizeTags trims, lowercases and deduplicates tags, dropping empty ones.
// Order of first appearance is kept.
func NormalizeTags(tags []string) []string {
	normalized := lo.FilterMap(tags, func(tag string, _ int) (string, bool) {
		t := tagCaser.String(strings.TrimSpace(tag))
		t = Truncate(t, MaxTagLength)
		return t, t != ""
	})

	normalized = lo.Uniq(normalized)
	if len(normalized) > MaxTagsPerItem {
		normalized = normalized[:MaxTagsPerItem]
	}
	return normalized
}

// ParseTime accepts RFC3339 timestamps as used by the HTTP API.
func ParseTime(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, newError(field, "invalid timestamp %q", value)
	}
	return t, nil
}
