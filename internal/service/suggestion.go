package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/doglog/doglog/internal/model"
	"github.com/doglog/doglog/internal/repository"
)

const (
	NoticeSuggestionKeyMissing  = "Cloud AI key missing. Fallback suggestion used."
	NoticeSuggestionUnavailable = "Cloud AI unavailable. Fallback suggestion used."
)

// GoalSuggester picks one goal id out of candidates.
type GoalSuggester interface {
	SuggestGoal(ctx context.Context, today time.Time, candidates []*model.Goal) (string, error)
}

type Suggestion struct {
	Date   string      `json:"suggestion_date"`
	Goal   *model.Goal `json:"suggested_goal"`
	Source string      `json:"source,omitempty"`
	Notice *string     `json:"notice,omitempty"`
}

// SuggestionService memoizes the suggested goal per calendar day so the
// suggester is asked at most once a day.
type SuggestionService struct {
	goals     *GoalService
	repo      repository.GoalSuggestionRepository
	suggester GoalSuggester
	location  *time.Location
}

// NewSuggestionService creates the service. suggester may be nil; location
// decides where a calendar day starts and defaults to UTC.
func NewSuggestionService(
	goals *GoalService,
	repo repository.GoalSuggestionRepository,
	suggester GoalSuggester,
	location *time.Location,
) *SuggestionService {
	if location == nil {
		location = time.UTC
	}
	return &SuggestionService{
		goals:     goals,
		repo:      repo,
		suggester: suggester,
		location:  location,
	}
}

// Suggested returns today's goal. Goal is nil when there is nothing to work on.
func (s *SuggestionService) Suggested(ctx context.Context) (*Suggestion, error) {
	now := timeNow().In(s.location)
	date := now.Format(time.DateOnly)

	goals, err := s.goals.Goals(ctx, repository.GoalSortRecent)
	if err != nil {
		return nil, err
	}

	candidates := make([]*model.Goal, 0, len(goals))
	for _, g := range goals {
		if !g.IsTerminal() {
			candidates = append(candidates, g)
		}
	}

	cached, err := s.repo.ByDate(ctx, date)
	if err != nil && !errors.Is(err, repository.ErrGoalSuggestionNotFound) {
		return nil, fmt.Errorf("failed to load cached suggestion: %w", err)
	}

	if cached != nil {
		if goal := findGoal(candidates, cached.GoalID); goal != nil {
			return &Suggestion{Date: date, Goal: goal, Source: cached.Source, Notice: cached.Notice}, nil
		}

		// The cached goal was finished or archived since; show a default
		// without asking the suggester again.
		suggestion := defaultSuggestion(date, candidates)
		suggestion.Notice = cached.Notice
		return suggestion, nil
	}

	suggestion := defaultSuggestion(date, candidates)
	if suggestion.Goal == nil {
		return suggestion, nil
	}

	s.ask(ctx, now, candidates, suggestion)

	err = s.repo.Upsert(ctx, &model.GoalSuggestion{
		SuggestionDate: date,
		GoalID:         suggestion.Goal.ID,
		Source:         suggestion.Source,
		Notice:         suggestion.Notice,
		CreatedAt:      timeNow(),
		UpdatedAt:      timeNow(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store suggestion: %w", err)
	}

	slog.Info("goal suggestion computed", "date", date, "goal_id", suggestion.Goal.ID, "source", suggestion.Source)
	return suggestion, nil
}

// ask replaces the default with the suggester's pick when it names a workable goal.
func (s *SuggestionService) ask(ctx context.Context, now time.Time, candidates []*model.Goal, suggestion *Suggestion) {
	if s.suggester == nil {
		suggestion.Notice = stringPtr(NoticeSuggestionKeyMissing)
		return
	}

	goalID, err := s.suggester.SuggestGoal(ctx, now, candidates)
	if err != nil {
		slog.Warn("goal suggester failed, using fallback", "error", err)
		suggestion.Notice = stringPtr(NoticeSuggestionUnavailable)
		return
	}

	goal := findGoal(candidates, goalID)
	if goal == nil {
		slog.Warn("goal suggester returned unusable goal, using fallback", "goal_id", goalID)
		suggestion.Notice = stringPtr(NoticeSuggestionUnavailable)
		return
	}

	suggestion.Goal = goal
	suggestion.Source = model.SuggestionSourceAI
	suggestion.Notice = nil
}

// defaultSuggestion prefers the active goal, then the most recently updated
// one. candidates must be sorted by updated_at descending.
func defaultSuggestion(date string, candidates []*model.Goal) *Suggestion {
	suggestion := &Suggestion{Date: date}

	for _, g := range candidates {
		if g.Status == model.GoalStatusActive {
			suggestion.Goal = g
			suggestion.Source = model.SuggestionSourceFallbackLastActive
			return suggestion
		}
	}

	if len(candidates) > 0 {
		suggestion.Goal = candidates[0]
		suggestion.Source = model.SuggestionSourceFallbackRecent
	}
	return suggestion
}

func findGoal(goals []*model.Goal, goalID string) *model.Goal {
	for _, g := range goals {
		if g.ID == goalID {
			return g
		}
	}
	return nil
}

func stringPtr(s string) *string {
	return &s
}
