package ai

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/doglog/doglog/internal/model"
)

var ErrNoSteps = errors.New("openai response missing steps array")

// Planner breaks a goal into training steps.
type Planner struct {
	client *Client
	prompt *Prompt
}

func NewPlanner(client *Client) (*Planner, error) {
	prompt, err := LoadPrompt("goal_breakdown")
	if err != nil {
		return nil, err
	}

	return &Planner{
		client: client,
		prompt: prompt,
	}, nil
}

func (p *Planner) Provider() string {
	return ProviderOpenAI
}

func (p *Planner) Model() string {
	return p.client.Model()
}

type plannedStep struct {
	Title            string  `json:"title"`
	Details          string  `json:"details"`
	EstimatedMinutes float64 `json:"estimated_minutes"`
}

func (p *Planner) PlanSteps(ctx context.Context, goal *model.Goal) ([]model.StepDraft, error) {
	user, err := p.prompt.Render(goal)
	if err != nil {
		return nil, err
	}

	var out struct {
		Steps []plannedStep `json:"steps"`
	}
	err = p.client.CompleteJSON(ctx, p.prompt.System, user, p.prompt.Temperature, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Steps) == 0 {
		return nil, ErrNoSteps
	}

	drafts := make([]model.StepDraft, 0, len(out.Steps))
	for _, s := range out.Steps {
		title := strings.TrimSpace(s.Title)
		if title == "" {
			title = "Training step"
		}
		drafts = append(drafts, model.StepDraft{
			Title:            title,
			Details:          strings.TrimSpace(s.Details),
			EstimatedMinutes: int(math.Round(s.EstimatedMinutes)),
		})
	}

	return drafts, nil
}
