package ai

import (
	"context"
	"strings"
	"time"

	"github.com/doglog/doglog/internal/model"
)

// Picker chooses the goal to highlight for a day.
type Picker struct {
	client *Client
	prompt *Prompt
}

func NewPicker(client *Client) (*Picker, error) {
	prompt, err := LoadPrompt("goal_suggestion")
	if err != nil {
		return nil, err
	}

	return &Picker{
		client: client,
		prompt: prompt,
	}, nil
}

// SuggestGoal returns the id the model picked. The id is not checked against
// candidates here.
func (p *Picker) SuggestGoal(ctx context.Context, today time.Time, candidates []*model.Goal) (string, error) {
	user, err := p.prompt.Render(map[string]any{
		"Today": today.Format(time.DateOnly),
		"Goals": candidates,
	})
	if err != nil {
		return "", err
	}

	var out struct {
		GoalID string `json:"goal_id"`
	}
	err = p.client.CompleteJSON(ctx, p.prompt.System, user, p.prompt.Temperature, &out)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(out.GoalID), nil
}
