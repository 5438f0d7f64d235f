package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/doglog/doglog/internal/model"
)

const (
	DefaultServerURL = "http://localhost:8090"
	DefaultTimeout   = 15 * time.Second
)

// API calls the DogLog server.
type API struct {
	baseURL    string
	httpClient *http.Client
}

func NewAPI(baseURL string, timeout time.Duration) *API {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultServerURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &API{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server http %d: %s", e.StatusCode, e.Message)
}

// GenerationResult is the answer to a step generation request.
type GenerationResult struct {
	Steps          []*model.GoalStep `json:"steps"`
	GenerationMode string            `json:"generation_mode"`
	Provider       string            `json:"provider"`
	Model          string            `json:"model"`
	Notice         *string           `json:"notice"`
}

// Suggestion is today's suggested goal.
type Suggestion struct {
	Date   string      `json:"suggestion_date"`
	Goal   *model.Goal `json:"suggested_goal"`
	Source string      `json:"source"`
	Notice *string     `json:"notice"`
}

// UploadBatch sends events as one batch and returns how many the server saved.
func (a *API) UploadBatch(ctx context.Context, events []Event) (int, error) {
	req := struct {
		Events []Event `json:"events"`
	}{Events: events}

	var resp struct {
		SavedCount int `json:"saved_count"`
	}
	err := a.do(ctx, http.MethodPost, "/events/batch", req, &resp)
	if err != nil {
		return 0, err
	}
	return resp.SavedCount, nil
}

// Health reports whether the server answers and its database is up.
func (a *API) Health(ctx context.Context) error {
	return a.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (a *API) Events(ctx context.Context, limit int) ([]*model.BehaviorEvent, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var resp struct {
		Events []*model.BehaviorEvent `json:"events"`
	}
	err := a.do(ctx, http.MethodGet, "/events?"+q.Encode(), nil, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Events, nil
}

func (a *API) CreateGoal(ctx context.Context, title, description string) (*model.Goal, error) {
	req := map[string]string{
		"title":       title,
		"description": description,
	}

	var resp struct {
		Goal *model.Goal `json:"goal"`
	}
	err := a.do(ctx, http.MethodPost, "/goals", req, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Goal, nil
}

func (a *API) GenerateSteps(ctx context.Context, goalID string) (*GenerationResult, error) {
	var resp GenerationResult
	err := a.do(ctx, http.MethodPost, "/goals/"+url.PathEscape(goalID)+"/generate-steps", nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *API) Suggested(ctx context.Context) (*Suggestion, error) {
	var resp Suggestion
	err := a.do(ctx, http.MethodGet, "/goals/suggested", nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *API) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		var buf bytes.Buffer
		err := json.NewEncoder(&buf).Encode(body)
		if err != nil {
			return err
		}
		reader = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		message := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			message = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}
	err = json.Unmarshal(raw, out)
	if err != nil {
		return fmt.Errorf("server decode error: %w", err)
	}
	return nil
}
