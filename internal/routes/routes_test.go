package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/doglog/doglog/internal/app"
	"github.com/doglog/doglog/internal/config"
	"github.com/doglog/doglog/internal/db/dbtest"
	"github.com/doglog/doglog/internal/model"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		AppEnv:             "development",
		GenerateRateLimit:  100,
		GenerateRateWindow: time.Minute,
		SuggestionTimezone: "UTC",
	}

	a, err := app.NewWithDB(context.Background(), cfg, dbtest.New(t))
	if err != nil {
		t.Fatalf("NewWithDB() error = %v", err)
	}

	srv := httptest.NewServer(SetupRoutes(a))
	t.Cleanup(srv.Close)
	return srv
}

// do sends body as JSON and decodes the response into out when out is non-nil.
func do(t *testing.T, srv *httptest.Server, method, path string, body any, out any) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		err = json.NewDecoder(resp.Body).Decode(out)
		if err != nil {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type goalBody struct {
	Goal *model.Goal `json:"goal"`
}

type stepBody struct {
	Step          *model.GoalStep `json:"step"`
	Unchanged     bool            `json:"unchanged"`
	UndoneOutcome string          `json:"undone_outcome"`
}

type errorBody struct {
	Error string `json:"error"`
}

func createGoal(t *testing.T, srv *httptest.Server, title string, steps int) *model.Goal {
	t.Helper()

	var drafts []map[string]any
	for i := 0; i < steps; i++ {
		drafts = append(drafts, map[string]any{"title": title + " step", "estimated_minutes": 10})
	}

	var got goalBody
	status := do(t, srv, http.MethodPost, "/goals", map[string]any{"title": title, "steps": drafts}, &got)
	if status != http.StatusCreated {
		t.Fatalf("POST /goals status = %d, want 201", status)
	}
	return got.Goal
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	var got map[string]string
	status := do(t, srv, http.MethodGet, "/health", nil, &got)
	if status != http.StatusOK || got["status"] != "ok" {
		t.Errorf("GET /health = %d %v", status, got)
	}
}

func TestEventBatchAndList(t *testing.T) {
	srv := newTestServer(t)

	batch := map[string]any{
		"events": []map[string]any{
			{
				"client_event_id": "c-1",
				"occurred_at":     "2026-03-01T08:00:00Z",
				"valence":         "positive",
				"tags":            []string{" Walk ", "walk", "LEASH"},
			},
			{
				"client_event_id": "c-2",
				"occurred_at":     "2026-03-01T09:00:00Z",
				"valence":         "negative",
				"intensity":       5,
			},
		},
	}

	var saved struct {
		SavedCount int                    `json:"saved_count"`
		Events     []*model.BehaviorEvent `json:"events"`
	}
	status := do(t, srv, http.MethodPost, "/events/batch", batch, &saved)
	if status != http.StatusOK {
		t.Fatalf("POST /events/batch status = %d", status)
	}
	if saved.SavedCount != 2 {
		t.Errorf("saved_count = %d, want 2", saved.SavedCount)
	}

	// Resending the same batch upserts instead of duplicating.
	status = do(t, srv, http.MethodPost, "/events/batch", batch, nil)
	if status != http.StatusOK {
		t.Fatalf("resend status = %d", status)
	}

	var list struct {
		Events []*model.BehaviorEvent `json:"events"`
	}
	do(t, srv, http.MethodGet, "/events", nil, &list)
	if len(list.Events) != 2 {
		t.Fatalf("GET /events returned %d events, want 2", len(list.Events))
	}
	if list.Events[0].ClientEventID != "c-2" {
		t.Errorf("first event = %s, want newest c-2", list.Events[0].ClientEventID)
	}

	do(t, srv, http.MethodGet, "/events?tag=walk", nil, &list)
	if len(list.Events) != 1 || list.Events[0].ClientEventID != "c-1" {
		t.Errorf("tag filter returned %v", list.Events)
	}
	if got := list.Events[0].Tags; len(got) != 2 {
		t.Errorf("tags = %v, want [leash walk]", got)
	}
}

func TestEventBatchRejectsInvalidEvent(t *testing.T) {
	srv := newTestServer(t)

	batch := map[string]any{
		"events": []map[string]any{
			{"client_event_id": "ok", "occurred_at": "2026-03-01T08:00:00Z", "valence": "positive"},
			{"client_event_id": "bad", "occurred_at": "2026-03-01T08:00:00Z", "valence": "sideways"},
		},
	}

	var errResp errorBody
	status := do(t, srv, http.MethodPost, "/events/batch", batch, &errResp)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if errResp.Error == "" {
		t.Error("error message is empty")
	}

	var list struct {
		Events []*model.BehaviorEvent `json:"events"`
	}
	do(t, srv, http.MethodGet, "/events", nil, &list)
	if len(list.Events) != 0 {
		t.Errorf("stored %d events from a rejected batch", len(list.Events))
	}
}

func TestAttemptLifecycle(t *testing.T) {
	srv := newTestServer(t)
	goal := createGoal(t, srv, "Loose leash walking", 1)
	stepPath := "/goal-steps/" + goal.Steps[0].ID

	var got stepBody
	for i := 0; i < 3; i++ {
		status := do(t, srv, http.MethodPost, stepPath+"/attempt", map[string]any{"outcome": "pass"}, &got)
		if status != http.StatusOK {
			t.Fatalf("attempt %d status = %d", i, status)
		}
	}
	if got.Step.Status != model.StepStatusDone || got.Step.CompletedAt == nil {
		t.Fatalf("after 3 passes step = %+v", got.Step)
	}

	got = stepBody{}
	do(t, srv, http.MethodPost, stepPath+"/attempt", map[string]any{"outcome": "needs_work"}, &got)
	if !got.Unchanged || got.Step.NeedsWorkCount != 0 {
		t.Errorf("attempt on done step = %+v, want unchanged", got)
	}

	got = stepBody{}
	status := do(t, srv, http.MethodPost, stepPath+"/attempt/undo", nil, &got)
	if status != http.StatusOK {
		t.Fatalf("undo status = %d", status)
	}
	if got.UndoneOutcome != model.AttemptOutcomePass {
		t.Errorf("undone_outcome = %q", got.UndoneOutcome)
	}
	if got.Step.Status != model.StepStatusInProgress || got.Step.ConsecutivePasses != 2 || got.Step.CompletedAt != nil {
		t.Errorf("after undo step = %+v", got.Step)
	}

	var history struct {
		Attempts []*model.GoalAttempt `json:"attempts"`
	}
	do(t, srv, http.MethodGet, stepPath+"/attempts", nil, &history)
	if len(history.Attempts) != 2 {
		t.Errorf("history has %d attempts, want 2", len(history.Attempts))
	}
}

func TestAttemptErrors(t *testing.T) {
	srv := newTestServer(t)
	goal := createGoal(t, srv, "Sit", 1)
	stepPath := "/goal-steps/" + goal.Steps[0].ID

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"invalid outcome", http.MethodPost, stepPath + "/attempt", map[string]any{"outcome": "neutral"}, http.StatusBadRequest},
		{"missing body", http.MethodPost, stepPath + "/attempt", nil, http.StatusBadRequest},
		{"unknown step", http.MethodPost, "/goal-steps/nope/attempt", map[string]any{"outcome": "pass"}, http.StatusNotFound},
		{"undo empty history", http.MethodPost, stepPath + "/attempt/undo", nil, http.StatusConflict},
		{"undo unknown step", http.MethodPost, "/goal-steps/nope/attempt/undo", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errResp errorBody
			status := do(t, srv, tt.method, tt.path, tt.body, &errResp)
			if status != tt.want {
				t.Errorf("status = %d, want %d (%s)", status, tt.want, errResp.Error)
			}
		})
	}
}

func TestActivateKeepsSingleActiveGoal(t *testing.T) {
	srv := newTestServer(t)
	first := createGoal(t, srv, "Recall", 0)
	second := createGoal(t, srv, "Down stay", 0)

	var got goalBody
	status := do(t, srv, http.MethodPatch, "/goals/"+first.ID+"/activate", nil, &got)
	if status != http.StatusOK || got.Goal.Status != model.GoalStatusActive {
		t.Fatalf("activate = %d %+v", status, got.Goal)
	}

	do(t, srv, http.MethodGet, "/goals/"+second.ID, nil, &got)
	if got.Goal.Status != model.GoalStatusPaused {
		t.Errorf("previous active goal status = %q, want paused", got.Goal.Status)
	}

	status = do(t, srv, http.MethodPatch, "/goals/missing/activate", nil, nil)
	if status != http.StatusNotFound {
		t.Errorf("activate unknown goal status = %d, want 404", status)
	}
}

func TestSuggestedGoal(t *testing.T) {
	srv := newTestServer(t)

	var empty map[string]any
	do(t, srv, http.MethodGet, "/goals/suggested", nil, &empty)
	if empty["suggested_goal"] != nil {
		t.Errorf("suggested_goal with no goals = %v, want null", empty["suggested_goal"])
	}

	goal := createGoal(t, srv, "Place", 0)

	var got struct {
		Goal   *model.Goal `json:"suggested_goal"`
		Source string      `json:"source"`
		Notice string      `json:"notice"`
	}
	status := do(t, srv, http.MethodGet, "/goals/suggested", nil, &got)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if got.Goal == nil || got.Goal.ID != goal.ID {
		t.Fatalf("suggested_goal = %+v, want %s", got.Goal, goal.ID)
	}
	if got.Source != model.SuggestionSourceFallbackLastActive {
		t.Errorf("source = %q", got.Source)
	}
	if got.Notice == "" {
		t.Error("notice is empty without an AI key")
	}
}

func TestGenerateStepsFallsBackWithoutKey(t *testing.T) {
	srv := newTestServer(t)
	goal := createGoal(t, srv, "Loose leash walk", 0)

	var got struct {
		Steps          []*model.GoalStep `json:"steps"`
		GenerationMode string            `json:"generation_mode"`
		Notice         string            `json:"notice"`
	}
	status := do(t, srv, http.MethodPost, "/goals/"+goal.ID+"/generate-steps", nil, &got)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if got.GenerationMode != "fallback" || len(got.Steps) == 0 {
		t.Errorf("generation = %+v", got)
	}
	for _, s := range got.Steps {
		if !s.AIGenerated {
			t.Errorf("step %q not marked ai_generated", s.Title)
		}
	}
}

func TestGoalCRUD(t *testing.T) {
	srv := newTestServer(t)
	goal := createGoal(t, srv, "Crate", 1)

	var got goalBody
	status := do(t, srv, http.MethodPatch, "/goals/"+goal.ID, map[string]any{"priority": 5}, &got)
	if status != http.StatusOK || got.Goal.Priority != 5 {
		t.Errorf("update = %d %+v", status, got.Goal)
	}

	var steps struct {
		Steps []*model.GoalStep `json:"steps"`
	}
	status = do(t, srv, http.MethodPost, "/goals/"+goal.ID+"/steps", map[string]any{
		"steps": []map[string]any{{"title": "Door closed for 1 minute"}},
	}, &steps)
	if status != http.StatusCreated || len(steps.Steps) != 1 || steps.Steps[0].StepOrder != 1 {
		t.Errorf("append steps = %d %+v", status, steps.Steps)
	}

	status = do(t, srv, http.MethodPatch, "/goals/"+goal.ID+"/status", map[string]any{"status": "achieved"}, &got)
	if status != http.StatusOK || got.Goal.Status != model.GoalStatusAchieved {
		t.Errorf("set status = %d %+v", status, got.Goal)
	}

	status = do(t, srv, http.MethodDelete, "/goals/"+goal.ID, nil, nil)
	if status != http.StatusNoContent {
		t.Errorf("delete status = %d", status)
	}
	status = do(t, srv, http.MethodGet, "/goals/"+goal.ID, nil, nil)
	if status != http.StatusNotFound {
		t.Errorf("get deleted goal status = %d", status)
	}
}

func TestExportAndArchive(t *testing.T) {
	srv := newTestServer(t)
	createGoal(t, srv, "Heel", 1)

	var snapshot struct {
		Goals  []*model.Goal          `json:"goals"`
		Events []*model.BehaviorEvent `json:"events"`
	}
	status := do(t, srv, http.MethodGet, "/export", nil, &snapshot)
	if status != http.StatusOK || len(snapshot.Goals) != 1 {
		t.Errorf("export = %d, %d goals", status, len(snapshot.Goals))
	}

	status = do(t, srv, http.MethodPost, "/export/archive", nil, nil)
	if status != http.StatusServiceUnavailable {
		t.Errorf("archive without storage status = %d, want 503", status)
	}
}

func TestNotFoundAndRequestID(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if resp.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", resp.Header.Get("Content-Type"))
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}
