package handler

import (
	"net/http"

	"github.com/doglog/doglog/internal/model"
	"github.com/doglog/doglog/internal/service"
)

type StepHandler struct {
	goalService *service.GoalService
	stepService *service.StepService
}

func NewStepHandler(goalService *service.GoalService, stepService *service.StepService) *StepHandler {
	return &StepHandler{
		goalService: goalService,
		stepService: stepService,
	}
}

type attemptResponse struct {
	Step      *model.GoalStep `json:"step"`
	Unchanged bool            `json:"unchanged,omitempty"`
}

type undoResponse struct {
	Step          *model.GoalStep `json:"step"`
	UndoneOutcome string          `json:"undone_outcome"`
}

// Update handles PATCH /goal-steps/{id}
func (h *StepHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in service.StepUpdate
	err := decodeJSON(w, r, &in, false)
	if err != nil {
		writeError(w, r, err)
		return
	}

	step, err := h.goalService.UpdateStep(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"step": step})
}

// RecordAttempt handles POST /goal-steps/{id}/attempt
func (h *StepHandler) RecordAttempt(w http.ResponseWriter, r *http.Request) {
	var in service.AttemptInput
	err := decodeJSON(w, r, &in, false)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.stepService.RecordAttempt(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, attemptResponse{Step: result.Step, Unchanged: result.Unchanged})
}

// UndoAttempt handles POST /goal-steps/{id}/attempt/undo
func (h *StepHandler) UndoAttempt(w http.ResponseWriter, r *http.Request) {
	result, err := h.stepService.UndoLastAttempt(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, undoResponse{Step: result.Step, UndoneOutcome: result.UndoneOutcome})
}

// Attempts handles GET /goal-steps/{id}/attempts
func (h *StepHandler) Attempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.stepService.Attempts(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"attempts": attempts})
}
