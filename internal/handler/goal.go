package handler

import (
	"net/http"

	"github.com/doglog/doglog/internal/model"
	"github.com/doglog/doglog/internal/service"
)

type GoalHandler struct {
	goalService       *service.GoalService
	generationService *service.StepGenerationService
	suggestionService *service.SuggestionService
}

func NewGoalHandler(
	goalService *service.GoalService,
	generationService *service.StepGenerationService,
	suggestionService *service.SuggestionService,
) *GoalHandler {
	return &GoalHandler{
		goalService:       goalService,
		generationService: generationService,
		suggestionService: suggestionService,
	}
}

type goalResponse struct {
	Goal *model.Goal `json:"goal"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type stepsRequest struct {
	Steps []model.StepDraft `json:"steps"`
}

// List handles GET /goals?sort=recent|created|priority|title
func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	goals, err := h.goalService.Goals(r.Context(), r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if goals == nil {
		goals = []*model.Goal{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"goals": goals})
}

func (h *GoalHandler) Get(w http.ResponseWriter, r *http.Request) {
	goal, err := h.goalService.ByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, goalResponse{Goal: goal})
}

func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.GoalInput
	err := decodeJSON(w, r, &in, false)
	if err != nil {
		writeError(w, r, err)
		return
	}

	goal, err := h.goalService.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, goalResponse{Goal: goal})
}

func (h *GoalHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in service.GoalUpdate
	err := decodeJSON(w, r, &in, false)
	if err != nil {
		writeError(w, r, err)
		return
	}

	goal, err := h.goalService.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, goalResponse{Goal: goal})
}

// SetStatus handles PATCH /goals/{id}/status
func (h *GoalHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	err := decodeJSON(w, r, &req, false)
	if err != nil {
		writeError(w, r, err)
		return
	}

	goal, err := h.goalService.SetStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, goalResponse{Goal: goal})
}

// Activate handles PATCH /goals/{id}/activate
func (h *GoalHandler) Activate(w http.ResponseWriter, r *http.Request) {
	goal, err := h.goalService.Activate(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, goalResponse{Goal: goal})
}

func (h *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.goalService.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AppendSteps handles POST /goals/{id}/steps
func (h *GoalHandler) AppendSteps(w http.ResponseWriter, r *http.Request) {
	var req stepsRequest
	err := decodeJSON(w, r, &req, false)
	if err != nil {
		writeError(w, r, err)
		return
	}

	steps, err := h.goalService.AppendSteps(r.Context(), r.PathValue("id"), req.Steps, false)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"steps": steps})
}

// GenerateSteps handles POST /goals/{id}/generate-steps
func (h *GoalHandler) GenerateSteps(w http.ResponseWriter, r *http.Request) {
	result, err := h.generationService.Generate(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Suggested handles GET /goals/suggested
func (h *GoalHandler) Suggested(w http.ResponseWriter, r *http.Request) {
	suggestion, err := h.suggestionService.Suggested(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, suggestion)
}
