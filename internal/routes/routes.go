package routes

import (
	"net/http"

	"github.com/doglog/doglog/internal/app"
	"github.com/doglog/doglog/internal/handler"
	"github.com/doglog/doglog/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	health := handler.NewHealthHandler(app.DB)
	event := handler.NewEventHandler(app.EventService)
	goal := handler.NewGoalHandler(app.GoalService, app.GenerationService, app.SuggestionService)
	step := handler.NewStepHandler(app.GoalService, app.StepService)
	export := handler.NewExportHandler(app.ExportService)

	mux := http.NewServeMux()

	// ============================================================================
	// HEALTH
	// ============================================================================

	mux.HandleFunc("GET /health", health.Health)

	// ============================================================================
	// BEHAVIOR EVENTS
	// ============================================================================

	mux.HandleFunc("POST /events/batch", event.SaveBatch)
	mux.HandleFunc("GET /events", event.List)

	// ============================================================================
	// GOALS
	// ============================================================================

	// Step generation calls out to the completion API (rate limited)
	generateLimit := middleware.RateLimit(app.Cfg.GenerateRateLimit, app.Cfg.GenerateRateWindow)

	mux.HandleFunc("GET /goals", goal.List)
	mux.HandleFunc("POST /goals", goal.Create)
	mux.HandleFunc("GET /goals/suggested", goal.Suggested)
	mux.HandleFunc("GET /goals/{id}", goal.Get)
	mux.HandleFunc("PATCH /goals/{id}", goal.Update)
	mux.HandleFunc("DELETE /goals/{id}", goal.Delete)
	mux.HandleFunc("PATCH /goals/{id}/status", goal.SetStatus)
	mux.HandleFunc("PATCH /goals/{id}/activate", goal.Activate)
	mux.HandleFunc("POST /goals/{id}/steps", goal.AppendSteps)
	mux.HandleFunc("POST /goals/{id}/generate-steps", generateLimit(goal.GenerateSteps))

	// ============================================================================
	// GOAL STEPS
	// ============================================================================

	mux.HandleFunc("PATCH /goal-steps/{id}", step.Update)
	mux.HandleFunc("POST /goal-steps/{id}/attempt", step.RecordAttempt)
	mux.HandleFunc("POST /goal-steps/{id}/attempt/undo", step.UndoAttempt)
	mux.HandleFunc("GET /goal-steps/{id}/attempts", step.Attempts)

	// ============================================================================
	// EXPORT
	// ============================================================================

	mux.HandleFunc("GET /export", export.Export)
	mux.HandleFunc("POST /export/archive", export.Archive)

	// ============================================================================
	// FALLBACK
	// ============================================================================

	// 404
	mux.HandleFunc("/{path...}", handler.NotFound)

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.RequestID,       // Must be first so every log line carries the id
		middleware.Recover,         // Panics become JSON 500s
		middleware.SecurityHeaders, // nosniff, no framing, no caching
		middleware.RequestLogging,
	)

	return handler
}
