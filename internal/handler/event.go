package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/doglog/doglog/internal/model"
	"github.com/doglog/doglog/internal/service"
	"github.com/doglog/doglog/internal/validation"
)

type EventHandler struct {
	eventService *service.EventService
}

func NewEventHandler(eventService *service.EventService) *EventHandler {
	return &EventHandler{
		eventService: eventService,
	}
}

type batchRequest struct {
	Events []service.EventInput `json:"events"`
}

type batchResponse struct {
	SavedCount int                    `json:"saved_count"`
	Events     []*model.BehaviorEvent `json:"events"`
}

// SaveBatch handles POST /events/batch
func (h *EventHandler) SaveBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	err := decodeJSON(w, r, &req, false)
	if err != nil {
		writeError(w, r, err)
		return
	}

	events, err := h.eventService.SaveBatch(r.Context(), req.Events)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, batchResponse{SavedCount: len(events), Events: events})
}

// List handles GET /events?limit&from&to&valence&tag
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.EventFilter{
		Valence: q.Get("valence"),
		Tag:     q.Get("tag"),
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			writeError(w, r, &validation.Error{Field: "limit", Message: "must be a positive integer"})
			return
		}
		filter.Limit = limit
	}

	var err error
	filter.From, err = timeParam(q, "from")
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter.To, err = timeParam(q, "to")
	if err != nil {
		writeError(w, r, err)
		return
	}

	events, err := h.eventService.Events(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if events == nil {
		events = []*model.BehaviorEvent{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func timeParam(q url.Values, name string) (*time.Time, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := validation.ParseTime(name, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
