package metrics

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/yapvoice/yap/internal/settings"
)

// Handler serves the /api/metrics endpoints. Configuration is read through a
// settings source per request so a settings change applies immediately.
type Handler struct {
	store  Store
	config func() settings.MetricsSettings
}

// NewHandler creates the metrics HTTP surface.
func NewHandler(store Store, config func() settings.MetricsSettings) *Handler {
	return &Handler{store: store, config: config}
}

// Register adds the metrics routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/metrics/config", h.Config)
	mux.HandleFunc("POST /api/metrics/event", h.RecordEvent)
	mux.HandleFunc("GET /api/metrics/summary", h.Summary)
	mux.HandleFunc("GET /api/metrics/history", h.History)
	mux.HandleFunc("GET /api/metrics/export", h.Export)
	mux.HandleFunc("DELETE /api/metrics/history", h.ClearHistory)
}

// Config returns the active metrics settings.
func (h *Handler) Config(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.config())
}

// RecordEvent appends one usage event. Returns 422 when the event has no
// type and 503 when collection is disabled.
func (h *Handler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	if !h.config().Enabled {
		writeError(w, http.StatusServiceUnavailable, "metrics collection is disabled")
		return
	}

	var ev Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid event body: "+err.Error())
		return
	}
	if !h.config().StoreText {
		ev.Text = ""
	}

	recorded, err := h.store.Record(r.Context(), ev)
	if err != nil {
		if errors.Is(err, ErrMissingEventType) {
			writeError(w, http.StatusUnprocessableEntity, "event_type is required")
			return
		}
		slog.Error("failed to record event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record event")
		return
	}
	writeJSON(w, http.StatusOK, recorded)
}

// Summary aggregates events over ?range (default today).
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	rng := Range(r.URL.Query().Get("range"))
	if rng == "" {
		rng = RangeToday
	}
	if !rng.IsValid() {
		writeError(w, http.StatusUnprocessableEntity, "unknown range "+strconv.Quote(string(rng)))
		return
	}

	sum, err := h.store.Summary(r.Context(), rng)
	if err != nil {
		slog.Error("failed to summarise events", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to summarise events")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// History lists events newest first with ?limit, ?offset and ?event_type.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := HistoryOptions{EventType: q.Get("event_type")}

	var err error
	if v := q.Get("limit"); v != "" {
		if opts.Limit, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "limit must be an integer")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if opts.Offset, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "offset must be an integer")
			return
		}
	}

	events, err := h.store.History(r.Context(), opts)
	if err != nil {
		slog.Error("failed to list events", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// Export dumps all stored events.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Export(r.Context())
	if err != nil {
		slog.Error("failed to export events", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export events")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// ClearHistory deletes stored events, or only their text when
// ?clear_text_only=true.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	textOnly := r.URL.Query().Get("clear_text_only") == "true"
	if err := h.store.Clear(r.Context(), textOnly); err != nil {
		slog.Error("failed to clear events", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear events")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true, "text_only": textOnly})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
