package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/yapvoice/yap/internal/export"
	"github.com/yapvoice/yap/internal/export/profilestore"
	"github.com/yapvoice/yap/internal/observe"
)

// ExportHandler serves POST /api/export: look up the profile, run one export
// action to a settled outcome, and report it.
type ExportHandler struct {
	orch     *export.Orchestrator
	profiles profilestore.Store
	obs      *observe.Metrics
}

// NewExportHandler creates the export HTTP surface. obs may be nil.
func NewExportHandler(orch *export.Orchestrator, profiles profilestore.Store, obs *observe.Metrics) *ExportHandler {
	return &ExportHandler{orch: orch, profiles: profiles, obs: obs}
}

// Register adds the export route to mux.
func (h *ExportHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/export", h.Export)
}

type exportClip struct {
	ID         string `json:"id"`
	DurationMS int64  `json:"durationMs"`
	Text       string `json:"text"`
}

type exportRequest struct {
	ProfileID  string       `json:"profileId"`
	Transcript string       `json:"transcript"`
	Clips      []exportClip `json:"clips"`
}

type exportResponse struct {
	Success      bool   `json:"success"`
	Relayed      bool   `json:"relayed"`
	ResolvedPath string `json:"resolvedPath,omitempty"`
	Reason       string `json:"reason"`
}

// Export runs one export action. Success settles as 200, a malformed profile
// or payload as 422, and a delivery failure as 502; the body always carries
// the structured outcome so the caller can surface the reason.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return
	}
	if req.ProfileID == "" {
		writeError(w, http.StatusUnprocessableEntity, "profileId is required")
		return
	}

	profile, err := h.profiles.Get(r.Context(), req.ProfileID)
	if err != nil {
		if errors.Is(err, profilestore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	// A JSON null for clips stays nil so full-session payloads without a clips
	// array are rejected by validation rather than silently emptied.
	var clips []export.Clip
	if req.Clips != nil {
		clips = make([]export.Clip, 0, len(req.Clips))
		for _, c := range req.Clips {
			clips = append(clips, export.Clip{ID: c.ID, DurationMS: c.DurationMS, Text: c.Text})
		}
	}

	start := time.Now()
	out := h.orch.Export(r.Context(), export.Request{
		Profile:    &profile,
		Transcript: req.Transcript,
		Clips:      clips,
	})
	if h.obs != nil {
		status := "failure"
		if out.Success {
			status = "success"
		}
		h.obs.ExportDuration.Record(r.Context(), time.Since(start).Seconds(),
			metric.WithAttributes(
				attribute.String("status", status),
				attribute.String("target_kind", string(profile.Kind)),
			),
		)
	}

	code := http.StatusOK
	if !out.Success {
		var verr *export.ValidationError
		if errors.As(out.Err, &verr) {
			code = http.StatusUnprocessableEntity
		} else {
			code = http.StatusBadGateway
		}
	}
	writeJSON(w, code, exportResponse{
		Success:      out.Success,
		Relayed:      out.Relayed,
		ResolvedPath: out.ResolvedPath,
		Reason:       out.Reason,
	})
}
