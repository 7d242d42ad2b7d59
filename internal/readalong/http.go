package readalong

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/yapvoice/yap/internal/observe"
	"github.com/yapvoice/yap/pkg/provider/tts"
)

// Handler serves the read-along endpoints over a Player.
type Handler struct {
	player   *Player
	provider tts.Provider
}

// NewHandler creates a read-along HTTP handler. provider is used for the
// voice catalogue; playback itself goes through player.
func NewHandler(player *Player, provider tts.Provider) *Handler {
	return &Handler{player: player, provider: provider}
}

// Register mounts the read-along endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/read-along/start", h.Start)
	mux.HandleFunc("POST /api/read-along/pause", h.Pause)
	mux.HandleFunc("POST /api/read-along/resume", h.Resume)
	mux.HandleFunc("POST /api/read-along/stop", h.Stop)
	mux.HandleFunc("GET /api/read-along/state", h.State)
	mux.HandleFunc("GET /api/read-along/voices", h.Voices)
	mux.HandleFunc("GET /api/read-along/stream", h.Stream)
}

// startRequest is the JSON body accepted by POST /api/read-along/start.
type startRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// Start begins playback of the posted text.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return
	}

	if err := h.player.Start(req.Text, req.Voice); err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, ErrAlreadyBusy) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.player.Snapshot())
}

// Pause holds playback before the next chunk.
func (h *Handler) Pause(w http.ResponseWriter, _ *http.Request) {
	if err := h.player.Pause(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.player.Snapshot())
}

// Resume continues a paused playback.
func (h *Handler) Resume(w http.ResponseWriter, _ *http.Request) {
	if err := h.player.Resume(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.player.Snapshot())
}

// Stop cancels playback.
func (h *Handler) Stop(w http.ResponseWriter, _ *http.Request) {
	h.player.Stop()
	writeJSON(w, http.StatusOK, h.player.Snapshot())
}

// State returns the current playback snapshot.
func (h *Handler) State(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.player.Snapshot())
}

// Voices lists the synthesis engine's voice catalogue.
func (h *Handler) Voices(w http.ResponseWriter, r *http.Request) {
	voices, err := h.provider.ListVoices(r.Context())
	if err != nil {
		observe.Logger(r.Context()).Warn("voice listing failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Cannot list voices: "+err.Error())
		return
	}
	if voices == nil {
		voices = []tts.Voice{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"voices": voices})
}

// Stream upgrades to a websocket and forwards playback snapshots as JSON
// until the client disconnects. The current state is sent immediately on
// connect so late joiners render the panel without waiting for a transition.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	snapshots, unsubscribe := h.player.Subscribe()
	defer unsubscribe()

	if err := wsjson.Write(ctx, conn, h.player.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case state := <-snapshots:
			if err := wsjson.Write(ctx, conn, state); err != nil {
				return
			}
		}
	}
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
