// Package llmproxy exposes a thin HTTP forwarder in front of a local chat
// model runtime. It validates incoming chat requests, relays them through a
// [llm.Provider], and translates runtime failures into the status codes the
// frontend distinguishes: 503 when the runtime is unreachable and 504 when a
// request exceeds its deadline.
package llmproxy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/yapvoice/yap/internal/observe"
	"github.com/yapvoice/yap/pkg/provider/llm"
)

const defaultTimeout = 60 * time.Second

// Handler serves the chat proxy endpoints. It holds no conversation state;
// the client sends the full history with every request.
type Handler struct {
	provider     llm.Provider
	lister       llm.ModelLister
	ollamaURL    string
	defaultModel string
	timeout      time.Duration
	obs          *observe.Metrics
	now          func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithTimeout sets the per-request completion deadline. Defaults to 60 s.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) { h.timeout = d }
}

// WithMetrics attaches OTel instruments for chat request counting and
// latency. A nil value disables instrumentation.
func WithMetrics(obs *observe.Metrics) Option {
	return func(h *Handler) { h.obs = obs }
}

// WithClock overrides the time source used for response timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// NewHandler creates a chat proxy over provider. lister enumerates the
// runtime's installed models and may be nil when the backend cannot list
// them. ollamaURL and defaultModel are reported by the health endpoint.
func NewHandler(provider llm.Provider, lister llm.ModelLister, ollamaURL, defaultModel string, opts ...Option) *Handler {
	h := &Handler{
		provider:     provider,
		lister:       lister,
		ollamaURL:    ollamaURL,
		defaultModel: defaultModel,
		timeout:      defaultTimeout,
		now:          time.Now,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Register mounts the proxy endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.Chat)
	mux.HandleFunc("GET /api/chat/models", h.Models)
	mux.HandleFunc("GET /api/chat/health", h.Health)
}

// chatRequest is the JSON body accepted by POST /api/chat.
type chatRequest struct {
	Message             string        `json:"message"`
	ConversationHistory []llm.Message `json:"conversationHistory"`
	Model               string        `json:"model"`
	Temperature         *float64      `json:"temperature"`
}

// chatResponse is the JSON body returned on success.
type chatResponse struct {
	Response  string    `json:"response"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
}

// Chat validates the request and forwards it to the model runtime.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusUnprocessableEntity, "message is required")
		return
	}
	if req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > 2) {
		writeError(w, http.StatusUnprocessableEntity, "temperature must be between 0 and 2")
		return
	}

	model := req.Model
	if model == "" {
		model = h.defaultModel
	}

	creq := llm.CompletionRequest{
		Messages: append(req.ConversationHistory, llm.Message{Role: "user", Content: req.Message}),
		Model:    model,
	}
	if req.Temperature != nil {
		creq.Temperature = *req.Temperature
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	start := h.now()
	resp, err := h.provider.Complete(ctx, creq)
	h.recordChat(r.Context(), start, err)

	if err != nil {
		if isTimeout(err) {
			writeError(w, http.StatusGatewayTimeout, "Ollama request timeout")
			return
		}
		observe.Logger(r.Context()).Warn("chat completion failed", "model", model, "error", err)
		writeError(w, http.StatusServiceUnavailable, "Cannot connect to Ollama: "+err.Error())
		return
	}

	out := chatResponse{
		Model:     model,
		Timestamp: h.now().UTC(),
	}
	if resp != nil {
		out.Response = resp.Content
		if resp.Model != "" {
			out.Model = resp.Model
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// Models lists the runtime's installed models plus the configured default.
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	if h.lister == nil {
		writeError(w, http.StatusServiceUnavailable, "Cannot list models: backend does not support listing")
		return
	}

	models, err := h.lister.ListModels(r.Context())
	if err != nil {
		observe.Logger(r.Context()).Warn("model listing failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Cannot list models: "+err.Error())
		return
	}

	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"models":  names,
		"default": h.defaultModel,
	})
}

// Health reports the proxy's static configuration.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":        "ok",
		"provider":      "ollama",
		"ollama_url":    h.ollamaURL,
		"default_model": h.defaultModel,
	})
}

// recordChat updates the chat instruments when wired.
func (h *Handler) recordChat(ctx context.Context, start time.Time, err error) {
	if h.obs == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	h.obs.ChatRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	h.obs.ChatDuration.Record(ctx, time.Since(start).Seconds())
}

// isTimeout reports whether err stems from an expired deadline rather than a
// refused or failed connection.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
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
