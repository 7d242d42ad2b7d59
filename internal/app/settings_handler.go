package app

import (
	"io"
	"net/http"
	"sync"

	"github.com/yapvoice/yap/internal/settings"
)

// settingsState holds the live settings document. Reads are frequent (every
// chunked playback and every metrics write consults it) so the document is
// kept in memory and only swapped under the write lock after a successful
// save.
type settingsState struct {
	store *settings.FileStore

	mu      sync.RWMutex
	current settings.Settings

	// onChange hooks run after a successful replace, outside the lock.
	onChange []func(settings.Settings)
}

func newSettingsState(store *settings.FileStore) (*settingsState, error) {
	current, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &settingsState{store: store, current: current}, nil
}

// Snapshot returns the full current document.
func (s *settingsState) Snapshot() settings.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// TTS returns the current read-along settings.
func (s *settingsState) TTS() settings.TTSSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.TTS
}

// Metrics returns the current metrics collection settings.
func (s *settingsState) Metrics() settings.MetricsSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Metrics
}

// Replace persists next and makes it the live document. The swap only happens
// after the save succeeds, so a failed write never leaves the live document
// out of sync with disk.
func (s *settingsState) Replace(next settings.Settings) error {
	if err := s.store.Save(next); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	for _, fn := range s.onChange {
		fn(next)
	}
	return nil
}

// SettingsHandler serves GET and PUT /api/settings.
type SettingsHandler struct {
	state *settingsState
}

// NewSettingsHandler creates the settings HTTP surface.
func NewSettingsHandler(state *settingsState) *SettingsHandler {
	return &SettingsHandler{state: state}
}

// Register adds the settings routes to mux.
func (h *SettingsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/settings", h.Get)
	mux.HandleFunc("PUT /api/settings", h.Put)
}

// Get returns the full settings document.
func (h *SettingsHandler) Get(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Snapshot())
}

// Put merges the request body over the defaults, validates, persists, and
// returns the updated document. Unknown or omitted keys keep their defaults,
// matching the merge applied when the file is loaded from disk.
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "cannot read request body")
		return
	}

	next, err := settings.Merge(raw)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := next.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.state.Replace(next); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save settings: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, next)
}
