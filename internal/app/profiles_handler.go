package app

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yapvoice/yap/internal/export"
	"github.com/yapvoice/yap/internal/export/profilestore"
)

// ProfilesHandler serves the /api/profiles CRUD surface. It is a thin layer
// over the profile store; validation happens in the store on every write.
type ProfilesHandler struct {
	store profilestore.Store
}

// NewProfilesHandler creates the profile management HTTP surface.
func NewProfilesHandler(store profilestore.Store) *ProfilesHandler {
	return &ProfilesHandler{store: store}
}

// Register adds the profile routes to mux.
func (h *ProfilesHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/profiles", h.List)
	mux.HandleFunc("POST /api/profiles", h.Create)
	mux.HandleFunc("GET /api/profiles/{id}", h.Get)
	mux.HandleFunc("PUT /api/profiles/{id}", h.Update)
	mux.HandleFunc("DELETE /api/profiles/{id}", h.Delete)
}

// List returns all profiles, optionally filtered by ?kind.
func (h *ProfilesHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := profilestore.ListOptions{Kind: export.Kind(r.URL.Query().Get("kind"))}

	profiles, err := h.store.List(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list profiles")
		return
	}
	if profiles == nil {
		profiles = []export.Profile{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": profiles})
}

// Create stores a new profile. The ID may be omitted; the store generates one.
func (h *ProfilesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var profile export.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid profile body: "+err.Error())
		return
	}

	created, err := h.store.Add(r.Context(), profile)
	if err != nil {
		switch {
		case errors.Is(err, profilestore.ErrDuplicateID):
			writeError(w, http.StatusConflict, err.Error())
		case isValidationError(err):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to store profile")
		}
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Get returns one profile by ID.
func (h *ProfilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, profilestore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Update replaces a profile. The path ID wins over any ID in the body.
func (h *ProfilesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var profile export.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid profile body: "+err.Error())
		return
	}
	profile.ID = r.PathValue("id")

	if err := h.store.Update(r.Context(), profile); err != nil {
		switch {
		case errors.Is(err, profilestore.ErrNotFound):
			writeError(w, http.StatusNotFound, "profile not found")
		case isValidationError(err):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to update profile")
		}
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Delete removes a profile by ID.
func (h *ProfilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Remove(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, profilestore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func isValidationError(err error) bool {
	var verr *export.ValidationError
	return errors.As(err, &verr)
}
