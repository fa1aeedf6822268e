package stall

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"marketstall/internal/api"
)

// Handlers serve the admin side of the catalog. The public listing lives
// with the booking handlers since it shows each stall's occupancy.
type Handlers struct {
	Catalog *Catalog
	Logger  *zap.Logger
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Catalog.List(r.Context())
	if err != nil {
		api.WriteServiceError(w, h.Logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	in.Name = strings.TrimSpace(in.Name)

	s, err := h.Catalog.Create(r.Context(), api.ActorFromContext(r.Context()), in)
	if err != nil {
		api.WriteServiceError(w, h.Logger, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, map[string]any{"stall": s})
}

func (h Handlers) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "missing id")
		return
	}

	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	in.Name = strings.TrimSpace(in.Name)

	s, err := h.Catalog.Update(r.Context(), api.ActorFromContext(r.Context()), id, in)
	if err != nil {
		api.WriteServiceError(w, h.Logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"stall": s})
}

func (h Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "missing id")
		return
	}

	if err := h.Catalog.Delete(r.Context(), api.ActorFromContext(r.Context()), id); err != nil {
		api.WriteServiceError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
