package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xca-bot/xcaboard/internal/backend"
	"github.com/xca-bot/xcaboard/internal/model"
	"github.com/xca-bot/xcaboard/internal/state"
)

type configAPI interface {
	Config(ctx context.Context) (*model.AppConfig, error)
	UpdateConfig(ctx context.Context, cfg *model.AppConfig) (*backend.ActionResult, error)
	Users(ctx context.Context) ([]string, error)
	UpdateUsers(ctx context.Context, usernames []string) (*backend.ActionResult, error)
	Patterns(ctx context.Context) ([]string, error)
	UpdatePatterns(ctx context.Context, patterns []string) (*backend.ActionResult, error)
	Keywords(ctx context.Context) ([]string, error)
	UpdateKeywords(ctx context.Context, keywords []string) (*backend.ActionResult, error)
}

// ConfigHandler round-trips the backend configuration document and the three
// monitoring lists. The dashboard edits a local copy and pushes it back
// wholesale; there are no partial updates.
type ConfigHandler struct {
	api   configAPI
	store *state.Store
}

func NewConfigHandler(api configAPI, store *state.Store) *ConfigHandler {
	return &ConfigHandler{api: api, store: store}
}

func (h *ConfigHandler) RegisterRoutes(r chi.Router) {
	r.Get("/config", h.Get)
	r.Post("/config", h.Update)
	r.Get("/users", h.Users)
	r.Post("/users", h.UpdateUsers)
	r.Get("/patterns", h.Patterns)
	r.Post("/patterns", h.UpdatePatterns)
	r.Get("/keywords", h.Keywords)
	r.Post("/keywords", h.UpdateKeywords)
}

func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.api.Config(r.Context())
	if err != nil {
		writeBackendError(w, h.store, err)
		return
	}
	h.store.ClearBackendError()
	writeJSON(w, http.StatusOK, cfg)
}

func (h *ConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	var cfg model.AppConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid configuration payload")
		return
	}

	result, err := h.api.UpdateConfig(r.Context(), &cfg)
	if err != nil {
		writeBackendError(w, h.store, err)
		return
	}
	h.store.ClearBackendError()
	writeJSON(w, http.StatusOK, result)
}

func (h *ConfigHandler) Users(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.api.Users)
}

func (h *ConfigHandler) UpdateUsers(w http.ResponseWriter, r *http.Request) {
	h.updateList(w, r, h.api.UpdateUsers)
}

func (h *ConfigHandler) Patterns(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.api.Patterns)
}

func (h *ConfigHandler) UpdatePatterns(w http.ResponseWriter, r *http.Request) {
	h.updateList(w, r, h.api.UpdatePatterns)
}

func (h *ConfigHandler) Keywords(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.api.Keywords)
}

func (h *ConfigHandler) UpdateKeywords(w http.ResponseWriter, r *http.Request) {
	h.updateList(w, r, h.api.UpdateKeywords)
}

func (h *ConfigHandler) list(w http.ResponseWriter, r *http.Request, fetch func(context.Context) ([]string, error)) {
	items, err := fetch(r.Context())
	if err != nil {
		writeBackendError(w, h.store, err)
		return
	}
	if items == nil {
		items = []string{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ConfigHandler) updateList(w http.ResponseWriter, r *http.Request, push func(context.Context, []string) (*backend.ActionResult, error)) {
	var items []string
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		writeError(w, http.StatusBadRequest, "expected a JSON array of strings")
		return
	}

	result, err := push(r.Context(), items)
	if err != nil {
		writeBackendError(w, h.store, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
