package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xca-bot/xcaboard/internal/backend"
	"github.com/xca-bot/xcaboard/internal/model"
	"github.com/xca-bot/xcaboard/internal/state"
)

type dataAPI interface {
	Matches(ctx context.Context, limit int) ([]model.Match, int, error)
	ExportMatches(ctx context.Context, filename string) (*backend.ActionResult, error)
	Cleanup(ctx context.Context) (*backend.ActionResult, error)
}

// DataHandler covers match history and the storage maintenance actions.
type DataHandler struct {
	api        dataAPI
	store      *state.Store
	guard      *ActionGuard
	matchLimit int
}

func NewDataHandler(api dataAPI, store *state.Store, guard *ActionGuard, matchLimit int) *DataHandler {
	if matchLimit <= 0 {
		matchLimit = state.DefaultMatchLimit
	}
	return &DataHandler{api: api, store: store, guard: guard, matchLimit: matchLimit}
}

func (h *DataHandler) RegisterRoutes(r chi.Router) {
	r.Get("/matches", h.Matches)
	r.Post("/export", h.Export)
	r.Post("/cleanup", h.Cleanup)
}

// Matches fetches a fresh page from the backend and replaces the displayed
// sequence with it.
func (h *DataHandler) Matches(w http.ResponseWriter, r *http.Request) {
	limit := h.matchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	matches, total, err := h.api.Matches(r.Context(), limit)
	if err != nil {
		writeBackendError(w, h.store, err)
		return
	}

	h.store.SetMatches(matches, total)
	h.store.ClearBackendError()
	if matches == nil {
		matches = []model.Match{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"matches": matches,
		"total":   total,
	})
}

func (h *DataHandler) Export(w http.ResponseWriter, r *http.Request) {
	ran := h.guard.guarded("export", func() {
		result, err := h.api.ExportMatches(r.Context(), r.URL.Query().Get("filename"))
		if err != nil {
			writeBackendError(w, h.store, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})
	if !ran {
		writeError(w, http.StatusConflict, "export is already in progress")
	}
}

func (h *DataHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	ran := h.guard.guarded("cleanup", func() {
		result, err := h.api.Cleanup(r.Context())
		if err != nil {
			writeBackendError(w, h.store, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})
	if !ran {
		writeError(w, http.StatusConflict, "cleanup is already in progress")
	}
}
