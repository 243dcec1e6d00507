package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xca-bot/xcaboard/internal/backend"
	"github.com/xca-bot/xcaboard/internal/model"
	"github.com/xca-bot/xcaboard/internal/state"
)

type monitorAPI interface {
	Status(ctx context.Context) (*model.MonitoringStatus, error)
	Start(ctx context.Context) (*backend.ActionResult, error)
	Stop(ctx context.Context) (*backend.ActionResult, error)
	CheckNow(ctx context.Context) (*backend.ActionResult, error)
}

// MonitorHandler proxies monitoring control actions to the backend. Actions
// are guarded so an impatient double-click cannot fire the same call twice
// concurrently.
type MonitorHandler struct {
	api   monitorAPI
	store *state.Store
	guard *ActionGuard
}

func NewMonitorHandler(api monitorAPI, store *state.Store, guard *ActionGuard) *MonitorHandler {
	return &MonitorHandler{api: api, store: store, guard: guard}
}

func (h *MonitorHandler) RegisterRoutes(r chi.Router) {
	r.Get("/status", h.Status)
	r.Post("/start", h.Start)
	r.Post("/stop", h.Stop)
	r.Post("/check", h.Check)
}

// Status fetches fresh status from the backend, feeding the store on the
// way out so a manual refresh and the pushed state stay consistent.
func (h *MonitorHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.api.Status(r.Context())
	if err != nil {
		writeBackendError(w, h.store, err)
		return
	}
	h.store.SetStatus(*status)
	h.store.ClearBackendError()
	writeJSON(w, http.StatusOK, status)
}

func (h *MonitorHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "start")
}

func (h *MonitorHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "stop")
}

func (h *MonitorHandler) Check(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "check")
}

func (h *MonitorHandler) action(w http.ResponseWriter, r *http.Request, name string) {
	ran := h.guard.guarded(name, func() {
		var result *backend.ActionResult
		var err error

		switch name {
		case "start":
			result, err = h.api.Start(r.Context())
		case "stop":
			result, err = h.api.Stop(r.Context())
		case "check":
			result, err = h.api.CheckNow(r.Context())
		}
		if err != nil {
			writeBackendError(w, h.store, err)
			return
		}

		h.refreshStatus(r.Context())
		writeJSON(w, http.StatusOK, result)
	})
	if !ran {
		writeError(w, http.StatusConflict, name+" is already in progress")
	}
}

// refreshStatus pulls status right after a successful action so the
// dashboard flips without waiting for the next stream event.
func (h *MonitorHandler) refreshStatus(ctx context.Context) {
	status, err := h.api.Status(ctx)
	if err != nil {
		return
	}
	h.store.SetStatus(*status)
	h.store.ClearBackendError()
}
