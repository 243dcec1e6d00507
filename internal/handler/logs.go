package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xca-bot/xcaboard/internal/backend"
	"github.com/xca-bot/xcaboard/internal/state"
)

type logsAPI interface {
	ClearLogs(ctx context.Context) (*backend.ActionResult, error)
	DownloadLogs(ctx context.Context) ([]byte, error)
}

// LogsHandler serves the dashboard's log buffer and proxies the destructive
// log operations to the backend.
type LogsHandler struct {
	api   logsAPI
	store *state.Store
	guard *ActionGuard
}

func NewLogsHandler(api logsAPI, store *state.Store, guard *ActionGuard) *LogsHandler {
	return &LogsHandler{api: api, store: store, guard: guard}
}

func (h *LogsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/logs", h.List)
	r.Post("/logs/clear", h.Clear)
	r.Get("/logs/download", h.Download)
}

// List returns the lines currently held in the dashboard's ring buffer.
func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()
	writeJSON(w, http.StatusOK, snap.Logs)
}

func (h *LogsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ran := h.guard.guarded("clear-logs", func() {
		result, err := h.api.ClearLogs(r.Context())
		if err != nil {
			writeBackendError(w, h.store, err)
			return
		}
		h.store.ClearLogs()
		writeJSON(w, http.StatusOK, result)
	})
	if !ran {
		writeError(w, http.StatusConflict, "log clear is already in progress")
	}
}

func (h *LogsHandler) Download(w http.ResponseWriter, r *http.Request) {
	b, err := h.api.DownloadLogs(r.Context())
	if err != nil {
		writeBackendError(w, h.store, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="monitor.log"`)
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
