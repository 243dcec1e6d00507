package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xca-bot/xcaboard/internal/backend"
	"github.com/xca-bot/xcaboard/internal/state"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeBackendError maps the client error taxonomy onto gateway responses:
// timeouts become 504, unreachable-backend failures become 502, and backend
// rejections keep their original status and detail. Connection-level
// failures also raise the store's consolidated banner so the dashboard shows
// one notice instead of one per failed call.
func writeBackendError(w http.ResponseWriter, store *state.Store, err error) {
	var terr *backend.TimeoutError
	var cerr *backend.ConnectionError
	var aerr *backend.APIError

	switch {
	case errors.As(err, &terr):
		store.SetBackendError(err.Error())
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &cerr):
		store.SetBackendError(err.Error())
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &aerr):
		msg := aerr.Detail
		if msg == "" {
			msg = aerr.Error()
		}
		writeError(w, aerr.Status, msg)
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
