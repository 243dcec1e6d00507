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

type telegramAPI interface {
	AddDestination(ctx context.Context, dest model.TelegramDestination) (*backend.ActionResult, error)
	RemoveDestination(ctx context.Context, chatID string) (*backend.ActionResult, error)
	TestDestination(ctx context.Context, chatID string) (*backend.ActionResult, error)
}

// TelegramHandler manages the extra forwarding destinations beyond the
// primary channel.
type TelegramHandler struct {
	api   telegramAPI
	store *state.Store
}

func NewTelegramHandler(api telegramAPI, store *state.Store) *TelegramHandler {
	return &TelegramHandler{api: api, store: store}
}

func (h *TelegramHandler) RegisterRoutes(r chi.Router) {
	r.Post("/telegram/destinations", h.Add)
	r.Delete("/telegram/destinations/{chatID}", h.Remove)
	r.Post("/telegram/destinations/{chatID}/test", h.Test)
}

func (h *TelegramHandler) Add(w http.ResponseWriter, r *http.Request) {
	var dest model.TelegramDestination
	if err := json.NewDecoder(r.Body).Decode(&dest); err != nil {
		writeError(w, http.StatusBadRequest, "invalid destination payload")
		return
	}
	if dest.ChatID == "" {
		writeError(w, http.StatusBadRequest, "chat_id is required")
		return
	}

	result, err := h.api.AddDestination(r.Context(), dest)
	if err != nil {
		writeBackendError(w, h.store, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *TelegramHandler) Remove(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	if chatID == "" {
		writeError(w, http.StatusBadRequest, "chat_id is required")
		return
	}

	result, err := h.api.RemoveDestination(r.Context(), chatID)
	if err != nil {
		writeBackendError(w, h.store, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *TelegramHandler) Test(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	if chatID == "" {
		writeError(w, http.StatusBadRequest, "chat_id is required")
		return
	}

	result, err := h.api.TestDestination(r.Context(), chatID)
	if err != nil {
		writeBackendError(w, h.store, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
