package handler

import (
	"log/slog"
	"net/http"

	"btcinvest/internal/domain/model"
)

type ModeSwitcher interface {
	SwitchMode(mode model.DataMode) bool
	GetCurrentMode() model.DataMode
}

type modeResponse struct {
	Status  string `json:"status"`
	Mode    string `json:"mode"`
	Message string `json:"message,omitempty"`
}

type ModeHandler struct {
	modes ModeSwitcher
	log   *slog.Logger
}

func NewModeHandler(modes ModeSwitcher, log *slog.Logger) *ModeHandler {
	return &ModeHandler{
		modes: modes,
		log:   log,
	}
}

func (h *ModeHandler) SwitchToTest(w http.ResponseWriter, r *http.Request) {
	h.log.Info("received request to switch to test mode")
	h.switchMode(w, model.TestMode)
}

func (h *ModeHandler) SwitchToLive(w http.ResponseWriter, r *http.Request) {
	h.log.Info("received request to switch to live mode")
	h.switchMode(w, model.LiveMode)
}

func (h *ModeHandler) switchMode(w http.ResponseWriter, mode model.DataMode) {
	if !h.modes.SwitchMode(mode) {
		h.log.Info("already in requested mode", "mode", mode.String())
		writeJSON(w, http.StatusOK, modeResponse{Status: "ok", Mode: mode.String(), Message: "already in requested mode"})
		return
	}

	h.log.Info("mode switched successfully", "new_mode", mode.String())
	writeJSON(w, http.StatusOK, modeResponse{Status: "ok", Mode: mode.String()})
}
