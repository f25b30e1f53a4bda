package handler

import (
	"context"
	"log/slog"
	"net/http"

	"btcinvest/internal/domain/model"
)

type PriceService interface {
	GetCurrentPrice(ctx context.Context) (model.PriceQuote, error)
}

type PriceHandler struct {
	useCase PriceService
	logger  *slog.Logger
}

func NewPriceHandler(useCase PriceService, logger *slog.Logger) *PriceHandler {
	return &PriceHandler{
		useCase: useCase,
		logger:  logger,
	}
}

func (h *PriceHandler) GetCurrentPrice(w http.ResponseWriter, r *http.Request) {
	quote, err := h.useCase.GetCurrentPrice(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, quote)
}
