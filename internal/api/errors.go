package api

import (
	"colorgame_backend/internal/model"
	"colorgame_backend/pkg/resp"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// WriteError - ошибка сервиса в HTTP ответ
func WriteError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidBet), errors.Is(err, model.ErrInvalidOutcome):
		resp.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrInsufficientFunds):
		resp.WriteError(w, http.StatusPaymentRequired, "insufficient funds")
	case errors.Is(err, model.ErrWindowClosed), errors.Is(err, model.ErrRoundNotOpen):
		resp.WriteError(w, http.StatusConflict, "betting closed")
	case errors.Is(err, model.ErrRoundStillOpen):
		resp.WriteError(w, http.StatusConflict, "round is still open")
	case errors.Is(err, model.ErrSettlementInProgress):
		resp.WriteError(w, http.StatusConflict, "settlement in progress")
	case errors.Is(err, model.ErrNotFound):
		resp.WriteError(w, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrSettlementTransient):
		log.Warn("request failed with transient error", zap.Error(err))
		resp.WriteError(w, http.StatusServiceUnavailable, "temporarily unavailable, retry later")
	default:
		log.Error("request failed", zap.Error(err))
		resp.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
