package game

import (
	"colorgame_backend/internal/api"
	dto "colorgame_backend/internal/api/dto/game"
	"colorgame_backend/internal/converter"
	"colorgame_backend/internal/middleware"
	"colorgame_backend/internal/service"
	"colorgame_backend/pkg/req"
	"colorgame_backend/pkg/resp"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

type HandlerDeps struct {
	Serv service.BetService
	Log  *zap.Logger
}

type Handler struct {
	serv service.BetService
	log  *zap.Logger
}

func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{serv: deps.Serv, log: deps.Log}
}

// PlaceBet - ставка в текущий раунд от имени пользователя из токена
func (h *Handler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		resp.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	payload, err := req.Decode[dto.PlaceBetRequest](r.Body)
	if err != nil {
		resp.WriteError(w, http.StatusBadRequest, "invalid request")
		return
	}

	bet, err := h.serv.PlaceBet(r.Context(), converter.ToPlaceBet(userID, payload))
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	resp.WriteJSONResponse(w, http.StatusCreated, converter.ToBetResponse(bet))
}

// CurrentRound - открытый раунд, оставшееся время и можно ли ставить
func (h *Handler) CurrentRound(w http.ResponseWriter, r *http.Request) {
	view, err := h.serv.CurrentRound(r.Context())
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	resp.WriteJSONResponse(w, http.StatusOK, converter.ToRoundResponse(view))
}

// History - последние рассчитанные раунды, ?limit=N
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			resp.WriteError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	rounds, err := h.serv.History(r.Context(), limit)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	resp.WriteJSONResponse(w, http.StatusOK, converter.ToHistoryResponse(rounds))
}
