package admin

import (
	"colorgame_backend/internal/api"
	dto "colorgame_backend/internal/api/dto/admin"
	"colorgame_backend/internal/converter"
	"colorgame_backend/internal/model"
	"colorgame_backend/internal/service"
	"colorgame_backend/pkg/req"
	"colorgame_backend/pkg/resp"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type HandlerDeps struct {
	Selector   service.OutcomeSelector
	Scheduler  service.RoundScheduler
	Bets       service.BetService
	Yield      service.YieldService
	Commission service.CommissionService
	Log        *zap.Logger
	Now        func() time.Time
}

type Handler struct {
	selector   service.OutcomeSelector
	scheduler  service.RoundScheduler
	bets       service.BetService
	yield      service.YieldService
	commission service.CommissionService
	log        *zap.Logger
	now        func() time.Time
}

func NewHandler(deps HandlerDeps) *Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Handler{
		selector:   deps.Selector,
		scheduler:  deps.Scheduler,
		bets:       deps.Bets,
		yield:      deps.Yield,
		commission: deps.Commission,
		log:        deps.Log,
		now:        deps.Now,
	}
}

// ForceOutcome - задать исход раунда {id}, действует один раз
func (h *Handler) ForceOutcome(w http.ResponseWriter, r *http.Request) {
	roundID, ok := roundIDParam(w, r)
	if !ok {
		return
	}

	payload, err := req.Decode[dto.ForceOutcomeRequest](r.Body)
	if err != nil {
		resp.WriteError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err = h.selector.Force(r.Context(), roundID, model.Outcome(payload.Outcome)); err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Settle - ручной расчет раунда {id}: добивает settling, open закрывает только после ClosesAt
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	roundID, ok := roundIDParam(w, r)
	if !ok {
		return
	}

	report, err := h.scheduler.Retry(r.Context(), roundID)
	if err != nil && !errors.Is(err, model.ErrSettlementTransient) {
		api.WriteError(w, h.log, err)
		return
	}
	if err != nil {
		// раунд остался в settling, отчет показывает сколько ставок не рассчитано
		h.log.Warn("manual settlement incomplete", zap.Int64("round_id", roundID), zap.Error(err))
		if report == nil {
			api.WriteError(w, h.log, err)
			return
		}
		resp.WriteJSONResponse(w, http.StatusAccepted, converter.ToSettlementResponse(report))
		return
	}

	resp.WriteJSONResponse(w, http.StatusOK, converter.ToSettlementResponse(report))
}

// CurrentBets - суммы ставок по выборам в открытом раунде
func (h *Handler) CurrentBets(w http.ResponseWriter, r *http.Request) {
	summary, err := h.bets.OpenRoundSummary(r.Context())
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	resp.WriteJSONResponse(w, http.StatusOK, converter.ToBetSummaryResponse(summary))
}

// DailyYield - выплата дневного дохода по инвестициям
func (h *Handler) DailyYield(w http.ResponseWriter, r *http.Request) {
	payload, err := req.Decode[dto.DailyYieldRequest](r.Body)
	if err != nil && !errors.Is(err, io.EOF) {
		resp.WriteError(w, http.StatusBadRequest, "invalid request")
		return
	}

	day := h.now().UTC()
	if payload.Day != "" {
		day, err = time.Parse(time.DateOnly, payload.Day)
		if err != nil {
			resp.WriteError(w, http.StatusBadRequest, "day must be YYYY-MM-DD")
			return
		}
	}

	report, err := h.yield.DistributeDaily(r.Context(), day)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	resp.WriteJSONResponse(w, http.StatusOK, converter.ToDailyYieldResponse(report))
}

// RetryCommissions - повтор неудачных реферальных начислений
func (h *Handler) RetryCommissions(w http.ResponseWriter, r *http.Request) {
	applied, err := h.commission.RetryFailed(r.Context())
	if err != nil {
		h.log.Warn("commission retry incomplete", zap.Int("applied", applied), zap.Error(err))
	}

	resp.WriteJSONResponse(w, http.StatusOK, dto.RetryCommissionsResponse{Applied: applied})
}

func roundIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		resp.WriteError(w, http.StatusBadRequest, "invalid round id")
		return 0, false
	}
	return id, true
}
