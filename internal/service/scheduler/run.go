package scheduler

import (
	"colorgame_backend/internal/model"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Run - цикл раундов до отмены ctx.
// Таймер на закрытие активного раунда и тикер повторов: недорассчитанные раунды
// и неудачные реферальные начисления
func (s *serv) Run(ctx context.Context) error {
	s.log.Info("round scheduler started")
	defer s.log.Info("round scheduler stopped")

	s.resumeSettling(ctx, 0)

	retry := time.NewTicker(s.roundCfg.RetryInterval())
	defer retry.Stop()

	timer := time.NewTimer(0)
	defer timer.Stop()

	var active *model.Round
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-retry.C:
			s.resumeSettling(ctx, activeID(active))
			s.retryCommissions(ctx)

		case <-timer.C:
			if active == nil {
				round, err := s.StartCycle(ctx)
				if err != nil {
					s.log.Error("failed to open round", zap.Error(err))
					timer.Reset(s.roundCfg.RetryInterval())
					continue
				}
				active = round
				timer.Reset(s.untilClose(round))
				continue
			}

			if !s.closeRound(ctx, active) {
				timer.Reset(s.roundCfg.RetryInterval())
				continue
			}
			active = nil
			timer.Reset(0)
		}
	}
}

// closeRound - расчет активного раунда. false - закрытие отложено до следующего тика
func (s *serv) closeRound(ctx context.Context, round *model.Round) bool {
	report, err := s.settleOpen(ctx, round)
	switch {
	case err == nil:
		return true
	case errors.Is(err, model.ErrSettlementInProgress):
		s.log.Warn("round close deferred", zap.Int64("round_id", round.ID), zap.Error(err))
		return false
	case errors.Is(err, model.ErrSettlementTransient):
		// раунд остался в settling, его подберет тикер повторов
		failures := 0
		if report != nil {
			failures = report.Failures
		}
		s.log.Warn("round settlement incomplete",
			zap.Int64("round_id", round.ID),
			zap.Int("failures", failures),
			zap.Error(err),
		)
		return true
	default:
		s.log.Error("round settlement failed", zap.Int64("round_id", round.ID), zap.Error(err))
		return !s.isOpen(ctx, round.ID)
	}
}

// settleOpen - закрытие open раунда. Пока другие раунды в settling, раунд не трогаем:
// сначала пробуем их дорасчитать, и если не вышло - model.ErrSettlementInProgress
func (s *serv) settleOpen(ctx context.Context, round *model.Round) (*model.SettlementReport, error) {
	if stuck := s.resumeSettling(ctx, round.ID); stuck > 0 {
		return nil, fmt.Errorf("%w: %d previous rounds still settling", model.ErrSettlementInProgress, stuck)
	}
	return s.settlement.Settle(ctx, round.ID)
}

// resumeSettling - довести до конца раунды в settling, кроме skip.
// Возвращает сколько осталось недорассчитанными
func (s *serv) resumeSettling(ctx context.Context, skip int64) int {
	rounds, err := s.rounds.ListRoundsByStatus(ctx, model.RoundSettling)
	if err != nil {
		s.log.Warn("failed to list settling rounds", zap.Error(err))
		return 1
	}

	stuck := 0
	for _, round := range rounds {
		if round.ID == skip {
			continue
		}
		if _, err = s.settlement.Settle(ctx, round.ID); err != nil {
			stuck++
			s.log.Warn("settling round not resumed", zap.Int64("round_id", round.ID), zap.Error(err))
			continue
		}
		s.log.Info("settling round resumed", zap.Int64("round_id", round.ID))
	}
	return stuck
}

func (s *serv) retryCommissions(ctx context.Context) {
	applied, err := s.commission.RetryFailed(ctx)
	if applied > 0 {
		s.log.Info("failed commissions reapplied", zap.Int("applied", applied))
	}
	if err != nil {
		s.log.Warn("commission retry incomplete", zap.Error(err))
	}
}

func (s *serv) isOpen(ctx context.Context, roundID int64) bool {
	round, err := s.rounds.GetRound(ctx, roundID)
	if err != nil {
		return !errors.Is(err, model.ErrNotFound)
	}
	return round.Status == model.RoundOpen
}

func (s *serv) untilClose(round *model.Round) time.Duration {
	d := round.ClosesAt.Sub(s.now())
	if d < 0 {
		return 0
	}
	return d
}

func activeID(round *model.Round) int64 {
	if round == nil {
		return 0
	}
	return round.ID
}
