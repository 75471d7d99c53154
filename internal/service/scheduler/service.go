package scheduler

import (
	"colorgame_backend/internal/config"
	"colorgame_backend/internal/model"
	"colorgame_backend/internal/repository"
	"colorgame_backend/internal/service"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type Deps struct {
	RoundCfg   config.RoundConfig
	Rounds     repository.RoundRepository
	Settlement service.SettlementService
	Commission service.CommissionService
	Log        *zap.Logger
	Now        func() time.Time
}

type serv struct {
	roundCfg   config.RoundConfig
	rounds     repository.RoundRepository
	settlement service.SettlementService
	commission service.CommissionService
	log        *zap.Logger
	now        func() time.Time
}

func NewRoundScheduler(d Deps) service.RoundScheduler {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &serv{
		roundCfg:   d.RoundCfg,
		rounds:     d.Rounds,
		settlement: d.Settlement,
		commission: d.Commission,
		log:        d.Log,
		now:        d.Now,
	}
}

// StartCycle - открытый раунд. Если его нет, открывает следующий по номеру
func (s *serv) StartCycle(ctx context.Context) (*model.Round, error) {
	round, err := s.rounds.GetOpenRound(ctx)
	if err == nil {
		return round, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	lastID, err := s.rounds.LastRoundID(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	round = &model.Round{
		ID:       lastID + 1,
		OpenedAt: now,
		ClosesAt: now.Add(s.roundCfg.RoundDuration()),
		Status:   model.RoundOpen,
	}
	if err = s.rounds.CreateRound(ctx, round); err != nil {
		if errors.Is(err, model.ErrRoundExists) {
			// раунд открыл другой экземпляр
			return s.rounds.GetOpenRound(ctx)
		}
		return nil, fmt.Errorf("create round %d: %w", round.ID, err)
	}

	s.log.Info("round opened",
		zap.Int64("round_id", round.ID),
		zap.Time("closes_at", round.ClosesAt),
	)
	return round, nil
}

// Retry - ручной повтор расчета раунда оператором.
// settling и settled раунды идут в расчет как есть. open раунд закрывается
// только после ClosesAt и через тот же шлюз, что и плановое закрытие
func (s *serv) Retry(ctx context.Context, roundID int64) (*model.SettlementReport, error) {
	s.log.Info("settlement retry requested", zap.Int64("round_id", roundID))

	round, err := s.rounds.GetRound(ctx, roundID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load round %d: %w", model.ErrSettlementTransient, roundID, err)
	}
	if round.Status != model.RoundOpen {
		return s.settlement.Settle(ctx, roundID)
	}

	if s.now().Before(round.ClosesAt) {
		return nil, fmt.Errorf("%w: round %d closes at %s", model.ErrRoundStillOpen, roundID, round.ClosesAt.Format(time.RFC3339))
	}
	return s.settleOpen(ctx, round)
}
