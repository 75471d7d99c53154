package outcome

import (
	"colorgame_backend/internal/model"
	"colorgame_backend/internal/repository"
	"colorgame_backend/internal/service"
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type serv struct {
	calc      service.PayoutCalculator
	rounds    repository.RoundRepository
	overrides repository.OverrideRepository
	log       *zap.Logger
}

func NewOutcomeSelector(
	calc service.PayoutCalculator,
	rounds repository.RoundRepository,
	overrides repository.OverrideRepository,
	log *zap.Logger,
) service.OutcomeSelector {
	return &serv{
		calc:      calc,
		rounds:    rounds,
		overrides: overrides,
		log:       log,
	}
}

// Select - исход раунда.
// Если оператор задал исход, он используется как есть. Иначе выбирается исход
// с минимальной суммой выплат, при равенстве - меньшее число.
// Сам override здесь не снимается: это делает расчет после записи исхода в раунд
func (s *serv) Select(ctx context.Context, roundID int64, bets []model.Bet) (*model.Draw, error) {
	outcomes := s.calc.Outcomes()
	if len(outcomes) == 0 {
		return nil, fmt.Errorf("%w: empty outcome space", model.ErrInvariantViolation)
	}

	liabilities := make(map[model.Outcome]decimal.Decimal, len(outcomes))
	for _, o := range outcomes {
		liabilities[o] = s.calc.Liability(bets, o)
	}

	forced, ok, err := s.overrides.GetForcedOutcome(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("%w: read forced outcome of round %d: %w", model.ErrSettlementTransient, roundID, err)
	}
	if ok {
		if s.calc.InSpace(forced) {
			return &model.Draw{Outcome: forced, Forced: true, Liabilities: liabilities}, nil
		}
		s.log.Error("forced outcome outside of outcome space, drawing automatically",
			zap.Int64("round_id", roundID),
			zap.Int("outcome", int(forced)),
		)
	}

	best := outcomes[0]
	for _, o := range outcomes[1:] {
		cmp := liabilities[o].Cmp(liabilities[best])
		if cmp < 0 || (cmp == 0 && o < best) {
			best = o
		}
	}

	return &model.Draw{Outcome: best, Liabilities: liabilities}, nil
}

// Force - задать исход раунда вручную. Действует один раз, пока исход раунда не записан
func (s *serv) Force(ctx context.Context, roundID int64, outcome model.Outcome) error {
	if !s.calc.InSpace(outcome) {
		return model.ErrInvalidOutcome
	}

	round, err := s.rounds.GetRound(ctx, roundID)
	if err != nil {
		return err
	}
	if round.Status == model.RoundSettled || round.Outcome != nil {
		return fmt.Errorf("%w: outcome of round %d is already drawn", model.ErrRoundNotOpen, roundID)
	}

	if err = s.overrides.SetForcedOutcome(ctx, roundID, outcome); err != nil {
		return err
	}

	s.log.Info("outcome forced by operator",
		zap.Int64("round_id", roundID),
		zap.Int("outcome", int(outcome)),
	)
	return nil
}

func (s *serv) ClearForced(ctx context.Context, roundID int64) error {
	err := s.overrides.ClearForcedOutcome(ctx, roundID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return err
	}
	return nil
}
