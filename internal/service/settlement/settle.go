package settlement

import (
	"colorgame_backend/internal/events"
	"colorgame_backend/internal/model"
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Settle - расчет раунда: open -> settling, выбор исхода, выплаты, реферальные,
// settling -> settled.
// Исход записывается в раунд до первого движения денег и дальше не меняется.
// Каждая ставка рассчитывается в своей транзакции (CAS pending -> won/lost + зачисление),
// поэтому повторный вызов после сбоя продолжает с того же места и не платит дважды.
// При любом сбое раунд остается в settling, ошибка оборачивает model.ErrSettlementTransient
func (s *serv) Settle(ctx context.Context, roundID int64) (*model.SettlementReport, error) {
	if !s.enter(roundID) {
		return nil, model.ErrSettlementInProgress
	}
	defer s.leave(roundID)

	release, err := s.lock.Acquire(ctx, lockKey(roundID), s.roundCfg.LockTTL())
	if err != nil {
		if errors.Is(err, model.ErrSettlementInProgress) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: acquire settlement lock: %w", model.ErrSettlementTransient, err)
	}
	defer release()

	round, err := s.beginSettling(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round.Status == model.RoundSettled {
		return alreadySettled(round), nil
	}

	bets, err := s.bets.ListBetsForRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("%w: list bets of round %d: %w", model.ErrSettlementTransient, roundID, err)
	}

	outcome, forced, err := s.ensureOutcome(ctx, round, bets)
	if err != nil {
		return nil, err
	}

	report := &model.SettlementReport{
		RoundID: roundID,
		Outcome: outcome,
		Forced:  forced,
		Bets:    len(bets),
		Stake:   decimal.Zero,
		Payout:  decimal.Zero,
	}

	// Выплаты
	failures, won := s.payBets(ctx, report, bets, outcome)

	// Реферальные с чистого выигрыша
	for _, bet := range won {
		profit := bet.Profit()
		if !profit.IsPositive() {
			continue
		}
		_, err = s.commission.Distribute(ctx, model.ProfitEvent{
			SourceEventID: bet.SourceEventID(),
			OriginUserID:  bet.UserID,
			Amount:        profit,
		})
		if err != nil {
			s.log.Warn("commission cascade interrupted",
				zap.Int64("round_id", roundID),
				zap.Int64("bet_id", bet.ID),
				zap.Int64("user_id", bet.UserID),
				zap.Error(err),
			)
			failures = append(failures, fmt.Errorf("commission for bet %d: %w", bet.ID, err))
		}
	}

	if len(failures) > 0 {
		report.Failures = len(failures)
		s.metrics.SettlementFailures.Inc()
		s.log.Warn("round settlement incomplete, left in settling",
			zap.Int64("round_id", roundID),
			zap.Int("failures", len(failures)),
		)
		return report, errors.Join(append([]error{model.ErrSettlementTransient}, failures...)...)
	}

	return report, s.finish(ctx, report)
}

// beginSettling - переводит open раунд в settling. settling и settled возвращаются как есть
func (s *serv) beginSettling(ctx context.Context, roundID int64) (*model.Round, error) {
	round, err := s.rounds.GetRound(ctx, roundID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load round %d: %w", model.ErrSettlementTransient, roundID, err)
	}
	if round.Status != model.RoundOpen {
		return round, nil
	}

	ok, err := s.rounds.TransitionStatus(ctx, roundID, model.RoundOpen, model.RoundSettling, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: close round %d: %w", model.ErrSettlementTransient, roundID, err)
	}
	if ok {
		round.Status = model.RoundSettling
		s.log.Info("round closed", zap.Int64("round_id", roundID))
		return round, nil
	}

	// статус сменился между чтением и CAS
	round, err = s.rounds.GetRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("%w: reload round %d: %w", model.ErrSettlementTransient, roundID, err)
	}
	return round, nil
}

// ensureOutcome - исход из раунда, если он уже записан. Иначе выбор и запись.
// Override оператора снимается только после записи исхода
func (s *serv) ensureOutcome(ctx context.Context, round *model.Round, bets []model.Bet) (model.Outcome, bool, error) {
	if round.Outcome == nil {
		draw, err := s.selector.Select(ctx, round.ID, bets)
		if err != nil {
			return 0, false, fmt.Errorf("select outcome of round %d: %w", round.ID, err)
		}

		ok, err := s.rounds.SetOutcome(ctx, round.ID, draw.Outcome, draw.Forced)
		if err != nil {
			return 0, false, fmt.Errorf("%w: store outcome of round %d: %w", model.ErrSettlementTransient, round.ID, err)
		}
		if ok {
			o := draw.Outcome
			round.Outcome = &o
			round.Forced = draw.Forced
			s.metrics.ObserveLiability(draw.Liability())
			s.log.Info("outcome drawn",
				zap.Int64("round_id", round.ID),
				zap.Int("outcome", int(draw.Outcome)),
				zap.Bool("forced", draw.Forced),
				zap.String("liability", draw.Liability().String()),
				zap.Int("bets", len(bets)),
			)
		} else {
			round, err = s.rounds.GetRound(ctx, round.ID)
			if err != nil {
				return 0, false, fmt.Errorf("%w: reload round: %w", model.ErrSettlementTransient, err)
			}
			if round.Outcome == nil {
				return 0, false, fmt.Errorf("%w: round %d in %s has no outcome", model.ErrInvariantViolation, round.ID, round.Status)
			}
		}
	}

	if round.Forced {
		if err := s.selector.ClearForced(ctx, round.ID); err != nil {
			s.log.Warn("failed to clear forced outcome", zap.Int64("round_id", round.ID), zap.Error(err))
		}
	}
	return *round.Outcome, round.Forced, nil
}

// payBets - выплаты по pending ставкам. Возвращает ошибки по ставкам и выигравшие ставки
// (включая рассчитанные в прошлых попытках)
func (s *serv) payBets(ctx context.Context, report *model.SettlementReport, bets []model.Bet, outcome model.Outcome) ([]error, []model.Bet) {
	var (
		failures []error
		won      []model.Bet
	)

	for _, bet := range bets {
		report.Stake = report.Stake.Add(bet.Stake)

		if bet.Status == model.BetPending {
			payout := s.calc.Payout(&bet, outcome)
			status := model.BetLost
			if payout.IsPositive() {
				status = model.BetWon
			}

			var marked bool
			err := s.txManager.Do(ctx, func(txCtx context.Context) error {
				var err error
				marked, err = s.bets.MarkBetSettled(txCtx, bet.ID, status, payout)
				if err != nil || !marked || !payout.IsPositive() {
					return err
				}
				return s.ledger.Credit(txCtx, bet.UserID, payout, bet.PayoutRef())
			})
			if err != nil {
				s.log.Warn("bet settlement failed",
					zap.Int64("round_id", bet.RoundID),
					zap.Int64("bet_id", bet.ID),
					zap.Int64("user_id", bet.UserID),
					zap.Error(err),
				)
				failures = append(failures, fmt.Errorf("bet %d: %w", bet.ID, err))
				continue
			}
			if !marked {
				s.log.Error("bet already settled by another writer",
					zap.Error(model.ErrInvariantViolation),
					zap.Int64("round_id", bet.RoundID),
					zap.Int64("bet_id", bet.ID),
				)
				continue
			}
			bet.Status = status
			bet.Payout = payout
		}

		switch bet.Status {
		case model.BetWon:
			report.Won++
			report.Payout = report.Payout.Add(bet.Payout)
			won = append(won, bet)
		case model.BetLost:
			report.Lost++
		}
	}
	return failures, won
}

// finish - settling -> settled, метрики, событие
func (s *serv) finish(ctx context.Context, report *model.SettlementReport) error {
	settledAt := s.now()
	ok, err := s.rounds.TransitionStatus(ctx, report.RoundID, model.RoundSettling, model.RoundSettled, settledAt)
	if err != nil {
		s.metrics.SettlementFailures.Inc()
		return fmt.Errorf("%w: finalize round %d: %w", model.ErrSettlementTransient, report.RoundID, err)
	}
	if !ok {
		s.log.Error("round left settling during settlement",
			zap.Error(model.ErrInvariantViolation),
			zap.Int64("round_id", report.RoundID),
		)
		return fmt.Errorf("%w: round %d left settling concurrently", model.ErrInvariantViolation, report.RoundID)
	}

	s.metrics.RoundsSettled.Inc()
	if report.Forced {
		s.metrics.ForcedOutcomes.Inc()
	}

	if err = s.publisher.PublishRoundSettled(ctx, events.NewRoundSettled(report, settledAt)); err != nil {
		s.log.Warn("failed to publish round_settled event", zap.Int64("round_id", report.RoundID), zap.Error(err))
	}

	s.log.Info("round settled",
		zap.Int64("round_id", report.RoundID),
		zap.Int("outcome", int(report.Outcome)),
		zap.Bool("forced", report.Forced),
		zap.Int("bets", report.Bets),
		zap.Int("won", report.Won),
		zap.String("stake", report.Stake.String()),
		zap.String("payout", report.Payout.String()),
	)
	return nil
}

func alreadySettled(round *model.Round) *model.SettlementReport {
	report := &model.SettlementReport{
		RoundID:        round.ID,
		Forced:         round.Forced,
		AlreadySettled: true,
	}
	if o, ok := round.WinningOutcome(); ok {
		report.Outcome = o
	}
	return report
}
