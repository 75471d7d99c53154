package bet

import (
	"colorgame_backend/internal/model"
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Метки bets_placed_total
const (
	resultAccepted     = "accepted"
	resultInvalid      = "invalid"
	resultClosed       = "closed"
	resultInsufficient = "insufficient_funds"
	resultError        = "error"
)

// PlaceBet - прием ставки в текущий открытый раунд.
// Вставка ставки и списание суммы идут одной транзакцией: без денег ставки нет
func (s *serv) PlaceBet(ctx context.Context, req model.PlaceBet) (*model.Bet, error) {
	bet, err := s.placeBet(ctx, req)
	s.metrics.BetsPlaced.WithLabelValues(resultLabel(err)).Inc()
	return bet, err
}

func (s *serv) placeBet(ctx context.Context, req model.PlaceBet) (*model.Bet, error) {
	// Валидация ставки
	sel := req.Selection.Normalize()
	if !s.calc.IsValidSelection(sel) {
		return nil, fmt.Errorf("%w: unknown selection %q", model.ErrInvalidBet, req.Selection)
	}
	if !req.Stake.IsPositive() {
		return nil, fmt.Errorf("%w: stake must be positive", model.ErrInvalidBet)
	}
	if req.Stake.LessThan(s.calc.MinStake()) {
		return nil, fmt.Errorf("%w: minimum stake is %s", model.ErrInvalidBet, s.calc.MinStake())
	}
	if !req.Stake.Equal(req.Stake.Round(2)) {
		return nil, fmt.Errorf("%w: stake has more than 2 decimal places", model.ErrInvalidBet)
	}

	round, err := s.rounds.GetOpenRound(ctx)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrRoundNotOpen
		}
		return nil, err
	}

	now := s.now()
	margin := s.roundCfg.BetLockMargin()
	// Быстрый отказ до транзакции, окончательная проверка внутри InsertBet
	if err = round.AcceptsBetsAt(now, margin); err != nil {
		return nil, err
	}

	bet := &model.Bet{
		RoundID:   round.ID,
		UserID:    req.UserID,
		Stake:     req.Stake,
		Selection: sel,
		PlacedAt:  now,
		Status:    model.BetPending,
		Payout:    decimal.Zero,
	}

	err = s.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := s.bets.InsertBet(txCtx, bet, margin); err != nil {
			return err
		}
		return s.ledger.Debit(txCtx, bet.UserID, bet.Stake, bet.StakeRef())
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("bet placed",
		zap.Int64("bet_id", bet.ID),
		zap.Int64("round_id", bet.RoundID),
		zap.Int64("user_id", bet.UserID),
		zap.String("selection", string(bet.Selection)),
		zap.String("stake", bet.Stake.String()),
	)
	return bet, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return resultAccepted
	case errors.Is(err, model.ErrInvalidBet):
		return resultInvalid
	case errors.Is(err, model.ErrRoundNotOpen), errors.Is(err, model.ErrWindowClosed):
		return resultClosed
	case errors.Is(err, model.ErrInsufficientFunds):
		return resultInsufficient
	default:
		return resultError
	}
}
