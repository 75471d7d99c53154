package bet

import (
	"colorgame_backend/internal/model"
	"context"
)

// CurrentRound - открытый раунд, сколько осталось и можно ли еще ставить
func (s *serv) CurrentRound(ctx context.Context) (*model.RoundView, error) {
	round, err := s.rounds.GetOpenRound(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	left := round.ClosesAt.Sub(now)
	if left < 0 {
		left = 0
	}
	return &model.RoundView{
		Round:    *round,
		TimeLeft: left,
		CanBet:   round.AcceptsBetsAt(now, s.roundCfg.BetLockMargin()) == nil,
	}, nil
}

// History - последние рассчитанные раунды
func (s *serv) History(ctx context.Context, limit int) ([]model.Round, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.rounds.ListSettledRounds(ctx, limit)
}

// OpenRoundSummary - суммы ставок по выборам в открытом раунде
func (s *serv) OpenRoundSummary(ctx context.Context) (*model.RoundSummary, error) {
	round, err := s.rounds.GetOpenRound(ctx)
	if err != nil {
		return nil, err
	}

	totals, err := s.bets.SummaryForRound(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	return &model.RoundSummary{RoundID: round.ID, Totals: totals}, nil
}
