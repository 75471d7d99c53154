package memory

import (
	"colorgame_backend/internal/model"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// cloneRound - копия без общих указателей с хранилищем
func cloneRound(r model.Round) *model.Round {
	cp := r
	if r.Outcome != nil {
		o := *r.Outcome
		cp.Outcome = &o
	}
	if r.SettledAt != nil {
		t := *r.SettledAt
		cp.SettledAt = &t
	}
	return &cp
}

// CreateRound - одновременно может быть открыт только один раунд
func (s *Store) CreateRound(ctx context.Context, round *model.Round) error {
	unlock := s.lock(ctx)
	defer unlock()

	if _, exists := s.st.rounds[round.ID]; exists {
		return model.ErrRoundExists
	}
	if round.Status == model.RoundOpen {
		for _, r := range s.st.rounds {
			if r.Status == model.RoundOpen {
				return model.ErrRoundExists
			}
		}
	}
	s.st.rounds[round.ID] = *cloneRound(*round)
	return nil
}

func (s *Store) GetRound(ctx context.Context, id int64) (*model.Round, error) {
	unlock := s.lock(ctx)
	defer unlock()

	r, ok := s.st.rounds[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return cloneRound(r), nil
}

func (s *Store) GetOpenRound(ctx context.Context) (*model.Round, error) {
	unlock := s.lock(ctx)
	defer unlock()

	for _, r := range s.st.rounds {
		if r.Status == model.RoundOpen {
			return cloneRound(r), nil
		}
	}
	return nil, model.ErrNotFound
}

func (s *Store) LastRoundID(ctx context.Context) (int64, error) {
	unlock := s.lock(ctx)
	defer unlock()

	var last int64
	for id := range s.st.rounds {
		if id > last {
			last = id
		}
	}
	return last, nil
}

func (s *Store) SetOutcome(ctx context.Context, id int64, outcome model.Outcome, forced bool) (bool, error) {
	unlock := s.lock(ctx)
	defer unlock()

	r, ok := s.st.rounds[id]
	if !ok {
		return false, model.ErrNotFound
	}
	if r.Status != model.RoundSettling || r.Outcome != nil {
		return false, nil
	}
	r.Outcome = &outcome
	r.Forced = forced
	s.st.rounds[id] = r
	return true, nil
}

func (s *Store) TransitionStatus(ctx context.Context, id int64, from, to model.RoundStatus, at time.Time) (bool, error) {
	unlock := s.lock(ctx)
	defer unlock()

	if !from.CanTransitionTo(to) {
		return false, fmt.Errorf("%w: round transition %s -> %s", model.ErrInvariantViolation, from, to)
	}
	r, ok := s.st.rounds[id]
	if !ok {
		return false, model.ErrNotFound
	}
	if r.Status != from {
		return false, nil
	}
	if to == model.RoundSettled && r.Outcome == nil {
		return false, fmt.Errorf("%w: round %d settled without outcome", model.ErrInvariantViolation, id)
	}
	r.Status = to
	if to == model.RoundSettled {
		r.SettledAt = &at
	}
	s.st.rounds[id] = r
	return true, nil
}

func (s *Store) ListRoundsByStatus(ctx context.Context, status model.RoundStatus) ([]model.Round, error) {
	unlock := s.lock(ctx)
	defer unlock()

	var res []model.Round
	for _, r := range s.st.rounds {
		if r.Status == status {
			res = append(res, *cloneRound(r))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *Store) ListSettledRounds(ctx context.Context, limit int) ([]model.Round, error) {
	unlock := s.lock(ctx)
	defer unlock()

	var res []model.Round
	for _, r := range s.st.rounds {
		if r.Status == model.RoundSettled {
			res = append(res, *cloneRound(r))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// InsertBet - проверка окна и вставка под одной блокировкой
func (s *Store) InsertBet(ctx context.Context, bet *model.Bet, margin time.Duration) error {
	unlock := s.lock(ctx)
	defer unlock()

	r, ok := s.st.rounds[bet.RoundID]
	if !ok {
		return model.ErrRoundNotOpen
	}
	if err := r.AcceptsBetsAt(bet.PlacedAt, margin); err != nil {
		return err
	}

	s.st.betSeq++
	bet.ID = s.st.betSeq
	if bet.Status == "" {
		bet.Status = model.BetPending
	}
	s.st.bets[bet.ID] = *bet
	return nil
}

func (s *Store) ListBetsForRound(ctx context.Context, roundID int64) ([]model.Bet, error) {
	unlock := s.lock(ctx)
	defer unlock()

	var res []model.Bet
	for _, b := range s.st.bets {
		if b.RoundID == roundID {
			res = append(res, b)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *Store) MarkBetSettled(ctx context.Context, betID int64, status model.BetStatus, payout decimal.Decimal) (bool, error) {
	unlock := s.lock(ctx)
	defer unlock()

	b, ok := s.st.bets[betID]
	if !ok {
		return false, model.ErrNotFound
	}
	if b.Status != model.BetPending {
		return false, nil
	}
	b.Status = status
	b.Payout = payout
	s.st.bets[betID] = b
	s.st.settled[betID]++
	return true, nil
}

func (s *Store) SummaryForRound(ctx context.Context, roundID int64) (map[model.Selection]decimal.Decimal, error) {
	unlock := s.lock(ctx)
	defer unlock()

	res := make(map[model.Selection]decimal.Decimal)
	for _, b := range s.st.bets {
		if b.RoundID == roundID {
			res[b.Selection] = res[b.Selection].Add(b.Stake)
		}
	}
	return res, nil
}
