package memory

import (
	"colorgame_backend/internal/model"
	"context"
	"sort"
	"time"
)

func dayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

func (s *Store) ListDueInvestments(ctx context.Context, day time.Time) ([]model.Investment, error) {
	unlock := s.lock(ctx)
	defer unlock()

	var res []model.Investment
	for _, inv := range s.st.investments {
		if inv.Status != model.InvestmentActive || inv.DaysLeft <= 0 {
			continue
		}
		if inv.LastPaidOn != nil && dayKey(*inv.LastPaidOn) >= dayKey(day) {
			continue
		}
		res = append(res, inv)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *Store) MarkInvestmentPaid(ctx context.Context, id int64, day time.Time) (bool, error) {
	unlock := s.lock(ctx)
	defer unlock()

	inv, ok := s.st.investments[id]
	if !ok {
		return false, model.ErrNotFound
	}
	if inv.Status != model.InvestmentActive || inv.DaysLeft <= 0 {
		return false, nil
	}
	if inv.LastPaidOn != nil && dayKey(*inv.LastPaidOn) >= dayKey(day) {
		return false, nil
	}
	paid := day
	inv.LastPaidOn = &paid
	inv.DaysLeft--
	if inv.DaysLeft == 0 {
		inv.Status = model.InvestmentCompleted
	}
	s.st.investments[id] = inv
	return true, nil
}

func (s *Store) GetForcedOutcome(ctx context.Context, roundID int64) (model.Outcome, bool, error) {
	unlock := s.lock(ctx)
	defer unlock()

	o, ok := s.st.overrides[roundID]
	return o, ok, nil
}

func (s *Store) SetForcedOutcome(ctx context.Context, roundID int64, outcome model.Outcome) error {
	unlock := s.lock(ctx)
	defer unlock()

	s.st.overrides[roundID] = outcome
	return nil
}

func (s *Store) ClearForcedOutcome(ctx context.Context, roundID int64) error {
	unlock := s.lock(ctx)
	defer unlock()

	delete(s.st.overrides, roundID)
	return nil
}

// Acquire - блокировка с TTL в пределах процесса
func (s *Store) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	now := s.clock()
	if l, held := s.locks[key]; held && now.Before(l.expiresAt) {
		return nil, model.ErrSettlementInProgress
	}
	s.lockSeq++
	token := s.lockSeq
	s.locks[key] = lease{token: token, expiresAt: now.Add(ttl)}

	return func() {
		s.locksMu.Lock()
		defer s.locksMu.Unlock()
		if l, ok := s.locks[key]; ok && l.token == token {
			delete(s.locks, key)
		}
	}, nil
}
