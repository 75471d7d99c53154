package memory

import (
	"colorgame_backend/internal/model"
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var errNonPositiveAmount = errors.New("amount must be positive")

// Debit - списание с кошелька, повтор с тем же ref ничего не меняет
func (s *Store) Debit(ctx context.Context, userID int64, amount decimal.Decimal, ref string) error {
	unlock := s.lock(ctx)
	defer unlock()

	if !amount.IsPositive() {
		return errNonPositiveAmount
	}
	if _, done := s.st.journal[ref]; done && ref != "" {
		return nil
	}
	u, ok := s.st.users[userID]
	if !ok {
		return model.ErrNotFound
	}
	if u.balance.LessThan(amount) {
		return model.ErrInsufficientFunds
	}

	u.balance = u.balance.Sub(amount)
	s.st.users[userID] = u
	if ref != "" {
		s.st.journal[ref] = struct{}{}
	}
	return nil
}

// Credit - зачисление на кошелек, повтор с тем же ref ничего не меняет
func (s *Store) Credit(ctx context.Context, userID int64, amount decimal.Decimal, ref string) error {
	unlock := s.lock(ctx)
	defer unlock()

	if !amount.IsPositive() {
		return errNonPositiveAmount
	}
	if s.creditHook != nil {
		if err := s.creditHook(userID, ref); err != nil {
			return err
		}
	}
	if _, done := s.st.journal[ref]; done && ref != "" {
		return nil
	}
	u, ok := s.st.users[userID]
	if !ok {
		return model.ErrNotFound
	}

	u.balance = u.balance.Add(amount)
	s.st.users[userID] = u
	if ref != "" {
		s.st.journal[ref] = struct{}{}
	}
	return nil
}

func (s *Store) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	unlock := s.lock(ctx)
	defer unlock()

	u, ok := s.st.users[userID]
	if !ok {
		return decimal.Zero, model.ErrNotFound
	}
	return u.balance, nil
}

func (s *Store) GetReferrer(ctx context.Context, userID int64) (int64, bool, error) {
	unlock := s.lock(ctx)
	defer unlock()

	u, ok := s.st.users[userID]
	if !ok {
		return 0, false, model.ErrNotFound
	}
	if u.referredBy == nil {
		return 0, false, nil
	}
	return *u.referredBy, true, nil
}
