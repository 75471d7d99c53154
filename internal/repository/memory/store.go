// Package memory - реализация всех репозиториев в памяти процесса.
// Используется в тестах и при STORAGE_DRIVER=memory.
package memory

import (
	"colorgame_backend/internal/model"
	"colorgame_backend/internal/repository"
	"context"
	"sync"
	"time"

	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/shopspring/decimal"
)

var (
	_ repository.LedgerRepository     = (*Store)(nil)
	_ repository.RoundRepository      = (*Store)(nil)
	_ repository.BetRepository        = (*Store)(nil)
	_ repository.ReferralRepository   = (*Store)(nil)
	_ repository.CommissionRepository = (*Store)(nil)
	_ repository.OverrideRepository   = (*Store)(nil)
	_ repository.InvestmentRepository = (*Store)(nil)
	_ repository.SettlementLock       = (*Store)(nil)
)

type txKey struct{}

type user struct {
	balance    decimal.Decimal
	referredBy *int64
}

type commissionKey struct {
	source      string
	beneficiary int64
}

// state - все данные хранилища. Копируется целиком при открытии транзакции
type state struct {
	users       map[int64]user
	journal     map[string]struct{}
	rounds      map[int64]model.Round
	bets        map[int64]model.Bet
	betSeq      int64
	settled     map[int64]int
	commissions map[commissionKey]model.CommissionEvent
	investments map[int64]model.Investment
	overrides   map[int64]model.Outcome
	pending     map[string]model.ProfitEvent
}

type Store struct {
	mu sync.Mutex
	st state

	creditHook func(userID int64, ref string) error

	locksMu sync.Mutex
	locks   map[string]lease
	lockSeq int64
	clock   func() time.Time
}

type lease struct {
	token     int64
	expiresAt time.Time
}

func NewStore() *Store {
	return &Store{
		st: state{
			users:       make(map[int64]user),
			journal:     make(map[string]struct{}),
			rounds:      make(map[int64]model.Round),
			bets:        make(map[int64]model.Bet),
			settled:     make(map[int64]int),
			commissions: make(map[commissionKey]model.CommissionEvent),
			investments: make(map[int64]model.Investment),
			overrides:   make(map[int64]model.Outcome),
			pending:     make(map[string]model.ProfitEvent),
		},
		locks: make(map[string]lease),
		clock: time.Now,
	}
}

// lock - берет мьютекс хранилища, если вызов идет не из транзакции
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

func (s *Store) snapshot() state {
	cp := state{
		users:       make(map[int64]user, len(s.st.users)),
		journal:     make(map[string]struct{}, len(s.st.journal)),
		rounds:      make(map[int64]model.Round, len(s.st.rounds)),
		bets:        make(map[int64]model.Bet, len(s.st.bets)),
		betSeq:      s.st.betSeq,
		settled:     make(map[int64]int, len(s.st.settled)),
		commissions: make(map[commissionKey]model.CommissionEvent, len(s.st.commissions)),
		investments: make(map[int64]model.Investment, len(s.st.investments)),
		overrides:   make(map[int64]model.Outcome, len(s.st.overrides)),
		pending:     make(map[string]model.ProfitEvent, len(s.st.pending)),
	}
	for k, v := range s.st.users {
		cp.users[k] = v
	}
	for k := range s.st.journal {
		cp.journal[k] = struct{}{}
	}
	for k, v := range s.st.rounds {
		cp.rounds[k] = v
	}
	for k, v := range s.st.bets {
		cp.bets[k] = v
	}
	for k, v := range s.st.settled {
		cp.settled[k] = v
	}
	for k, v := range s.st.commissions {
		cp.commissions[k] = v
	}
	for k, v := range s.st.investments {
		cp.investments[k] = v
	}
	for k, v := range s.st.overrides {
		cp.overrides[k] = v
	}
	for k, v := range s.st.pending {
		cp.pending[k] = v
	}
	return cp
}

// TxManager - менеджер транзакций поверх Store. Транзакция сериализует доступ
// к хранилищу и откатывает все изменения, если fn вернула ошибку
type TxManager struct {
	store *Store
}

var _ trm.Manager = (*TxManager)(nil)

func (s *Store) TxManager() *TxManager {
	return &TxManager{store: s}
}

func (m *TxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.store.inTx(ctx) {
		return fn(ctx)
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	snap := m.store.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, m.store)); err != nil {
		m.store.st = snap
		return err
	}
	return nil
}

func (m *TxManager) DoWithSettings(ctx context.Context, _ trm.Settings, fn func(ctx context.Context) error) error {
	return m.Do(ctx, fn)
}

// AddUser - заводит пользователя с начальным балансом
func (s *Store) AddUser(id int64, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.st.users[id]
	u.balance = balance
	s.st.users[id] = u
}

// SetReferrer - задает пригласившего. Циклы не проверяются
func (s *Store) SetReferrer(userID, referrerID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.st.users[userID]
	ref := referrerID
	u.referredBy = &ref
	s.st.users[userID] = u
}

func (s *Store) AddInvestment(inv model.Investment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.investments[inv.ID] = inv
}

// SetCreditHook - вызывается перед каждым зачислением, ошибка хука = ошибка зачисления
func (s *Store) SetCreditHook(hook func(userID int64, ref string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creditHook = hook
}

// SettledCount - сколько раз ставка была переведена из pending (для проверки двойного расчета)
func (s *Store) SettledCount(betID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.settled[betID]
}

func (s *Store) GetInvestment(id int64) (model.Investment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.st.investments[id]
	return inv, ok
}
