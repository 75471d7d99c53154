package settlement

import (
	"colorgame_backend/internal/events"
	"colorgame_backend/internal/metrics"
	"colorgame_backend/internal/model"
	"colorgame_backend/internal/repository/memory"
	"colorgame_backend/internal/service"
	"colorgame_backend/internal/service/commission"
	"colorgame_backend/internal/service/outcome"
	"colorgame_backend/internal/service/payout"
	"colorgame_backend/internal/testutil"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	userNumber   int64 = iota + 1 // ставит на 5
	userColor                     // ставит на red
	userReferrer                  // пригласил userNumber
)

var openedAt = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu      sync.Mutex
	settled []events.RoundSettled
}

func (p *recordingPublisher) PublishRoundSettled(_ context.Context, e events.RoundSettled) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settled = append(p.settled, e)
	return nil
}

func (p *recordingPublisher) PublishCommissionFailed(context.Context, events.CommissionFailed) error {
	return nil
}

type fixture struct {
	svc       service.SettlementService
	selector  service.OutcomeSelector
	store     *memory.Store
	publisher *recordingPublisher
	metrics   *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	m := metrics.New(prometheus.NewRegistry())
	log := zap.NewNop()
	pub := &recordingPublisher{}

	calc := payout.NewPayoutCalculator(testutil.NewGameConfig())
	selector := outcome.NewOutcomeSelector(calc, store, store, log)
	commissions := commission.NewCommissionService(commission.Deps{
		Cfg:         testutil.NewCommissionConfig(),
		Referrals:   store,
		Commissions: store,
		Ledger:      store,
		TxManager:   store.TxManager(),
		Metrics:     m,
		Log:         log,
	})

	svc := NewSettlementService(Deps{
		RoundCfg:   testutil.NewRoundConfig(),
		Calc:       calc,
		Selector:   selector,
		Commission: commissions,
		Rounds:     store,
		Bets:       store,
		Ledger:     store,
		Lock:       store,
		TxManager:  store.TxManager(),
		Publisher:  pub,
		Metrics:    m,
		Log:        log,
		Now:        func() time.Time { return openedAt.Add(time.Minute) },
	})

	require.NoError(t, store.CreateRound(context.Background(), &model.Round{
		ID:       1,
		OpenedAt: openedAt,
		ClosesAt: openedAt.Add(60 * time.Second),
		Status:   model.RoundOpen,
	}))
	store.AddUser(userNumber, decimal.NewFromInt(500))
	store.AddUser(userColor, decimal.NewFromInt(500))
	store.AddUser(userReferrer, decimal.Zero)
	store.SetReferrer(userNumber, userReferrer)

	return &fixture{svc: svc, selector: selector, store: store, publisher: pub, metrics: m}
}

func (f *fixture) placeBet(t *testing.T, userID int64, stake string, sel model.Selection) *model.Bet {
	t.Helper()
	bet := &model.Bet{
		RoundID:   1,
		UserID:    userID,
		Stake:     decimal.RequireFromString(stake),
		Selection: sel,
		PlacedAt:  openedAt.Add(10 * time.Second),
		Status:    model.BetPending,
		Payout:    decimal.Zero,
	}
	err := f.store.TxManager().Do(context.Background(), func(txCtx context.Context) error {
		if err := f.store.InsertBet(txCtx, bet, 5*time.Second); err != nil {
			return err
		}
		return f.store.Debit(txCtx, userID, bet.Stake, bet.StakeRef())
	})
	require.NoError(t, err)
	return bet
}

func (f *fixture) assertBalance(t *testing.T, userID int64, want string) {
	t.Helper()
	got, err := f.store.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString(want).Equal(got), "user %d: want %s, got %s", userID, want, got)
}

func (f *fixture) round(t *testing.T) *model.Round {
	t.Helper()
	r, err := f.store.GetRound(context.Background(), 1)
	require.NoError(t, err)
	return r
}

// 100 на 5 и 200 на red: выплаты 920 при 5, 298 при 0, 396 при red, 0 при 2/4/6/8
func TestSettle_PicksCheapestOutcome(t *testing.T) {
	f := newFixture(t)
	numberBet := f.placeBet(t, userNumber, "100", "5")
	colorBet := f.placeBet(t, userColor, "200", "red")

	report, err := f.svc.Settle(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, model.Outcome(2), report.Outcome)
	assert.False(t, report.Forced)
	assert.Equal(t, 2, report.Bets)
	assert.Equal(t, 0, report.Won)
	assert.Equal(t, 2, report.Lost)
	assert.True(t, decimal.NewFromInt(300).Equal(report.Stake))
	assert.True(t, report.Payout.IsZero())

	f.assertBalance(t, userNumber, "400")
	f.assertBalance(t, userColor, "300")
	f.assertBalance(t, userReferrer, "0")

	r := f.round(t)
	assert.Equal(t, model.RoundSettled, r.Status)
	require.NotNil(t, r.SettledAt)
	assert.Equal(t, 1, f.store.SettledCount(numberBet.ID))
	assert.Equal(t, 1, f.store.SettledCount(colorBet.ID))

	require.Len(t, f.publisher.settled, 1)
	assert.Equal(t, 2, f.publisher.settled[0].Outcome)
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.RoundsSettled))
}

func TestSettle_ForcedOutcomePaysWinnersAndCommission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	numberBet := f.placeBet(t, userNumber, "100", "5")
	f.placeBet(t, userColor, "200", "red")

	require.NoError(t, f.selector.Force(ctx, 1, 5))

	report, err := f.svc.Settle(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.Outcome(5), report.Outcome)
	assert.True(t, report.Forced)
	assert.Equal(t, 1, report.Won)
	assert.True(t, decimal.NewFromInt(920).Equal(report.Payout))

	// 500 - 100 + 920
	f.assertBalance(t, userNumber, "1320")
	f.assertBalance(t, userColor, "300")
	// 30% от чистого выигрыша 820
	f.assertBalance(t, userReferrer, "246")

	credited, err := f.store.ListCommissionsBySource(ctx, numberBet.SourceEventID())
	require.NoError(t, err)
	require.Len(t, credited, 1)
	assert.Equal(t, model.CommissionApplied, credited[0].Status)

	_, forced, err := f.store.GetForcedOutcome(ctx, 1)
	require.NoError(t, err)
	assert.False(t, forced, "override must be cleared once the outcome is stored")
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.ForcedOutcomes))
}

func TestSettle_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bet := f.placeBet(t, userNumber, "100", "5")
	require.NoError(t, f.selector.Force(ctx, 1, 5))

	first, err := f.svc.Settle(ctx, 1)
	require.NoError(t, err)
	assert.False(t, first.AlreadySettled)

	second, err := f.svc.Settle(ctx, 1)
	require.NoError(t, err)
	assert.True(t, second.AlreadySettled)
	assert.Equal(t, first.Outcome, second.Outcome)

	assert.Equal(t, 1, f.store.SettledCount(bet.ID))
	f.assertBalance(t, userNumber, "1320")
	f.assertBalance(t, userReferrer, "246")
	assert.Len(t, f.publisher.settled, 1)
}

func TestSettle_ResumesAfterLedgerOutage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	numberBet := f.placeBet(t, userNumber, "100", "5")
	colorBet := f.placeBet(t, userColor, "200", "red")
	require.NoError(t, f.selector.Force(ctx, 1, 7))

	outage := errors.New("ledger unavailable")
	f.store.SetCreditHook(func(_ int64, ref string) error {
		if ref == colorBet.PayoutRef() {
			return outage
		}
		return nil
	})

	report, err := f.svc.Settle(ctx, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrSettlementTransient)
	assert.ErrorIs(t, err, outage)
	assert.Equal(t, 1, report.Failures)

	r := f.round(t)
	assert.Equal(t, model.RoundSettling, r.Status)
	require.NotNil(t, r.Outcome)
	assert.Equal(t, model.Outcome(7), *r.Outcome)
	f.assertBalance(t, userColor, "300")
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.SettlementFailures))

	// исход зафиксирован, новый override его не меняет
	assert.ErrorIs(t, f.selector.Force(ctx, 1, 2), model.ErrRoundNotOpen)
	require.NoError(t, f.store.SetForcedOutcome(ctx, 1, 2))

	f.store.SetCreditHook(nil)
	report, err = f.svc.Settle(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.Outcome(7), report.Outcome)
	assert.Equal(t, 1, report.Won)
	assert.Equal(t, 1, report.Lost)

	// 500 - 200 + 396
	f.assertBalance(t, userColor, "696")
	f.assertBalance(t, userNumber, "400")
	assert.Equal(t, 1, f.store.SettledCount(numberBet.ID))
	assert.Equal(t, 1, f.store.SettledCount(colorBet.ID))
	assert.Equal(t, model.RoundSettled, f.round(t).Status)
}

func TestSettle_LockHeld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	release, err := f.store.Acquire(ctx, lockKey(1), time.Minute)
	require.NoError(t, err)

	_, err = f.svc.Settle(ctx, 1)
	assert.ErrorIs(t, err, model.ErrSettlementInProgress)
	assert.Equal(t, model.RoundOpen, f.round(t).Status)

	release()
	_, err = f.svc.Settle(ctx, 1)
	require.NoError(t, err)
}

func TestSettle_ConcurrentCallsSettleOnce(t *testing.T) {
	f := newFixture(t)
	bet := f.placeBet(t, userNumber, "100", "5")
	require.NoError(t, f.selector.Force(context.Background(), 1, 5))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Settle(context.Background(), 1)
			if err != nil {
				assert.ErrorIs(t, err, model.ErrSettlementInProgress)
			}
		}()
	}
	wg.Wait()

	_, err := f.svc.Settle(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.SettledCount(bet.ID))
	f.assertBalance(t, userNumber, "1320")
}

func TestSettle_EmptyRound(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.Settle(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.Outcome(0), report.Outcome)
	assert.Zero(t, report.Bets)
	assert.Equal(t, model.RoundSettled, f.round(t).Status)
}

func TestSettle_UnknownRound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Settle(context.Background(), 42)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
