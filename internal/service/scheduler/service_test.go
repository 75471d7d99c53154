package scheduler

import (
	"colorgame_backend/internal/metrics"
	"colorgame_backend/internal/model"
	"colorgame_backend/internal/repository/memory"
	"colorgame_backend/internal/service"
	"colorgame_backend/internal/service/commission"
	"colorgame_backend/internal/service/outcome"
	"colorgame_backend/internal/service/payout"
	"colorgame_backend/internal/service/settlement"
	"colorgame_backend/internal/testutil"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type fixture struct {
	sched service.RoundScheduler
	store *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	m := metrics.New(prometheus.NewRegistry())
	log := zap.NewNop()
	roundCfg := &testutil.RoundConfig{
		Duration: 50 * time.Millisecond,
		Margin:   0,
		Retry:    10 * time.Millisecond,
		TTL:      time.Second,
	}

	calc := payout.NewPayoutCalculator(testutil.NewGameConfig())
	commissions := commission.NewCommissionService(commission.Deps{
		Cfg:         testutil.NewCommissionConfig(),
		Referrals:   store,
		Commissions: store,
		Ledger:      store,
		TxManager:   store.TxManager(),
		Metrics:     m,
		Log:         log,
	})
	settle := settlement.NewSettlementService(settlement.Deps{
		RoundCfg:   roundCfg,
		Calc:       calc,
		Selector:   outcome.NewOutcomeSelector(calc, store, store, log),
		Commission: commissions,
		Rounds:     store,
		Bets:       store,
		Ledger:     store,
		Lock:       store,
		TxManager:  store.TxManager(),
		Metrics:    m,
		Log:        log,
	})

	sched := NewRoundScheduler(Deps{
		RoundCfg:   roundCfg,
		Rounds:     store,
		Settlement: settle,
		Commission: commissions,
		Log:        log,
	})
	store.AddUser(1, decimal.NewFromInt(500))
	return &fixture{sched: sched, store: store}
}

func (f *fixture) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.sched.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
}

// stuckRound - раунд в settling с выигравшей ставкой, выплата по которой падает
func (f *fixture) stuckRound(t *testing.T, id int64) *model.Bet {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, f.store.CreateRound(ctx, &model.Round{
		ID:       id,
		OpenedAt: now.Add(-time.Minute),
		ClosesAt: now.Add(time.Minute),
		Status:   model.RoundOpen,
	}))

	bet := &model.Bet{
		RoundID:   id,
		UserID:    1,
		Stake:     decimal.NewFromInt(100),
		Selection: "5",
		PlacedAt:  now,
		Status:    model.BetPending,
		Payout:    decimal.Zero,
	}
	require.NoError(t, f.store.InsertBet(ctx, bet, 0))
	require.NoError(t, f.store.SetForcedOutcome(ctx, id, 5))

	ok, err := f.store.TransitionStatus(ctx, id, model.RoundOpen, model.RoundSettling, now)
	require.NoError(t, err)
	require.True(t, ok)

	f.store.SetCreditHook(func(_ int64, ref string) error {
		if ref == bet.PayoutRef() {
			return errors.New("ledger unavailable")
		}
		return nil
	})
	return bet
}

func (f *fixture) status(id int64) model.RoundStatus {
	r, err := f.store.GetRound(context.Background(), id)
	if err != nil {
		return ""
	}
	return r.Status
}

func TestStartCycle_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.sched.StartCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, model.RoundOpen, first.Status)
	assert.Equal(t, 50*time.Millisecond, first.ClosesAt.Sub(first.OpenedAt))

	second, err := f.sched.StartCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	open, err := f.store.ListRoundsByStatus(ctx, model.RoundOpen)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestStartCycle_NextID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.sched.StartCycle(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, err := f.sched.Retry(ctx, first.ID)
		return err == nil
	}, waitFor, tick)

	next, err := f.sched.StartCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID+1, next.ID)
}

func TestRun_SettlesAndOpensNextRound(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	assert.Eventually(t, func() bool {
		rounds, err := f.store.ListSettledRounds(context.Background(), 10)
		return err == nil && len(rounds) >= 2
	}, waitFor, tick)

	open, err := f.store.ListRoundsByStatus(context.Background(), model.RoundOpen)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(open), 1)
}

func TestRun_ResumesSettlingRound(t *testing.T) {
	f := newFixture(t)
	bet := f.stuckRound(t, 1)
	f.store.SetCreditHook(nil)

	f.run(t)

	assert.Eventually(t, func() bool {
		return f.status(1) == model.RoundSettled
	}, waitFor, tick)
	assert.Equal(t, 1, f.store.SettledCount(bet.ID))

	// 500 + 920, ставка вставлена без списания
	b, err := f.store.GetBalance(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1420).Equal(b))
}

func TestRun_StuckRoundDefersClose(t *testing.T) {
	f := newFixture(t)
	f.stuckRound(t, 1)

	f.run(t)

	assert.Eventually(t, func() bool {
		return f.status(2) == model.RoundOpen
	}, waitFor, tick)
	assert.Never(t, func() bool {
		return f.status(2) != model.RoundOpen
	}, 200*time.Millisecond, tick)
	assert.Equal(t, model.RoundSettling, f.status(1))

	f.store.SetCreditHook(nil)

	assert.Eventually(t, func() bool {
		return f.status(1) == model.RoundSettled && f.status(2) == model.RoundSettled
	}, waitFor, tick)
}

func TestRetry_UnknownRound(t *testing.T) {
	f := newFixture(t)

	_, err := f.sched.Retry(context.Background(), 99)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRetry_OpenRoundWindowRunning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.CreateRound(ctx, &model.Round{
		ID:       1,
		OpenedAt: time.Now(),
		ClosesAt: time.Now().Add(time.Hour),
		Status:   model.RoundOpen,
	}))

	_, err := f.sched.Retry(ctx, 1)
	assert.ErrorIs(t, err, model.ErrRoundStillOpen)
	assert.Equal(t, model.RoundOpen, f.status(1))
}

func TestRetry_StuckRoundBlocksClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stuckRound(t, 1)

	require.NoError(t, f.store.CreateRound(ctx, &model.Round{
		ID:       2,
		OpenedAt: time.Now(),
		ClosesAt: time.Now().Add(time.Hour),
		Status:   model.RoundOpen,
	}))

	_, err := f.sched.Retry(ctx, 2)
	assert.ErrorIs(t, err, model.ErrRoundStillOpen)
	assert.Equal(t, model.RoundOpen, f.status(2))
	assert.Equal(t, model.RoundSettling, f.status(1))
}

func TestRetry_ElapsedRoundWaitsForStuckRound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stuckRound(t, 1)

	require.NoError(t, f.store.CreateRound(ctx, &model.Round{
		ID:       2,
		OpenedAt: time.Now().Add(-2 * time.Minute),
		ClosesAt: time.Now().Add(-time.Minute),
		Status:   model.RoundOpen,
	}))

	_, err := f.sched.Retry(ctx, 2)
	assert.ErrorIs(t, err, model.ErrSettlementInProgress)
	assert.Equal(t, model.RoundOpen, f.status(2))
	assert.Equal(t, model.RoundSettling, f.status(1))

	// ретрай самого зависшего раунда разрешен
	_, err = f.sched.Retry(ctx, 1)
	assert.ErrorIs(t, err, model.ErrSettlementTransient)

	f.store.SetCreditHook(nil)
	report, err := f.sched.Retry(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.RoundID)
	assert.Equal(t, model.RoundSettled, f.status(1))
	assert.Equal(t, model.RoundSettled, f.status(2))
}
