package outcome

import (
	"colorgame_backend/internal/model"
	"colorgame_backend/internal/repository/memory"
	"colorgame_backend/internal/service/payout"
	"colorgame_backend/internal/testutil"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type brokenOverrides struct{}

func (brokenOverrides) GetForcedOutcome(context.Context, int64) (model.Outcome, bool, error) {
	return 0, false, errors.New("redis: connection refused")
}
func (brokenOverrides) SetForcedOutcome(context.Context, int64, model.Outcome) error { return nil }
func (brokenOverrides) ClearForcedOutcome(context.Context, int64) error              { return nil }

func newSelector(t *testing.T) (*serv, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	calc := payout.NewPayoutCalculator(testutil.NewGameConfig())
	return NewOutcomeSelector(calc, store, store, zap.NewNop()).(*serv), store
}

func stake(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// Ставки {A: 100 на 5, B: 200 на red}. Зеленые исходы 2,4,6,8 не платят никому,
// поэтому минимум выплат 0 и выбирается наименьший из них
func TestSelect_NumberAndRedScenario(t *testing.T) {
	sel, _ := newSelector(t)
	bets := []model.Bet{
		{ID: 1, UserID: 1, Stake: stake(100), Selection: "5"},
		{ID: 2, UserID: 2, Stake: stake(200), Selection: "red"},
	}

	draw, err := sel.Select(context.Background(), 1, bets)
	require.NoError(t, err)

	assert.Len(t, draw.Liabilities, 10)
	assert.True(t, stake(920).Equal(draw.Liabilities[5]))
	assert.True(t, stake(298).Equal(draw.Liabilities[0]))
	for _, o := range []model.Outcome{1, 3, 7, 9} {
		assert.True(t, stake(396).Equal(draw.Liabilities[o]), "outcome %d", o)
	}

	assert.Equal(t, model.Outcome(2), draw.Outcome)
	assert.False(t, draw.Forced)
	assert.True(t, draw.Liability().IsZero())
}

// Если зеленые исходы тоже платят, побеждает 0 с возвратом 298
func TestSelect_NeutralRefundIsCheapest(t *testing.T) {
	sel, _ := newSelector(t)
	bets := []model.Bet{
		{ID: 1, Stake: stake(100), Selection: "5"},
		{ID: 2, Stake: stake(200), Selection: "red"},
		{ID: 3, Stake: stake(200), Selection: "green"},
		{ID: 4, Stake: stake(100), Selection: "big"},
	}

	draw, err := sel.Select(context.Background(), 1, bets)
	require.NoError(t, err)

	assert.Equal(t, model.Outcome(0), draw.Outcome)
	assert.True(t, stake(298).Equal(draw.Liability()))
}

func TestSelect_TieGoesToLowestOutcome(t *testing.T) {
	sel, _ := newSelector(t)

	draw, err := sel.Select(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, model.Outcome(0), draw.Outcome)

	bets := []model.Bet{{ID: 1, Stake: stake(50), Selection: "0"}}
	draw, err = sel.Select(context.Background(), 1, bets)
	require.NoError(t, err)
	assert.Equal(t, model.Outcome(1), draw.Outcome)
}

func TestSelect_Deterministic(t *testing.T) {
	sel, _ := newSelector(t)
	bets := []model.Bet{
		{ID: 1, Stake: stake(30), Selection: "small"},
		{ID: 2, Stake: stake(70), Selection: "7"},
		{ID: 3, Stake: stake(15), Selection: "violet"},
		{ID: 4, Stake: stake(40), Selection: "green"},
	}

	first, err := sel.Select(context.Background(), 9, bets)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := sel.Select(context.Background(), 9, bets)
		require.NoError(t, err)
		assert.Equal(t, first.Outcome, again.Outcome)
	}
}

func TestSelect_ForcedOutcomeUsedVerbatim(t *testing.T) {
	sel, store := newSelector(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, store.CreateRound(ctx, &model.Round{ID: 3, OpenedAt: now, ClosesAt: now.Add(time.Minute), Status: model.RoundOpen}))

	require.NoError(t, sel.Force(ctx, 3, 5))

	bets := []model.Bet{{ID: 1, Stake: stake(100), Selection: "5"}}
	draw, err := sel.Select(ctx, 3, bets)
	require.NoError(t, err)
	assert.Equal(t, model.Outcome(5), draw.Outcome)
	assert.True(t, draw.Forced)
	assert.True(t, stake(920).Equal(draw.Liability()))

	// Select сам override не снимает
	_, ok, err := store.GetForcedOutcome(ctx, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, sel.ClearForced(ctx, 3))
	draw, err = sel.Select(ctx, 3, bets)
	require.NoError(t, err)
	assert.False(t, draw.Forced)
	assert.Equal(t, model.Outcome(0), draw.Outcome)
}

func TestSelect_ForcedOutsideSpaceFallsBack(t *testing.T) {
	sel, store := newSelector(t)
	ctx := context.Background()
	require.NoError(t, store.SetForcedOutcome(ctx, 4, 42))

	draw, err := sel.Select(ctx, 4, nil)
	require.NoError(t, err)
	assert.False(t, draw.Forced)
	assert.Equal(t, model.Outcome(0), draw.Outcome)
}

func TestSelect_OverrideStoreDown(t *testing.T) {
	calc := payout.NewPayoutCalculator(testutil.NewGameConfig())
	sel := NewOutcomeSelector(calc, memory.NewStore(), brokenOverrides{}, zap.NewNop())

	_, err := sel.Select(context.Background(), 1, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrSettlementTransient)
}

func TestForce_Validation(t *testing.T) {
	sel, store := newSelector(t)
	ctx := context.Background()
	now := time.Now()

	assert.ErrorIs(t, sel.Force(ctx, 1, 10), model.ErrInvalidOutcome)
	assert.ErrorIs(t, sel.Force(ctx, 1, 3), model.ErrNotFound)

	require.NoError(t, store.CreateRound(ctx, &model.Round{ID: 1, OpenedAt: now, ClosesAt: now, Status: model.RoundOpen}))
	ok, err := store.TransitionStatus(ctx, 1, model.RoundOpen, model.RoundSettling, now)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = store.SetOutcome(ctx, 1, 4, false)
	require.NoError(t, err)
	require.True(t, ok)

	assert.ErrorIs(t, sel.Force(ctx, 1, 3), model.ErrRoundNotOpen)
}
