package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRoundStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to RoundStatus
		want     bool
	}{
		{RoundOpen, RoundSettling, true},
		{RoundSettling, RoundSettled, true},
		{RoundOpen, RoundSettled, false},
		{RoundSettling, RoundOpen, false},
		{RoundSettled, RoundOpen, false},
		{RoundSettled, RoundSettling, false},
		{RoundOpen, RoundOpen, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestRound_AcceptsBetsAt(t *testing.T) {
	closes := time.Date(2026, 10, 18, 12, 1, 0, 0, time.UTC)
	r := &Round{ID: 1, Status: RoundOpen, ClosesAt: closes}
	margin := 5 * time.Second

	assert.NoError(t, r.AcceptsBetsAt(closes.Add(-10*time.Second), margin))
	assert.NoError(t, r.AcceptsBetsAt(closes.Add(-margin), margin))
	assert.ErrorIs(t, r.AcceptsBetsAt(closes.Add(-4*time.Second), margin), ErrWindowClosed)

	r.Status = RoundSettling
	assert.ErrorIs(t, r.AcceptsBetsAt(closes.Add(-time.Minute), margin), ErrRoundNotOpen)
}

func TestRound_WinningOutcome(t *testing.T) {
	o := Outcome(7)
	r := &Round{Status: RoundSettling, Outcome: &o}

	_, ok := r.WinningOutcome()
	assert.False(t, ok)

	r.Status = RoundSettled
	got, ok := r.WinningOutcome()
	assert.True(t, ok)
	assert.Equal(t, Outcome(7), got)
}

func TestSelection(t *testing.T) {
	assert.Equal(t, Selection("red"), Selection("  ReD ").Normalize())

	n, ok := Selection("7").Number()
	assert.True(t, ok)
	assert.Equal(t, Outcome(7), n)

	for _, s := range []Selection{"07", "-1", "red", "", "+3"} {
		_, ok := s.Number()
		assert.False(t, ok, "%q", s)
	}
}

func TestBet_Profit(t *testing.T) {
	b := &Bet{ID: 12, Stake: decimal.NewFromInt(100), Payout: decimal.NewFromInt(198)}
	assert.True(t, decimal.NewFromInt(98).Equal(b.Profit()))

	b.Payout = decimal.NewFromInt(149)
	assert.True(t, decimal.NewFromInt(49).Equal(b.Profit()))

	b.Payout = decimal.Zero
	assert.True(t, b.Profit().IsZero())

	assert.Equal(t, "bet:12:payout", b.PayoutRef())
	assert.Equal(t, "bet:12:stake", b.StakeRef())
}
