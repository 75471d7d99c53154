package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// BetStatus - статус ставки, выставляется ровно один раз при расчете раунда
type BetStatus string

const (
	BetPending BetStatus = "pending"
	BetWon     BetStatus = "won"
	BetLost    BetStatus = "lost"
)

type Bet struct {
	ID        int64
	RoundID   int64
	UserID    int64
	Stake     decimal.Decimal
	Selection Selection
	PlacedAt  time.Time
	Status    BetStatus
	Payout    decimal.Decimal
}

// SourceEventID - идентификатор события прибыли для реферальных начислений
func (b *Bet) SourceEventID() string {
	return "bet:" + strconv.FormatInt(b.ID, 10)
}

// StakeRef - ключ идемпотентности списания ставки
func (b *Bet) StakeRef() string {
	return b.SourceEventID() + ":stake"
}

// PayoutRef - ключ идемпотентности выплаты выигрыша
func (b *Bet) PayoutRef() string {
	return b.SourceEventID() + ":payout"
}

// Profit - чистый выигрыш (выплата минус ставка), не меньше нуля
func (b *Bet) Profit() decimal.Decimal {
	p := b.Payout.Sub(b.Stake)
	if p.IsNegative() {
		return decimal.Zero
	}
	return p
}

// PlaceBet - запрос на ставку
type PlaceBet struct {
	UserID    int64
	Stake     decimal.Decimal
	Selection Selection
}

// RoundSummary - суммы ставок по выборам в открытом раунде
type RoundSummary struct {
	RoundID int64
	Totals  map[Selection]decimal.Decimal
}
