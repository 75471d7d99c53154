// Package events - события раундов для внешних потребителей (Kafka)
package events

import (
	"colorgame_backend/internal/model"
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypeRoundSettled     = "round_settled"
	TypeCommissionFailed = "commission_failed"
)

type RoundSettled struct {
	RoundID   int64           `json:"round_id"`
	Outcome   int             `json:"outcome"`
	Forced    bool            `json:"forced"`
	Bets      int             `json:"bets"`
	Won       int             `json:"won"`
	Stake     decimal.Decimal `json:"stake"`
	Payout    decimal.Decimal `json:"payout"`
	SettledAt time.Time       `json:"settled_at"`
}

type CommissionFailed struct {
	SourceEventID     string          `json:"source_event_id"`
	BeneficiaryUserID int64           `json:"beneficiary_user_id"`
	Level             int             `json:"level"`
	Amount            decimal.Decimal `json:"amount"`
	Error             string          `json:"error"`
}

// Envelope - то, что уходит в топик
type Envelope struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	TsUnixMs int64  `json:"ts_unix_ms"`
	Payload  any    `json:"payload"`
}

type Publisher interface {
	PublishRoundSettled(ctx context.Context, e RoundSettled) error
	PublishCommissionFailed(ctx context.Context, e CommissionFailed) error
}

func NewRoundSettled(r *model.SettlementReport, at time.Time) RoundSettled {
	return RoundSettled{
		RoundID:   r.RoundID,
		Outcome:   int(r.Outcome),
		Forced:    r.Forced,
		Bets:      r.Bets,
		Won:       r.Won,
		Stake:     r.Stake,
		Payout:    r.Payout,
		SettledAt: at,
	}
}

func NewCommissionFailed(ev *model.CommissionEvent) CommissionFailed {
	return CommissionFailed{
		SourceEventID:     ev.SourceEventID,
		BeneficiaryUserID: ev.BeneficiaryUserID,
		Level:             ev.Level,
		Amount:            ev.Amount,
		Error:             ev.LastError,
	}
}

// Noop - когда Kafka не настроена
type Noop struct{}

func (Noop) PublishRoundSettled(context.Context, RoundSettled) error { return nil }

func (Noop) PublishCommissionFailed(context.Context, CommissionFailed) error { return nil }
