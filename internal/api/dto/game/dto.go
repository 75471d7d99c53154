package game

import (
	"time"

	"github.com/shopspring/decimal"
)

type PlaceBetRequest struct {
	Stake     decimal.Decimal `json:"stake"`     // Сумма ставки, до 2 знаков
	Selection string          `json:"selection"` // Число "0".."9" или категория: red, green, violet, big, small
}

type BetResponse struct {
	ID        int64           `json:"id"`
	RoundID   int64           `json:"round_id"`
	Selection string          `json:"selection"`
	Stake     decimal.Decimal `json:"stake"`
	Status    string          `json:"status"`
	PlacedAt  time.Time       `json:"placed_at"`
}

type RoundResponse struct {
	RoundID  int64     `json:"round_id"`
	Status   string    `json:"status"`
	OpenedAt time.Time `json:"opened_at"`
	ClosesAt time.Time `json:"closes_at"`
	TimeLeft int64     `json:"time_left"` // Секунд до закрытия
	CanBet   bool      `json:"can_bet"`
}

type HistoryItem struct {
	RoundID   int64      `json:"round_id"`
	Outcome   int        `json:"outcome"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
}

type HistoryResponse struct {
	Rounds []HistoryItem `json:"rounds"`
}
