package admin

import "github.com/shopspring/decimal"

type ForceOutcomeRequest struct {
	Outcome int `json:"outcome"` // 0..9
}

type SettlementResponse struct {
	RoundID        int64           `json:"round_id"`
	Outcome        int             `json:"outcome"`
	Forced         bool            `json:"forced"`
	Bets           int             `json:"bets"`
	Won            int             `json:"won"`
	Lost           int             `json:"lost"`
	Stake          decimal.Decimal `json:"stake"`
	Payout         decimal.Decimal `json:"payout"`
	Failures       int             `json:"failures"`
	AlreadySettled bool            `json:"already_settled"`
}

type BetSummaryResponse struct {
	RoundID int64                      `json:"round_id"`
	Totals  map[string]decimal.Decimal `json:"totals"` // Сумма ставок по каждому выбору
}

type DailyYieldRequest struct {
	Day string `json:"day,omitempty"` // YYYY-MM-DD, по умолчанию сегодня (UTC)
}

type DailyYieldResponse struct {
	Day       string          `json:"day"`
	Processed int             `json:"processed"`
	Failed    int             `json:"failed"`
	Total     decimal.Decimal `json:"total"`
}

type RetryCommissionsResponse struct {
	Applied int `json:"applied"`
}
