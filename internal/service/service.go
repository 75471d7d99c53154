package service

import (
	"colorgame_backend/internal/model"
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PayoutCalculator - таблица выплат. Чистая функция, без состояния
type PayoutCalculator interface {
	Payout(bet *model.Bet, outcome model.Outcome) decimal.Decimal
	// Liability - сколько выплатили бы всем ставкам при исходе outcome
	Liability(bets []model.Bet, outcome model.Outcome) decimal.Decimal
	Outcomes() []model.Outcome
	InSpace(outcome model.Outcome) bool
	IsValidSelection(sel model.Selection) bool
	MinStake() decimal.Decimal
}

type OutcomeSelector interface {
	// Select - исход для раунда: заданный оператором или минимизирующий выплаты
	Select(ctx context.Context, roundID int64, bets []model.Bet) (*model.Draw, error)
	Force(ctx context.Context, roundID int64, outcome model.Outcome) error
	ClearForced(ctx context.Context, roundID int64) error
}

type CommissionService interface {
	// Distribute - начисляет реферальные вверх по цепочке от OriginUserID
	Distribute(ctx context.Context, ev model.ProfitEvent) (*model.CascadeReport, error)
	// Enqueue - сохраняет событие как ожидающее каскада. Вызывается в транзакции,
	// которая зачисляет саму прибыль
	Enqueue(ctx context.Context, ev model.ProfitEvent) error
	// RetryFailed - дорасчитывает ожидающие каскады и повторяет неудачные начисления,
	// возвращает число успешных
	RetryFailed(ctx context.Context) (int, error)
}

type BetService interface {
	PlaceBet(ctx context.Context, req model.PlaceBet) (*model.Bet, error)
	CurrentRound(ctx context.Context) (*model.RoundView, error)
	History(ctx context.Context, limit int) ([]model.Round, error)
	OpenRoundSummary(ctx context.Context) (*model.RoundSummary, error)
}

type SettlementService interface {
	// Settle - расчет раунда. Повторный вызов безопасен
	Settle(ctx context.Context, roundID int64) (*model.SettlementReport, error)
}

type RoundScheduler interface {
	StartCycle(ctx context.Context) (*model.Round, error)
	Run(ctx context.Context) error
	Retry(ctx context.Context, roundID int64) (*model.SettlementReport, error)
}

type YieldService interface {
	DistributeDaily(ctx context.Context, day time.Time) (*model.YieldReport, error)
}
