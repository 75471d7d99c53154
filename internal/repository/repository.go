package repository

import (
	"colorgame_backend/internal/model"
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerRepository - кошелек пользователей. Каждая операция атомарна,
// ref - ключ идемпотентности: повторная операция с тем же ref ничего не меняет
type LedgerRepository interface {
	Debit(ctx context.Context, userID int64, amount decimal.Decimal, ref string) error
	Credit(ctx context.Context, userID int64, amount decimal.Decimal, ref string) error
	GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error)
}

type RoundRepository interface {
	CreateRound(ctx context.Context, round *model.Round) error
	GetRound(ctx context.Context, id int64) (*model.Round, error)
	GetOpenRound(ctx context.Context) (*model.Round, error)
	LastRoundID(ctx context.Context) (int64, error)

	// SetOutcome - фиксирует исход раунда в settling, только если он еще не зафиксирован
	SetOutcome(ctx context.Context, id int64, outcome model.Outcome, forced bool) (bool, error)
	// TransitionStatus - compare-and-set статуса, false если раунд не в статусе from
	TransitionStatus(ctx context.Context, id int64, from, to model.RoundStatus, at time.Time) (bool, error)

	ListRoundsByStatus(ctx context.Context, status model.RoundStatus) ([]model.Round, error)
	ListSettledRounds(ctx context.Context, limit int) ([]model.Round, error)
}

type BetRepository interface {
	// InsertBet - вставка ставки. Раунд должен быть open и до закрытия должно оставаться
	// не меньше margin (относительно bet.PlacedAt). Проверка и вставка атомарны
	InsertBet(ctx context.Context, bet *model.Bet, margin time.Duration) error
	ListBetsForRound(ctx context.Context, roundID int64) ([]model.Bet, error)
	// MarkBetSettled - pending -> won/lost, false если ставка уже рассчитана
	MarkBetSettled(ctx context.Context, betID int64, status model.BetStatus, payout decimal.Decimal) (bool, error)
	SummaryForRound(ctx context.Context, roundID int64) (map[model.Selection]decimal.Decimal, error)
}

type ReferralRepository interface {
	GetReferrer(ctx context.Context, userID int64) (int64, bool, error)
}

type CommissionRepository interface {
	// InsertCommission - false если событие для (source, beneficiary) уже есть
	InsertCommission(ctx context.Context, ev *model.CommissionEvent) (bool, error)
	// UpsertFailedCommission - записывает неудачное начисление для повторной попытки
	UpsertFailedCommission(ctx context.Context, ev *model.CommissionEvent) error
	ListFailedCommissions(ctx context.Context, limit int) ([]model.CommissionEvent, error)
	// MarkCommissionApplied - failed -> applied
	MarkCommissionApplied(ctx context.Context, sourceEventID string, beneficiaryID int64, at time.Time) (bool, error)
	ListCommissionsBySource(ctx context.Context, sourceEventID string) ([]model.CommissionEvent, error)

	// InsertPendingCascade - отметка, что каскад по событию еще не пройден. Повтор ничего не меняет
	InsertPendingCascade(ctx context.Context, ev *model.ProfitEvent) error
	ListPendingCascades(ctx context.Context, limit int) ([]model.ProfitEvent, error)
	DeletePendingCascade(ctx context.Context, sourceEventID string) error
}

// OverrideRepository - исход раунда, заданный оператором
type OverrideRepository interface {
	GetForcedOutcome(ctx context.Context, roundID int64) (model.Outcome, bool, error)
	SetForcedOutcome(ctx context.Context, roundID int64, outcome model.Outcome) error
	ClearForcedOutcome(ctx context.Context, roundID int64) error
}

type InvestmentRepository interface {
	ListDueInvestments(ctx context.Context, day time.Time) ([]model.Investment, error)
	// MarkInvestmentPaid - списывает один день плана, false если за day уже выплачено
	MarkInvestmentPaid(ctx context.Context, id int64, day time.Time) (bool, error)
}

// SettlementLock - распределенная блокировка расчета раунда
type SettlementLock interface {
	// Acquire - model.ErrSettlementInProgress если блокировка занята
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}
