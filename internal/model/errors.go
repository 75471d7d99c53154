package model

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidBet        = errors.New("invalid bet")
	ErrRoundNotOpen      = errors.New("round is not open")
	ErrWindowClosed      = errors.New("betting window is closed")
	ErrRoundExists       = errors.New("round already exists")
	ErrRoundStillOpen    = errors.New("round is still accepting bets")
	ErrInvalidOutcome    = errors.New("outcome is outside of the outcome space")

	// ErrSettlementTransient - хранилище или кошелек недоступны во время расчета.
	// Раунд остается в settling и будет дорасчитан
	ErrSettlementTransient = errors.New("settlement interrupted")
	// ErrSettlementInProgress - раунд уже рассчитывается другим процессом
	ErrSettlementInProgress = errors.New("settlement in progress")

	ErrCommissionCreditFailed = errors.New("commission credit failed")
	ErrInvariantViolation     = errors.New("invariant violation")
)
