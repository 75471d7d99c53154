package model

import "github.com/shopspring/decimal"

// SettlementReport - итог расчета раунда
type SettlementReport struct {
	RoundID  int64
	Outcome  Outcome
	Forced   bool
	Bets     int
	Won      int
	Lost     int
	Stake    decimal.Decimal
	Payout   decimal.Decimal
	Failures int
	// AlreadySettled - раунд уже был рассчитан, повторный вызов ничего не сделал
	AlreadySettled bool
}
