package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type CommissionStatus string

const (
	CommissionApplied CommissionStatus = "applied"
	CommissionFailed  CommissionStatus = "failed"
)

// CommissionEvent - одно начисление одному аплайну за одно событие прибыли.
// Пара (SourceEventID, BeneficiaryUserID) уникальна
type CommissionEvent struct {
	SourceEventID     string
	BeneficiaryUserID int64
	OriginUserID      int64
	Level             int
	Amount            decimal.Decimal
	Status            CommissionStatus
	AppliedAt         *time.Time
	Attempts          int
	LastError         string
}

// LedgerRef - ключ идемпотентности начисления в кошелек
func (e *CommissionEvent) LedgerRef() string {
	return "commission:" + e.SourceEventID + ":" + strconv.FormatInt(e.BeneficiaryUserID, 10)
}

// ProfitEvent - событие, с которого платятся реферальные (выигрыш ставки, дневной доход)
type ProfitEvent struct {
	SourceEventID string
	OriginUserID  int64
	Amount        decimal.Decimal
}

// CascadeStop - почему остановился обход цепочки
type CascadeStop string

const (
	StopChainEnd   CascadeStop = "chain_end"
	StopDepthBound CascadeStop = "depth_bound"
	StopCycle      CascadeStop = "cycle"
)

type CascadeReport struct {
	SourceEventID string
	Credited      []CommissionEvent
	Failed        []CommissionEvent
	// Skipped - уровни, начисленные ранее (повторный запуск)
	Skipped int
	Stop    CascadeStop
}
