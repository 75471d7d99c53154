package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type InvestmentStatus string

const (
	InvestmentActive    InvestmentStatus = "active"
	InvestmentCompleted InvestmentStatus = "completed"
)

// Investment - купленный инвестиционный план с ежедневным доходом
type Investment struct {
	ID          int64
	UserID      int64
	DailyIncome decimal.Decimal
	DaysLeft    int
	Status      InvestmentStatus
	LastPaidOn  *time.Time
}

// YieldRef - идентификатор выплаты дохода за день, он же источник реферальных
func (i *Investment) YieldRef(day time.Time) string {
	return "yield:" + strconv.FormatInt(i.ID, 10) + ":" + day.Format(time.DateOnly)
}

type YieldReport struct {
	Day       time.Time
	Processed int
	Failed    int
	Total     decimal.Decimal
}
