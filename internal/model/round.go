package model

import "time"

// RoundStatus - статус раунда. Меняется только вперед: open -> settling -> settled
type RoundStatus string

const (
	RoundOpen     RoundStatus = "open"
	RoundSettling RoundStatus = "settling"
	RoundSettled  RoundStatus = "settled"
)

// CanTransitionTo - разрешен ли переход в следующий статус.
// Пропуск статуса и откат назад запрещены
func (s RoundStatus) CanTransitionTo(next RoundStatus) bool {
	switch s {
	case RoundOpen:
		return next == RoundSettling
	case RoundSettling:
		return next == RoundSettled
	default:
		return false
	}
}

// Round - один временной интервал приема ставок с единственным выигрышным исходом
type Round struct {
	ID       int64
	OpenedAt time.Time
	ClosesAt time.Time
	Status   RoundStatus

	// Outcome - зафиксированный исход. Записывается один раз в статусе settling,
	// до любого изменения балансов, и больше не меняется
	Outcome *Outcome
	// Forced - исход задан оператором
	Forced bool

	SettledAt *time.Time
}

// AcceptsBetsAt - проверка, можно ли принять ставку в момент now.
// Ставка принимается только в open и не позже чем за margin до закрытия
func (r *Round) AcceptsBetsAt(now time.Time, margin time.Duration) error {
	if r.Status != RoundOpen {
		return ErrRoundNotOpen
	}
	if now.After(r.ClosesAt.Add(-margin)) {
		return ErrWindowClosed
	}
	return nil
}

// WinningOutcome - выигрышный исход, виден только после расчета раунда
func (r *Round) WinningOutcome() (Outcome, bool) {
	if r.Status != RoundSettled || r.Outcome == nil {
		return 0, false
	}
	return *r.Outcome, true
}

// RoundView - текущий раунд глазами игрока
type RoundView struct {
	Round    Round
	TimeLeft time.Duration
	CanBet   bool
}
