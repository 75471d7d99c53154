package payout

import (
	"colorgame_backend/internal/config"
	"colorgame_backend/internal/model"
	"colorgame_backend/internal/service"

	"github.com/shopspring/decimal"
)

// Выплаты округляются до копеек
const payoutPlaces = 2

type category struct {
	members    map[model.Outcome]struct{}
	neutral    map[model.Outcome]struct{}
	multiplier decimal.Decimal
}

type serv struct {
	outcomes   []model.Outcome
	space      map[model.Outcome]struct{}
	numberMult decimal.Decimal
	refundMult decimal.Decimal
	minStake   decimal.Decimal
	categories map[model.Selection]category
}

// NewPayoutCalculator - таблица выплат из конфига игры
func NewPayoutCalculator(cfg config.GameConfig) service.PayoutCalculator {
	s := &serv{
		outcomes:   cfg.Outcomes(),
		space:      toSet(cfg.Outcomes()),
		numberMult: cfg.NumberMultiplier(),
		refundMult: cfg.NeutralRefundMultiplier(),
		minStake:   cfg.MinStake(),
		categories: make(map[model.Selection]category, len(cfg.Categories())),
	}
	for _, c := range cfg.Categories() {
		s.categories[c.Name.Normalize()] = category{
			members:    toSet(c.Numbers),
			neutral:    toSet(c.Neutral),
			multiplier: c.Multiplier,
		}
	}
	return s
}

func toSet(outcomes []model.Outcome) map[model.Outcome]struct{} {
	set := make(map[model.Outcome]struct{}, len(outcomes))
	for _, o := range outcomes {
		set[o] = struct{}{}
	}
	return set
}

// Payout - выплата по ставке при исходе outcome. Всегда >= 0.
// Порядок: точное число -> число входит в категорию -> нейтральный возврат -> 0
func (s *serv) Payout(bet *model.Bet, outcome model.Outcome) decimal.Decimal {
	if !bet.Stake.IsPositive() || !s.InSpace(outcome) {
		return decimal.Zero
	}

	sel := bet.Selection.Normalize()

	// Ставка на число
	if n, ok := sel.Number(); ok {
		if n == outcome {
			return bet.Stake.Mul(s.numberMult).Round(payoutPlaces)
		}
		return decimal.Zero
	}

	// Ставка на категорию
	cat, ok := s.categories[sel]
	if !ok {
		return decimal.Zero
	}
	if _, win := cat.members[outcome]; win {
		return bet.Stake.Mul(cat.multiplier).Round(payoutPlaces)
	}
	if _, refund := cat.neutral[outcome]; refund {
		return bet.Stake.Mul(s.refundMult).Round(payoutPlaces)
	}
	return decimal.Zero
}

// Liability - сумма выплат всем ставкам раунда при исходе outcome
func (s *serv) Liability(bets []model.Bet, outcome model.Outcome) decimal.Decimal {
	total := decimal.Zero
	for i := range bets {
		total = total.Add(s.Payout(&bets[i], outcome))
	}
	return total
}

func (s *serv) Outcomes() []model.Outcome {
	return s.outcomes
}

func (s *serv) InSpace(outcome model.Outcome) bool {
	_, ok := s.space[outcome]
	return ok
}

// IsValidSelection - число из пространства исходов или известная категория
func (s *serv) IsValidSelection(sel model.Selection) bool {
	sel = sel.Normalize()
	if n, ok := sel.Number(); ok {
		return s.InSpace(n)
	}
	_, ok := s.categories[sel]
	return ok
}

func (s *serv) MinStake() decimal.Decimal {
	return s.minStake
}
