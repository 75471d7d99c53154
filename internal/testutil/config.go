// Package testutil - конфиги и часы для тестов сервисов
package testutil

import (
	"colorgame_backend/internal/model"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// GameConfig - таблица выплат как в config.yaml
type GameConfig struct {
	OutcomeSpace []model.Outcome
	NumberMult   decimal.Decimal
	RefundMult   decimal.Decimal
	Cats         []model.Category
	Min          decimal.Decimal
}

func NewGameConfig() *GameConfig {
	return &GameConfig{
		OutcomeSpace: []model.Outcome{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		NumberMult:   d("9.2"),
		RefundMult:   d("1.49"),
		Min:          d("10"),
		Cats: []model.Category{
			{Name: "red", Numbers: []model.Outcome{1, 3, 7, 9}, Neutral: []model.Outcome{0}, Multiplier: d("1.98")},
			{Name: "green", Numbers: []model.Outcome{2, 4, 6, 8}, Neutral: []model.Outcome{5}, Multiplier: d("1.98")},
			{Name: "violet", Numbers: []model.Outcome{0, 5}, Multiplier: d("4.5")},
			{Name: "big", Numbers: []model.Outcome{5, 6, 7, 8, 9}, Multiplier: d("1.98")},
			{Name: "small", Numbers: []model.Outcome{0, 1, 2, 3, 4}, Multiplier: d("1.98")},
		},
	}
}

func (g *GameConfig) Outcomes() []model.Outcome                { return g.OutcomeSpace }
func (g *GameConfig) NumberMultiplier() decimal.Decimal        { return g.NumberMult }
func (g *GameConfig) NeutralRefundMultiplier() decimal.Decimal { return g.RefundMult }
func (g *GameConfig) Categories() []model.Category             { return g.Cats }
func (g *GameConfig) MinStake() decimal.Decimal                { return g.Min }

// CommissionConfig - 30% / 2% / 1%
type CommissionConfig struct {
	LevelRates []decimal.Decimal
	Levels     int
}

func NewCommissionConfig() *CommissionConfig {
	return &CommissionConfig{
		LevelRates: []decimal.Decimal{d("0.30"), d("0.02"), d("0.01")},
		Levels:     3,
	}
}

func (c *CommissionConfig) Rates() []decimal.Decimal { return c.LevelRates }
func (c *CommissionConfig) MaxLevels() int           { return c.Levels }

type RoundConfig struct {
	Duration time.Duration
	Margin   time.Duration
	Retry    time.Duration
	TTL      time.Duration
}

func NewRoundConfig() *RoundConfig {
	return &RoundConfig{
		Duration: 60 * time.Second,
		Margin:   5 * time.Second,
		Retry:    5 * time.Second,
		TTL:      30 * time.Second,
	}
}

func (r *RoundConfig) RoundDuration() time.Duration { return r.Duration }
func (r *RoundConfig) BetLockMargin() time.Duration { return r.Margin }
func (r *RoundConfig) RetryInterval() time.Duration { return r.Retry }
func (r *RoundConfig) LockTTL() time.Duration       { return r.TTL }

// Clock - управляемые часы
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *Clock) Advance(dur time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(dur)
}
