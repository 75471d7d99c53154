package env

import (
	"colorgame_backend/internal/config"
	"colorgame_backend/internal/model"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

type categorySection struct {
	Name       string          `yaml:"name"`
	Numbers    []int           `yaml:"numbers"`
	Neutral    []int           `yaml:"neutral"`
	Multiplier decimal.Decimal `yaml:"multiplier"`
}

type gameSection struct {
	Outcomes                []int             `yaml:"outcomes"`
	NumberMultiplier        decimal.Decimal   `yaml:"number_multiplier"`
	NeutralRefundMultiplier decimal.Decimal   `yaml:"neutral_refund_multiplier"`
	MinStake                decimal.Decimal   `yaml:"min_stake"`
	Categories              []categorySection `yaml:"categories"`
}

type gameConfig struct {
	outcomes   []model.Outcome
	numberMult decimal.Decimal
	refundMult decimal.Decimal
	minStake   decimal.Decimal
	categories []model.Category
}

// NewGameConfigFromYAML - читает секцию game из config.yaml
func NewGameConfigFromYAML(path string) (config.GameConfig, error) {
	file, err := readYAML(path)
	if err != nil {
		return nil, err
	}
	return newGameConfig(file.Game)
}

func newGameConfig(sec gameSection) (config.GameConfig, error) {
	if len(sec.Outcomes) == 0 {
		return nil, errors.New("game: outcomes are empty")
	}
	if !sec.NumberMultiplier.IsPositive() {
		return nil, errors.New("game: number_multiplier must be positive")
	}
	if sec.NeutralRefundMultiplier.IsNegative() {
		return nil, errors.New("game: neutral_refund_multiplier must not be negative")
	}
	if sec.MinStake.IsNegative() {
		return nil, errors.New("game: min_stake must not be negative")
	}

	space := make(map[int]struct{}, len(sec.Outcomes))
	outcomes := make([]model.Outcome, 0, len(sec.Outcomes))
	for _, o := range sec.Outcomes {
		if o < 0 {
			return nil, fmt.Errorf("game: negative outcome %d", o)
		}
		if _, dup := space[o]; dup {
			return nil, fmt.Errorf("game: duplicate outcome %d", o)
		}
		space[o] = struct{}{}
		outcomes = append(outcomes, model.Outcome(o))
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i] < outcomes[j] })

	seen := make(map[model.Selection]struct{}, len(sec.Categories))
	categories := make([]model.Category, 0, len(sec.Categories))
	for _, c := range sec.Categories {
		name := model.Selection(c.Name).Normalize()
		if name == "" {
			return nil, errors.New("game: category without name")
		}
		if _, isNumber := name.Number(); isNumber {
			return nil, fmt.Errorf("game: category %q clashes with a number selection", name)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("game: duplicate category %q", name)
		}
		seen[name] = struct{}{}
		if !c.Multiplier.IsPositive() {
			return nil, fmt.Errorf("game: category %q multiplier must be positive", name)
		}

		cat := model.Category{Name: name, Multiplier: c.Multiplier}
		for _, n := range c.Numbers {
			if _, ok := space[n]; !ok {
				return nil, fmt.Errorf("game: category %q references unknown outcome %d", name, n)
			}
			cat.Numbers = append(cat.Numbers, model.Outcome(n))
		}
		for _, n := range c.Neutral {
			if _, ok := space[n]; !ok {
				return nil, fmt.Errorf("game: category %q references unknown neutral outcome %d", name, n)
			}
			cat.Neutral = append(cat.Neutral, model.Outcome(n))
		}
		categories = append(categories, cat)
	}

	return &gameConfig{
		outcomes:   outcomes,
		numberMult: sec.NumberMultiplier,
		refundMult: sec.NeutralRefundMultiplier,
		minStake:   sec.MinStake,
		categories: categories,
	}, nil
}

func (g *gameConfig) Outcomes() []model.Outcome {
	return g.outcomes
}

func (g *gameConfig) NumberMultiplier() decimal.Decimal {
	return g.numberMult
}

func (g *gameConfig) NeutralRefundMultiplier() decimal.Decimal {
	return g.refundMult
}

func (g *gameConfig) MinStake() decimal.Decimal {
	return g.minStake
}

func (g *gameConfig) Categories() []model.Category {
	return g.categories
}
