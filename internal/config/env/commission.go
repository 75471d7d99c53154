package env

import (
	"colorgame_backend/internal/config"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type commissionSection struct {
	MaxLevels int               `yaml:"max_levels"`
	Rates     []decimal.Decimal `yaml:"rates"`
}

type commissionConfig struct {
	maxLevels int
	rates     []decimal.Decimal
}

// NewCommissionConfigFromYAML - читает секцию commission из config.yaml.
// max_levels = 0 означает "столько уровней, сколько ставок в rates"
func NewCommissionConfigFromYAML(path string) (config.CommissionConfig, error) {
	file, err := readYAML(path)
	if err != nil {
		return nil, err
	}
	return newCommissionConfig(file.Commission)
}

func newCommissionConfig(sec commissionSection) (config.CommissionConfig, error) {
	if len(sec.Rates) == 0 {
		return nil, errors.New("commission: rates are empty")
	}
	for i, r := range sec.Rates {
		if r.IsNegative() || r.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("commission: level %d rate %s out of [0, 1]", i+1, r)
		}
	}

	maxLevels := sec.MaxLevels
	if maxLevels == 0 {
		maxLevels = len(sec.Rates)
	}
	if maxLevels < 0 || maxLevels > len(sec.Rates) {
		return nil, fmt.Errorf("commission: max_levels %d must be within 1..%d", maxLevels, len(sec.Rates))
	}

	return &commissionConfig{maxLevels: maxLevels, rates: sec.Rates}, nil
}

func (c *commissionConfig) Rates() []decimal.Decimal {
	return c.rates
}

func (c *commissionConfig) MaxLevels() int {
	return c.maxLevels
}
