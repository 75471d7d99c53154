package payout

import (
	"colorgame_backend/internal/model"
	"colorgame_backend/internal/testutil"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func bet(stake string, sel model.Selection) *model.Bet {
	return &model.Bet{Stake: decimal.RequireFromString(stake), Selection: sel}
}

func TestPayout(t *testing.T) {
	calc := NewPayoutCalculator(testutil.NewGameConfig())

	tests := []struct {
		name    string
		bet     *model.Bet
		outcome model.Outcome
		want    string
	}{
		{"number match", bet("100", "5"), 5, "920"},
		{"number miss", bet("100", "5"), 4, "0"},
		{"red member", bet("200", "red"), 3, "396"},
		{"red neutral refund", bet("200", "red"), 0, "298"},
		{"red on green number", bet("200", "red"), 2, "0"},
		{"green neutral refund", bet("100", "green"), 5, "149"},
		{"violet", bet("10", "violet"), 5, "45"},
		{"violet miss", bet("10", "violet"), 1, "0"},
		{"big", bet("50", "big"), 9, "99"},
		{"small", bet("50", "small"), 0, "99"},
		{"big miss", bet("50", "big"), 4, "0"},
		{"case and spaces", bet("200", " RED "), 7, "396"},
		{"rounded to cents", bet("10.01", "red"), 1, "19.82"},
		{"unknown selection", bet("100", "blue"), 1, "0"},
		{"number out of space", bet("100", "12"), 2, "0"},
		{"non canonical number", bet("100", "05"), 5, "0"},
		{"outcome out of space", bet("100", "red"), 11, "0"},
		{"zero stake", bet("0", "red"), 1, "0"},
		{"negative stake", bet("-10", "red"), 1, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Payout(tt.bet, tt.outcome)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

// Для любой ставки и любого исхода выплата определена и неотрицательна
func TestPayout_Total(t *testing.T) {
	calc := NewPayoutCalculator(testutil.NewGameConfig())
	selections := []model.Selection{"0", "1", "5", "9", "10", "red", "green", "violet", "big", "small", "", "x", "-1"}
	stakes := []string{"-5", "0", "0.01", "10", "12345.67"}

	for _, sel := range selections {
		for _, st := range stakes {
			for o := model.Outcome(-1); o <= 11; o++ {
				p := calc.Payout(bet(st, sel), o)
				assert.False(t, p.IsNegative(), "selection %q stake %s outcome %d", sel, st, o)
			}
		}
	}
}

func TestLiability(t *testing.T) {
	calc := NewPayoutCalculator(testutil.NewGameConfig())
	bets := []model.Bet{
		{Stake: decimal.NewFromInt(100), Selection: "5"},
		{Stake: decimal.NewFromInt(200), Selection: "red"},
	}

	assert.True(t, decimal.NewFromInt(920).Equal(calc.Liability(bets, 5)))
	assert.True(t, decimal.NewFromInt(396).Equal(calc.Liability(bets, 1)))
	assert.True(t, decimal.NewFromInt(298).Equal(calc.Liability(bets, 0)))
	assert.True(t, decimal.Zero.Equal(calc.Liability(bets, 2)))
	assert.True(t, decimal.Zero.Equal(calc.Liability(nil, 3)))
}

func TestIsValidSelection(t *testing.T) {
	calc := NewPayoutCalculator(testutil.NewGameConfig())

	for _, sel := range []model.Selection{"0", "9", "red", "Green", " violet", "big", "small"} {
		assert.True(t, calc.IsValidSelection(sel), sel)
	}
	for _, sel := range []model.Selection{"", "10", "-1", "01", "blue", "red green"} {
		assert.False(t, calc.IsValidSelection(sel), sel)
	}
}

// red neutral: [0, 5] - ставка на red возвращается на обеих violet цифрах
func TestPayout_RedNeutralOnBothViolet(t *testing.T) {
	cfg := testutil.NewGameConfig()
	cfg.Cats[0].Neutral = []model.Outcome{0, 5}
	calc := NewPayoutCalculator(cfg)

	assert.True(t, decimal.NewFromInt(149).Equal(calc.Payout(bet("100", "red"), 0)))
	assert.True(t, decimal.NewFromInt(149).Equal(calc.Payout(bet("100", "red"), 5)))
	assert.True(t, decimal.NewFromInt(198).Equal(calc.Payout(bet("100", "red"), 7)))
	assert.True(t, calc.Payout(bet("100", "red"), 2).IsZero())
}
