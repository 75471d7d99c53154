package model

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Outcome - выпавшее число раунда
type Outcome int

func (o Outcome) String() string {
	return strconv.Itoa(int(o))
}

// Selection - на что поставил игрок: число ("0".."9") или имя категории ("red", "big", ...)
type Selection string

// Normalize - приводит выбор к каноническому виду (без пробелов, в нижнем регистре)
func (s Selection) Normalize() Selection {
	return Selection(strings.ToLower(strings.TrimSpace(string(s))))
}

// Number - если выбор является числом, возвращает его
func (s Selection) Number() (Outcome, bool) {
	n, err := strconv.Atoi(string(s))
	if err != nil || n < 0 || strconv.Itoa(n) != string(s) {
		return 0, false
	}
	return Outcome(n), true
}

// Category - категория исходов с общим множителем (цвет, big/small).
// Neutral - исходы, при которых ставка на категорию получает частичный возврат
type Category struct {
	Name       Selection
	Numbers    []Outcome
	Neutral    []Outcome
	Multiplier decimal.Decimal
}

// Draw - результат выбора исхода для раунда
type Draw struct {
	Outcome Outcome
	Forced  bool
	// Liabilities - сколько казино выплатило бы при каждом исходе
	Liabilities map[Outcome]decimal.Decimal
}

// Liability - выплата по выбранному исходу
func (d *Draw) Liability() decimal.Decimal {
	return d.Liabilities[d.Outcome]
}
