package domain

import "github.com/shopspring/decimal"

// MoneyPlaces количество знаков после запятой у всех денежных значений.
const MoneyPlaces int32 = 2

// Quantize приводит сумму к двум знакам после запятой (банковское округление).
func Quantize(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(MoneyPlaces)
}

// PositiveAmount квантует сумму и проверяет, что она строго больше нуля.
// Иначе возвращает ErrInvalidAmount.
func PositiveAmount(d decimal.Decimal) (decimal.Decimal, error) {
	q := Quantize(d)
	if !q.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return q, nil
}
