package domain

import "github.com/shopspring/decimal"

// Money is an amount in the restaurant currency. It serializes as a JSON number
// with exactly two fraction digits, so 1210 is written as 1210.00.
type Money struct {
	decimal.Decimal
}

func MoneyOf(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.StringFixed(2)), nil
}

func (m Money) String() string {
	return m.StringFixed(2)
}
