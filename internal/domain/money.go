package domain

import "github.com/shopspring/decimal"

// Epsilon is the tolerance used when deciding whether an amount is effectively zero.
var Epsilon = decimal.New(1, -2)

// IsEffectivelyZero reports whether |d| is below one cent.
func IsEffectivelyZero(d decimal.Decimal) bool {
	return d.Abs().LessThan(Epsilon)
}

// SafeDivide divides by a count, returning zero for an empty count.
func SafeDivide(total decimal.Decimal, count int) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(count)))
}
