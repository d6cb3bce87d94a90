package commission

import (
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// Fee computes the commission for one side of a fill (entry, or each exit
// fill independently). It is total: degenerate inputs (price or quantity
// not strictly positive) yield a zero fee, never an error.
//
// PER_SHARE applies the per-side minimum before the cap. The cap can
// therefore suppress an otherwise-applicable minimum on small notional.
// Callers must not reorder these steps.
func Fee(policy Policy, price, quantity decimal.Decimal) decimal.Decimal {
	if price.LessThanOrEqual(decimal.Zero) || quantity.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	switch policy.Mode {
	case ModeFixed:
		return nonNegative(policy.FlatValue)

	case ModePercent:
		notional := price.Mul(quantity)
		return nonNegative(notional.Mul(policy.Percent).Div(oneHundred))

	case ModePerShare:
		fee := policy.PerShareRate.Mul(quantity)
		if fee.LessThan(policy.MinimumPerSide) {
			fee = policy.MinimumPerSide
		}
		if policy.CapPercent.GreaterThan(decimal.Zero) {
			cap := price.Mul(quantity).Mul(policy.CapPercent).Div(oneHundred)
			if fee.GreaterThan(cap) {
				fee = cap
			}
		}
		return nonNegative(fee)
	}

	return decimal.Zero
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	return d
}
