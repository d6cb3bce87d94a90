package risk

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradeledger/internal/domain/position"
)

var oneHundred = decimal.NewFromInt(100)

// BudgetCalculator derives per-trade and daily risk figures from position
// and equity state. It is a pure function over its inputs and holds no
// state of its own.
type BudgetCalculator struct{}

// NewBudgetCalculator constructs a budget calculator.
func NewBudgetCalculator() *BudgetCalculator {
	return &BudgetCalculator{}
}

// PerUnitRisk is the distance from average entry to the stop, floored at
// zero, and zero when no stop is set.
func (c *BudgetCalculator) PerUnitRisk(p *position.Position) decimal.Decimal {
	if !p.HasStop() {
		return decimal.Zero
	}

	var risk decimal.Decimal
	if p.Side == position.SideShort {
		risk = p.StopPrice.Sub(p.AvgEntryPrice)
	} else {
		risk = p.AvgEntryPrice.Sub(p.StopPrice)
	}

	if risk.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	return risk
}

// PositionRisk is the dollar risk carried by one position: per-unit risk
// times quantity.
func (c *BudgetCalculator) PositionRisk(p *position.Position) decimal.Decimal {
	return c.PerUnitRisk(p).Mul(p.Quantity)
}

// OpenRisk sums dollar risk over OPEN positions, optionally excluding one
// position by id (pass uuid.Nil to exclude none). The exclusion avoids
// double counting when an existing open position is re-evaluated.
func (c *BudgetCalculator) OpenRisk(book []*position.Position, exclude uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, p := range book {
		if !p.Status.IsOpen() {
			continue
		}
		if exclude != uuid.Nil && p.ID == exclude {
			continue
		}
		total = total.Add(c.PositionRisk(p))
	}
	return total
}

// Compute derives the full set of risk figures for an account state.
// realizedPnLToday is the day's signed realized P&L; only its loss side
// consumes budget. exclude removes one position from open risk, for
// admission evaluation of that position.
func (c *BudgetCalculator) Compute(
	policy Policy,
	baseEquity decimal.Decimal,
	book []*position.Position,
	realizedPnLToday decimal.Decimal,
	exclude uuid.UUID,
) Figures {
	f := Figures{
		BaseEquity:    baseEquity,
		GuardsEnabled: baseEquity.GreaterThan(decimal.Zero),
	}

	f.OpenRisk = c.OpenRisk(book, exclude)

	f.RealizedLossToday = decimal.Zero
	if realizedPnLToday.LessThan(decimal.Zero) {
		f.RealizedLossToday = realizedPnLToday.Neg()
	}

	if !f.GuardsEnabled {
		return f
	}

	f.PerTradeCap = baseEquity.Mul(policy.MaxRiskPerTradePct).Div(oneHundred)
	f.DailyBudget = baseEquity.Mul(policy.MaxDailyLossPct).Div(oneHundred)

	used := f.RealizedLossToday.Add(f.OpenRisk)
	f.DailyRemaining = f.DailyBudget.Sub(used)
	if f.DailyRemaining.LessThan(decimal.Zero) {
		f.DailyRemaining = decimal.Zero
	}

	if f.DailyBudget.GreaterThan(decimal.Zero) {
		f.LocalUsedPct = used.Div(f.DailyBudget).Mul(oneHundred)
	}

	return f
}
