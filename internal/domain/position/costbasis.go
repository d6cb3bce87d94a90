package position

import (
	"github.com/shopspring/decimal"

	"tradeledger/pkg/errors"
)

// ApplyScale recomputes quantity and average entry price for a scale
// action and returns the next position snapshot. The receiver is not
// mutated.
//
// Scale-in follows the weighted-average cost-basis law:
//
//	nextAvg = (avg*qty + price*actionQty) / (qty + actionQty)
//
// Scale-out never changes the average entry price; realized P&L per unit
// sold is computed against the pre-existing average. When the remaining
// quantity reaches zero the position closes and the average is frozen.
func ApplyScale(p Position, action ScaleAction) (Position, error) {
	if !p.Status.IsOpen() {
		return Position{}, errors.ErrPositionClosed
	}
	if !action.Direction.Valid() {
		return Position{}, errors.NewValidationError("direction", "must be IN or OUT", string(action.Direction))
	}
	if action.Quantity.LessThanOrEqual(decimal.Zero) {
		return Position{}, errors.NewValidationError("quantity", "must be positive", action.Quantity.String())
	}
	if action.Price.LessThanOrEqual(decimal.Zero) {
		return Position{}, errors.NewValidationError("price", "must be positive", action.Price.String())
	}

	next := p

	switch action.Direction {
	case ScaleIn:
		nextQty := p.Quantity.Add(action.Quantity)

		basis := decimal.Zero
		if p.Quantity.GreaterThan(decimal.Zero) {
			basis = p.AvgEntryPrice.Mul(p.Quantity)
		}
		basis = basis.Add(action.Price.Mul(action.Quantity))

		next.Quantity = nextQty
		next.AvgEntryPrice = basis.Div(nextQty)

	case ScaleOut:
		if action.Quantity.GreaterThan(p.Quantity) {
			return Position{}, errors.Wrapf(errors.ErrLedgerConflict,
				"scale-out quantity %s exceeds open quantity %s",
				action.Quantity.String(), p.Quantity.String())
		}

		next.Quantity = p.Quantity.Sub(action.Quantity)
		next.RealizedPnL = p.RealizedPnL.Add(realizedPnL(p.Side, p.AvgEntryPrice, action.Price, action.Quantity))

		if next.Quantity.IsZero() {
			next.Status = StatusClosed
			at := action.At
			next.ClosedAt = &at
		}
	}

	if !action.At.IsZero() {
		next.UpdatedAt = action.At
	}
	return next, nil
}

// realizedPnL is per-unit profit against the average entry, signed by side.
func realizedPnL(side Side, avgEntry, exitPrice, quantity decimal.Decimal) decimal.Decimal {
	if side == SideShort {
		return avgEntry.Sub(exitPrice).Mul(quantity)
	}
	return exitPrice.Sub(avgEntry).Mul(quantity)
}
