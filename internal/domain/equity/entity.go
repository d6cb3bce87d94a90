package equity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalDay is the day-scoped equity ledger for one account: a user-set
// day-start equity, the day's realized P&L, and signed adjustments.
// At most one row exists per user per calendar date.
type JournalDay struct {
	ID     uuid.UUID `db:"id"`
	UserID uuid.UUID `db:"user_id"`
	Date   time.Time `db:"date"` // calendar date, midnight UTC

	DayStartEquity decimal.Decimal `db:"day_start_equity"`
	RealizedPnL    decimal.Decimal `db:"realized_pnl"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Adjustment is an immutable signed equity correction on a journal day.
// It can only be removed, never edited; removal reverts its effect on
// effective equity.
type Adjustment struct {
	ID        uuid.UUID        `db:"id"`
	DayID     uuid.UUID        `db:"day_id"`
	Reason    AdjustmentReason `db:"reason"`
	Amount    decimal.Decimal  `db:"amount"`
	Note      string           `db:"note"`
	CreatedAt time.Time        `db:"created_at"`
}

// AdjustmentReason categorizes an adjustment and fixes its sign
type AdjustmentReason string

const (
	ReasonDeposit    AdjustmentReason = "DEPOSIT"
	ReasonWithdrawal AdjustmentReason = "WITHDRAWAL"
	ReasonFee        AdjustmentReason = "FEE"
	ReasonCorrection AdjustmentReason = "CORRECTION"
)

// Valid checks if the reason is known
func (r AdjustmentReason) Valid() bool {
	switch r {
	case ReasonDeposit, ReasonWithdrawal, ReasonFee, ReasonCorrection:
		return true
	}
	return false
}

// String returns string representation
func (r AdjustmentReason) String() string {
	return string(r)
}

// NormalizeAmount forces the sign the reason dictates: DEPOSIT is never
// negative, WITHDRAWAL and FEE are never positive, and CORRECTION passes
// the caller's signed amount through unchanged. Caller-supplied signs are
// not trusted for the first three.
func (r AdjustmentReason) NormalizeAmount(amount decimal.Decimal) decimal.Decimal {
	switch r {
	case ReasonDeposit:
		return amount.Abs()
	case ReasonWithdrawal, ReasonFee:
		return amount.Abs().Neg()
	}
	return amount
}

// DaySnapshot is a journal day together with its derived figures, returned
// after every ledger mutation so callers never recompute locally.
type DaySnapshot struct {
	Day              *JournalDay
	Adjustments      []Adjustment
	AdjustmentsTotal decimal.Decimal
	EffectiveEquity  decimal.Decimal
}

// EffectiveEquity is day-start equity plus the day's realized P&L plus the
// day's adjustments. It is day-scoped and does not compound across days.
func EffectiveEquity(day *JournalDay, adjustmentsTotal decimal.Decimal) decimal.Decimal {
	return day.DayStartEquity.Add(day.RealizedPnL).Add(adjustmentsTotal)
}
