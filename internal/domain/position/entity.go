package position

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Position represents a tradable exposure in the journal.
//
// Quantity and AvgEntryPrice are jointly consistent: a zero quantity means
// the position is closed and AvgEntryPrice is frozen for historical
// display only. Both move exclusively through scale operations, never by
// direct field edits.
type Position struct {
	ID     uuid.UUID `db:"id"`
	UserID uuid.UUID `db:"user_id"`

	Ticker string `db:"ticker"`
	Side   Side   `db:"side"`

	// Size & cost basis
	Quantity      decimal.Decimal `db:"quantity"`
	AvgEntryPrice decimal.Decimal `db:"avg_entry_price"`

	// Risk management; zero means unset
	StopPrice   decimal.Decimal `db:"stop_price"`
	TargetPrice decimal.Decimal `db:"target_price"`

	// Commissions accumulated per side
	CommissionEntry decimal.Decimal `db:"commission_entry"`
	CommissionExit  decimal.Decimal `db:"commission_exit"`

	// Realized P&L accumulated across scale-outs
	RealizedPnL decimal.Decimal `db:"realized_pnl"`

	Tags  pq.StringArray `db:"tags"`
	Notes string         `db:"notes"`

	Status    Status     `db:"status"`
	OpenedAt  time.Time  `db:"opened_at"`
	ClosedAt  *time.Time `db:"closed_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

// HasStop reports whether a stop price is set
func (p *Position) HasStop() bool {
	return p.StopPrice.GreaterThan(decimal.Zero)
}

// Notional returns quantity times average entry price
func (p *Position) Notional() decimal.Decimal {
	return p.Quantity.Mul(p.AvgEntryPrice)
}

// Side defines long or short
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Valid checks if position side is valid
func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

// String returns string representation
func (s Side) String() string {
	return string(s)
}

// Status defines position lifecycle status
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// Valid checks if position status is valid
func (s Status) Valid() bool {
	return s == StatusOpen || s == StatusClosed
}

// String returns string representation
func (s Status) String() string {
	return string(s)
}

// IsOpen returns true if the status is open
func (s Status) IsOpen() bool {
	return s == StatusOpen
}

// ScaleDirection defines whether a scale action adds to or reduces a position
type ScaleDirection string

const (
	ScaleIn  ScaleDirection = "IN"
	ScaleOut ScaleDirection = "OUT"
)

// Valid checks if the scale direction is valid
func (d ScaleDirection) Valid() bool {
	return d == ScaleIn || d == ScaleOut
}

// ScaleAction is an atomic change request against a position. It is not
// persisted independently; applying it produces a new position snapshot.
type ScaleAction struct {
	Direction ScaleDirection
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Note      string
	At        time.Time
}
