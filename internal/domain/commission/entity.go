package commission

import (
	"github.com/shopspring/decimal"
)

// Mode selects the fee model a policy applies.
type Mode string

const (
	// ModeFixed charges a flat fee per side regardless of fill size
	ModeFixed Mode = "FIXED"
	// ModePercent charges a percentage of notional
	ModePercent Mode = "PERCENT"
	// ModePerShare charges per share with a minimum per side and an
	// optional cap expressed as percent of notional
	ModePerShare Mode = "PER_SHARE"
)

// Valid checks if the mode is known
func (m Mode) Valid() bool {
	switch m {
	case ModeFixed, ModePercent, ModePerShare:
		return true
	}
	return false
}

// String returns string representation
func (m Mode) String() string {
	return string(m)
}

// Policy describes how commissions are computed for an account.
// Only the parameters of the selected mode are consulted.
type Policy struct {
	Mode Mode `db:"mode"`

	// FIXED
	FlatValue decimal.Decimal `db:"flat_value"`

	// PERCENT
	Percent decimal.Decimal `db:"percent"`

	// PER_SHARE
	PerShareRate   decimal.Decimal `db:"per_share_rate"`
	MinimumPerSide decimal.Decimal `db:"minimum_per_side"`
	CapPercent     decimal.Decimal `db:"cap_percent"` // 0 = no cap
}
