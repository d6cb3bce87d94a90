package equity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository defines the interface for journal-day and adjustment data access
type Repository interface {
	// GetOrCreateDay fetches the journal day for a user and calendar date,
	// creating it when absent. The insert must be race-safe at the store
	// level (upsert on the unique user/date pair).
	GetOrCreateDay(ctx context.Context, userID uuid.UUID, date time.Time) (*JournalDay, error)

	GetDay(ctx context.Context, id uuid.UUID) (*JournalDay, error)
	UpdateDayStartEquity(ctx context.Context, dayID uuid.UUID, value decimal.Decimal) error
	AddRealizedPnL(ctx context.Context, dayID uuid.UUID, delta decimal.Decimal) error

	// LastKnownEquity returns the most recent effective equity recorded for
	// the user across all days, zero when the user has no history.
	LastKnownEquity(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)

	ListAdjustments(ctx context.Context, dayID uuid.UUID) ([]Adjustment, error)
	CreateAdjustment(ctx context.Context, adjustment *Adjustment) error
	DeleteAdjustment(ctx context.Context, id uuid.UUID) error
}
