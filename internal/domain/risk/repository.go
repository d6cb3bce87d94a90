package risk

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository defines the interface for risk policy and usage data access
type Repository interface {
	GetPolicy(ctx context.Context, userID uuid.UUID) (*Policy, error)
	SavePolicy(ctx context.Context, userID uuid.UUID, policy *Policy) error

	// ReportedDailyUsage is the ledger store's own figure for daily risk
	// used as percent of budget, the lagging authoritative estimate the
	// reconciler merges conservatively.
	ReportedDailyUsage(ctx context.Context, userID uuid.UUID, date time.Time) (decimal.Decimal, error)
}
