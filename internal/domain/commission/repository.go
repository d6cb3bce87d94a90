package commission

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for commission policy data access
type Repository interface {
	GetPolicy(ctx context.Context, userID uuid.UUID) (*Policy, error)
	SavePolicy(ctx context.Context, userID uuid.UUID, policy *Policy) error
}
