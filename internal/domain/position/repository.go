package position

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for position data access
type Repository interface {
	Create(ctx context.Context, position *Position) error
	GetByID(ctx context.Context, id uuid.UUID) (*Position, error)
	GetOpenByUser(ctx context.Context, userID uuid.UUID) ([]*Position, error)
	CountOpenedBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error)
	Update(ctx context.Context, position *Position) error
	Delete(ctx context.Context, id uuid.UUID) error
}
