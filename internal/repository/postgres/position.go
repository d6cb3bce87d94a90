package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tradeledger/internal/domain/position"
	"tradeledger/pkg/errors"
)

// Compile-time check
var _ position.Repository = (*PositionRepository)(nil)

// PositionRepository implements position.Repository using sqlx
type PositionRepository struct {
	db DBTX
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db DBTX) *PositionRepository {
	return &PositionRepository{db: db}
}

// Create inserts a new position
func (r *PositionRepository) Create(ctx context.Context, p *position.Position) error {
	query := `
		INSERT INTO positions (
			id, user_id, ticker, side,
			quantity, avg_entry_price, stop_price, target_price,
			commission_entry, commission_exit, realized_pnl,
			tags, notes,
			status, opened_at, closed_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17
		)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.UserID, p.Ticker, p.Side,
		p.Quantity, p.AvgEntryPrice, p.StopPrice, p.TargetPrice,
		p.CommissionEntry, p.CommissionExit, p.RealizedPnL,
		p.Tags, p.Notes,
		p.Status, p.OpenedAt, p.ClosedAt, p.UpdatedAt,
	)

	return storeErr(err, errors.ErrPositionNotFound)
}

// GetByID retrieves a position by ID
func (r *PositionRepository) GetByID(ctx context.Context, id uuid.UUID) (*position.Position, error) {
	var p position.Position

	query := `SELECT * FROM positions WHERE id = $1`

	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		return nil, storeErr(err, errors.ErrPositionNotFound)
	}

	return &p, nil
}

// GetOpenByUser retrieves all open positions for a user
func (r *PositionRepository) GetOpenByUser(ctx context.Context, userID uuid.UUID) ([]*position.Position, error) {
	var positions []*position.Position

	query := `
		SELECT * FROM positions
		WHERE user_id = $1 AND status = 'OPEN'
		ORDER BY opened_at DESC`

	if err := r.db.SelectContext(ctx, &positions, query, userID); err != nil {
		return nil, storeErr(err, errors.ErrPositionNotFound)
	}

	return positions, nil
}

// CountOpenedBetween counts positions opened in [from, to)
func (r *PositionRepository) CountOpenedBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error) {
	var count int

	query := `
		SELECT COUNT(*) FROM positions
		WHERE user_id = $1 AND opened_at >= $2 AND opened_at < $3`

	if err := r.db.GetContext(ctx, &count, query, userID, from, to); err != nil {
		return 0, storeErr(err, errors.ErrPositionNotFound)
	}

	return count, nil
}

// Update persists a full position snapshot
func (r *PositionRepository) Update(ctx context.Context, p *position.Position) error {
	query := `
		UPDATE positions SET
			quantity = $2,
			avg_entry_price = $3,
			stop_price = $4,
			target_price = $5,
			commission_entry = $6,
			commission_exit = $7,
			realized_pnl = $8,
			tags = $9,
			notes = $10,
			status = $11,
			closed_at = $12,
			updated_at = $13
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.Quantity, p.AvgEntryPrice, p.StopPrice, p.TargetPrice,
		p.CommissionEntry, p.CommissionExit, p.RealizedPnL,
		p.Tags, p.Notes,
		p.Status, p.ClosedAt, p.UpdatedAt,
	)
	if err != nil {
		return storeErr(err, errors.ErrPositionNotFound)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return storeErr(err, errors.ErrPositionNotFound)
	}
	if rows == 0 {
		return errors.ErrPositionNotFound
	}

	return nil
}

// Delete removes a position
func (r *PositionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM positions WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id)
	return storeErr(err, errors.ErrPositionNotFound)
}
