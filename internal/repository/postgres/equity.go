package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradeledger/internal/domain/equity"
	"tradeledger/pkg/errors"
)

// Compile-time check
var _ equity.Repository = (*EquityRepository)(nil)

// EquityRepository implements equity.Repository using sqlx
type EquityRepository struct {
	db DBTX
}

// NewEquityRepository creates a new equity repository
func NewEquityRepository(db DBTX) *EquityRepository {
	return &EquityRepository{db: db}
}

// GetOrCreateDay fetches or creates the journal day for a user and date.
// The insert upserts on the unique (user_id, date) pair so concurrent
// callers observe exactly one created row.
func (r *EquityRepository) GetOrCreateDay(ctx context.Context, userID uuid.UUID, date time.Time) (*equity.JournalDay, error) {
	var day equity.JournalDay

	query := `
		INSERT INTO journal_days (id, user_id, date, day_start_equity, realized_pnl, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 0, $4, $4)
		ON CONFLICT (user_id, date) DO UPDATE SET updated_at = journal_days.updated_at
		RETURNING *`

	now := time.Now().UTC()
	if err := r.db.GetContext(ctx, &day, query, uuid.New(), userID, date, now); err != nil {
		return nil, storeErr(err, errors.ErrNotFound)
	}

	return &day, nil
}

// GetDay retrieves a journal day by ID
func (r *EquityRepository) GetDay(ctx context.Context, id uuid.UUID) (*equity.JournalDay, error) {
	var day equity.JournalDay

	query := `SELECT * FROM journal_days WHERE id = $1`

	if err := r.db.GetContext(ctx, &day, query, id); err != nil {
		return nil, storeErr(err, errors.ErrNotFound)
	}

	return &day, nil
}

// UpdateDayStartEquity sets the user-entered day-start equity
func (r *EquityRepository) UpdateDayStartEquity(ctx context.Context, dayID uuid.UUID, value decimal.Decimal) error {
	query := `
		UPDATE journal_days SET day_start_equity = $2, updated_at = $3
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, dayID, value, time.Now().UTC())
	if err != nil {
		return storeErr(err, errors.ErrNotFound)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return storeErr(err, errors.ErrNotFound)
	}
	if rows == 0 {
		return errors.ErrNotFound
	}

	return nil
}

// AddRealizedPnL accumulates a realized delta onto the day
func (r *EquityRepository) AddRealizedPnL(ctx context.Context, dayID uuid.UUID, delta decimal.Decimal) error {
	query := `
		UPDATE journal_days SET realized_pnl = realized_pnl + $2, updated_at = $3
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, dayID, delta, time.Now().UTC())
	if err != nil {
		return storeErr(err, errors.ErrNotFound)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return storeErr(err, errors.ErrNotFound)
	}
	if rows == 0 {
		return errors.ErrNotFound
	}

	return nil
}

// LastKnownEquity returns the most recent effective equity for the user,
// zero when no history exists
func (r *EquityRepository) LastKnownEquity(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var value decimal.Decimal

	query := `
		SELECT d.day_start_equity + d.realized_pnl + COALESCE(SUM(a.amount), 0)
		FROM journal_days d
		LEFT JOIN adjustments a ON a.day_id = d.id
		WHERE d.user_id = $1
		GROUP BY d.id, d.date
		ORDER BY d.date DESC
		LIMIT 1`

	err := r.db.GetContext(ctx, &value, query, userID)
	if err != nil {
		mapped := storeErr(err, errors.ErrNotFound)
		if errors.Is(mapped, errors.ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, mapped
	}

	return value, nil
}

// ListAdjustments lists a day's adjustments in application order
func (r *EquityRepository) ListAdjustments(ctx context.Context, dayID uuid.UUID) ([]equity.Adjustment, error) {
	var adjustments []equity.Adjustment

	query := `
		SELECT * FROM adjustments
		WHERE day_id = $1
		ORDER BY created_at ASC`

	if err := r.db.SelectContext(ctx, &adjustments, query, dayID); err != nil {
		return nil, storeErr(err, errors.ErrAdjustmentNotFound)
	}

	return adjustments, nil
}

// CreateAdjustment inserts an adjustment
func (r *EquityRepository) CreateAdjustment(ctx context.Context, a *equity.Adjustment) error {
	query := `
		INSERT INTO adjustments (id, day_id, reason, amount, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.DayID, a.Reason, a.Amount, a.Note, a.CreatedAt,
	)
	return storeErr(err, errors.ErrAdjustmentNotFound)
}

// DeleteAdjustment removes an adjustment
func (r *EquityRepository) DeleteAdjustment(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM adjustments WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return storeErr(err, errors.ErrAdjustmentNotFound)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return storeErr(err, errors.ErrAdjustmentNotFound)
	}
	if rows == 0 {
		return errors.ErrAdjustmentNotFound
	}

	return nil
}
