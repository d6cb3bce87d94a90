package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradeledger/internal/domain/commission"
	"tradeledger/internal/domain/risk"
	"tradeledger/pkg/errors"
)

// Compile-time checks
var (
	_ risk.Repository       = (*RiskRepository)(nil)
	_ commission.Repository = (*CommissionRepository)(nil)
)

// RiskRepository implements risk.Repository using sqlx
type RiskRepository struct {
	db DBTX
}

// NewRiskRepository creates a new risk repository
func NewRiskRepository(db DBTX) *RiskRepository {
	return &RiskRepository{db: db}
}

// GetPolicy retrieves the account's risk policy
func (r *RiskRepository) GetPolicy(ctx context.Context, userID uuid.UUID) (*risk.Policy, error) {
	var policy risk.Policy

	query := `
		SELECT max_risk_per_trade_pct, max_daily_loss_pct, max_trades_per_day
		FROM risk_policies WHERE user_id = $1`

	if err := r.db.GetContext(ctx, &policy, query, userID); err != nil {
		return nil, storeErr(err, errors.ErrNotFound)
	}

	return &policy, nil
}

// SavePolicy upserts the account's risk policy
func (r *RiskRepository) SavePolicy(ctx context.Context, userID uuid.UUID, policy *risk.Policy) error {
	query := `
		INSERT INTO risk_policies (user_id, max_risk_per_trade_pct, max_daily_loss_pct, max_trades_per_day, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			max_risk_per_trade_pct = $2,
			max_daily_loss_pct = $3,
			max_trades_per_day = $4,
			updated_at = $5`

	_, err := r.db.ExecContext(ctx, query,
		userID, policy.MaxRiskPerTradePct, policy.MaxDailyLossPct, policy.MaxTradesPerDay, time.Now().UTC(),
	)
	return storeErr(err, errors.ErrNotFound)
}

// ReportedDailyUsage computes the store's own daily-risk-used figure, as
// percent of the daily budget, entirely from persisted state. Zero when
// the day, policy or budget is absent.
func (r *RiskRepository) ReportedDailyUsage(ctx context.Context, userID uuid.UUID, date time.Time) (decimal.Decimal, error) {
	var pct decimal.Decimal

	date = date.UTC().Truncate(24 * time.Hour)

	query := `
		WITH day AS (
			SELECT day_start_equity, realized_pnl
			FROM journal_days WHERE user_id = $1 AND date = $2
		),
		open_risk AS (
			SELECT COALESCE(SUM(
				GREATEST(0, CASE WHEN side = 'LONG'
					THEN avg_entry_price - stop_price
					ELSE stop_price - avg_entry_price END) * quantity), 0) AS risk
			FROM positions
			WHERE user_id = $1 AND status = 'OPEN' AND stop_price > 0
		),
		policy AS (
			SELECT max_daily_loss_pct FROM risk_policies WHERE user_id = $1
		)
		SELECT CASE
			WHEN d.day_start_equity * p.max_daily_loss_pct <= 0 THEN 0
			ELSE (GREATEST(0, -d.realized_pnl) + o.risk)
				/ (d.day_start_equity * p.max_daily_loss_pct / 100) * 100
		END
		FROM day d, open_risk o, policy p`

	err := r.db.GetContext(ctx, &pct, query, userID, date)
	if err != nil {
		mapped := storeErr(err, errors.ErrNotFound)
		if errors.Is(mapped, errors.ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, mapped
	}

	return pct, nil
}

// CommissionRepository implements commission.Repository using sqlx
type CommissionRepository struct {
	db DBTX
}

// NewCommissionRepository creates a new commission repository
func NewCommissionRepository(db DBTX) *CommissionRepository {
	return &CommissionRepository{db: db}
}

// GetPolicy retrieves the account's commission policy
func (r *CommissionRepository) GetPolicy(ctx context.Context, userID uuid.UUID) (*commission.Policy, error) {
	var policy commission.Policy

	query := `
		SELECT mode, flat_value, percent, per_share_rate, minimum_per_side, cap_percent
		FROM commission_policies WHERE user_id = $1`

	if err := r.db.GetContext(ctx, &policy, query, userID); err != nil {
		return nil, storeErr(err, errors.ErrNotFound)
	}

	return &policy, nil
}

// SavePolicy upserts the account's commission policy
func (r *CommissionRepository) SavePolicy(ctx context.Context, userID uuid.UUID, policy *commission.Policy) error {
	query := `
		INSERT INTO commission_policies (user_id, mode, flat_value, percent, per_share_rate, minimum_per_side, cap_percent, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			mode = $2,
			flat_value = $3,
			percent = $4,
			per_share_rate = $5,
			minimum_per_side = $6,
			cap_percent = $7,
			updated_at = $8`

	_, err := r.db.ExecContext(ctx, query,
		userID, policy.Mode, policy.FlatValue, policy.Percent,
		policy.PerShareRate, policy.MinimumPerSide, policy.CapPercent, time.Now().UTC(),
	)
	return storeErr(err, errors.ErrNotFound)
}
