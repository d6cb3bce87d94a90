package equity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"tradeledger/pkg/errors"
	"tradeledger/pkg/logger"
)

// Service is the equity ledger: it owns journal days and their
// adjustments and derives the effective-equity baseline other components
// budget against.
type Service struct {
	repo  Repository
	group singleflight.Group
	log   *logger.Logger
}

// NewService constructs an equity ledger service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, log: logger.Get().With("component", "equity_ledger")}
}

// GetOrCreateJournalDay returns the journal day for a calendar date,
// creating it when absent. Concurrent callers for the same user and date
// are coalesced into a single underlying request: the first caller
// performs the fetch/creation, all others await the same result, and the
// in-flight marker is cleared on completion so the next distinct call
// proceeds normally.
func (s *Service) GetOrCreateJournalDay(ctx context.Context, userID uuid.UUID, date time.Time) (*JournalDay, error) {
	if userID == uuid.Nil {
		return nil, errors.NewValidationError("user_id", "must be set", userID)
	}

	date = truncateToDate(date)
	key := fmt.Sprintf("%s:%s", userID, date.Format("2006-01-02"))

	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		day, err := s.repo.GetOrCreateDay(ctx, userID, date)
		if err != nil {
			return nil, errors.Wrap(err, "get or create journal day")
		}
		return day, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.log.Debugf("journal day request coalesced for %s", key)
	}

	return v.(*JournalDay), nil
}

// SetDayStartEquity updates the user-set day-start equity and returns the
// recomputed day snapshot.
func (s *Service) SetDayStartEquity(ctx context.Context, dayID uuid.UUID, value decimal.Decimal) (*DaySnapshot, error) {
	if value.LessThan(decimal.Zero) {
		return nil, errors.NewValidationError("day_start_equity", "must not be negative", value.String())
	}
	if err := s.repo.UpdateDayStartEquity(ctx, dayID, value); err != nil {
		return nil, errors.Wrap(err, "set day start equity")
	}
	return s.Snapshot(ctx, dayID)
}

// ApplyAdjustment stores an adjustment with its sign normalized by reason
// and returns the recomputed day snapshot.
func (s *Service) ApplyAdjustment(ctx context.Context, dayID uuid.UUID, reason AdjustmentReason, amount decimal.Decimal, note string) (*DaySnapshot, error) {
	if !reason.Valid() {
		return nil, errors.NewValidationError("reason", "unknown adjustment reason", string(reason))
	}
	if amount.IsZero() {
		return nil, errors.NewValidationError("amount", "must not be zero", amount.String())
	}

	adj := &Adjustment{
		ID:        uuid.New(),
		DayID:     dayID,
		Reason:    reason,
		Amount:    reason.NormalizeAmount(amount),
		Note:      note,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.CreateAdjustment(ctx, adj); err != nil {
		return nil, errors.Wrap(err, "create adjustment")
	}
	return s.Snapshot(ctx, dayID)
}

// RemoveAdjustment deletes an adjustment, reverting its effect on
// effective equity, and returns the recomputed day snapshot.
func (s *Service) RemoveAdjustment(ctx context.Context, dayID, adjustmentID uuid.UUID) (*DaySnapshot, error) {
	if err := s.repo.DeleteAdjustment(ctx, adjustmentID); err != nil {
		return nil, errors.Wrap(err, "delete adjustment")
	}
	return s.Snapshot(ctx, dayID)
}

// RecordRealizedPnL accumulates realized profit or loss onto the day.
// Called by the position ledger after each accepted scale-out.
func (s *Service) RecordRealizedPnL(ctx context.Context, dayID uuid.UUID, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	if err := s.repo.AddRealizedPnL(ctx, dayID, delta); err != nil {
		return errors.Wrap(err, "record realized pnl")
	}
	return nil
}

// RecordRealized resolves the journal day a fill settles on and
// accumulates the realized delta onto it. Satisfies the position ledger's
// DayRecorder.
func (s *Service) RecordRealized(ctx context.Context, userID uuid.UUID, at time.Time, delta decimal.Decimal) error {
	day, err := s.GetOrCreateJournalDay(ctx, userID, at)
	if err != nil {
		return err
	}
	return s.RecordRealizedPnL(ctx, day.ID, delta)
}

// Snapshot loads a day with its adjustments and derived figures.
func (s *Service) Snapshot(ctx context.Context, dayID uuid.UUID) (*DaySnapshot, error) {
	day, err := s.repo.GetDay(ctx, dayID)
	if err != nil {
		return nil, errors.Wrap(err, "get journal day")
	}

	adjustments, err := s.repo.ListAdjustments(ctx, dayID)
	if err != nil {
		return nil, errors.Wrap(err, "list adjustments")
	}

	total := decimal.Zero
	for _, adj := range adjustments {
		total = total.Add(adj.Amount)
	}

	return &DaySnapshot{
		Day:              day,
		Adjustments:      adjustments,
		AdjustmentsTotal: total,
		EffectiveEquity:  EffectiveEquity(day, total),
	}, nil
}

// BaseEquity resolves the equity baseline risk budgets are computed from:
// the day-start equity when set and positive, otherwise the last known
// total equity for the user.
func (s *Service) BaseEquity(ctx context.Context, userID uuid.UUID, day *JournalDay) (decimal.Decimal, error) {
	if day != nil && day.DayStartEquity.GreaterThan(decimal.Zero) {
		return day.DayStartEquity, nil
	}
	last, err := s.repo.LastKnownEquity(ctx, userID)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "last known equity")
	}
	return last, nil
}

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
