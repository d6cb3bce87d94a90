package position

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradeledger/internal/events"
	"tradeledger/pkg/errors"
	"tradeledger/pkg/logger"
)

// AdmissionGate approves or rejects a proposed post-action position
// against the account's risk budgets. Implemented by the risk gate.
type AdmissionGate interface {
	Admit(ctx context.Context, proposed *Position, at time.Time) error
}

// FeeQuoter computes the commission for one side of a fill under the
// account's commission policy.
type FeeQuoter interface {
	Quote(ctx context.Context, userID uuid.UUID, price, quantity decimal.Decimal) (decimal.Decimal, error)
}

// DayRecorder accumulates realized P&L onto the journal day a fill
// settles on.
type DayRecorder interface {
	RecordRealized(ctx context.Context, userID uuid.UUID, at time.Time, delta decimal.Decimal) error
}

// ClosedPublisher pushes position-closed notifications to subscribers.
type ClosedPublisher interface {
	Publish(event events.PositionClosedEvent)
}

// Service is the position ledger: it owns the set of open and closed
// positions and applies create/scale/close operations after they pass
// admission control. Either the full operation succeeds against the store
// and is reflected locally, or nothing changes.
type Service struct {
	repo Repository
	gate AdmissionGate
	fees FeeQuoter
	days DayRecorder
	bus  ClosedPublisher
	log  *logger.Logger
}

// NewService constructs a position ledger service.
func NewService(repo Repository, gate AdmissionGate, fees FeeQuoter, days DayRecorder, bus ClosedPublisher) *Service {
	return &Service{
		repo: repo,
		gate: gate,
		fees: fees,
		days: days,
		bus:  bus,
		log:  logger.Get().With("component", "position_ledger"),
	}
}

// CreateSpec describes a new position to open.
type CreateSpec struct {
	UserID      uuid.UUID
	Ticker      string
	Side        Side
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	StopPrice   decimal.Decimal // zero = unset
	TargetPrice decimal.Decimal // zero = unset
	Tags        []string
	Notes       string
}

// Create opens a new position after admission approval. The entry
// commission accumulates on the entry side.
func (s *Service) Create(ctx context.Context, spec CreateSpec) (*Position, error) {
	if err := validateCreate(spec); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	pos := &Position{
		ID:              uuid.New(),
		UserID:          spec.UserID,
		Ticker:          spec.Ticker,
		Side:            spec.Side,
		Quantity:        spec.Quantity,
		AvgEntryPrice:   spec.Price,
		StopPrice:       spec.StopPrice,
		TargetPrice:     spec.TargetPrice,
		CommissionEntry: decimal.Zero,
		CommissionExit:  decimal.Zero,
		RealizedPnL:     decimal.Zero,
		Tags:            spec.Tags,
		Notes:           spec.Notes,
		Status:          StatusOpen,
		OpenedAt:        now,
		UpdatedAt:       now,
	}

	if err := s.gate.Admit(ctx, pos, now); err != nil {
		return nil, err
	}

	fee, err := s.fees.Quote(ctx, spec.UserID, spec.Price, spec.Quantity)
	if err != nil {
		return nil, errors.Wrap(err, "quote entry commission")
	}
	pos.CommissionEntry = fee

	if err := s.repo.Create(ctx, pos); err != nil {
		return nil, errors.Wrap(err, "create position")
	}

	s.log.Infow("position opened",
		"position_id", pos.ID,
		"ticker", pos.Ticker,
		"side", pos.Side.String(),
		"quantity", pos.Quantity.String(),
	)
	return pos, nil
}

// Scale applies a scale-in or scale-out to an open position. Scale-ins
// pass admission control against the post-action snapshot; scale-outs
// only ever reduce exposure and are admitted unconditionally once they
// survive conflict checks.
func (s *Service) Scale(ctx context.Context, id uuid.UUID, action ScaleAction) (*Position, error) {
	if id == uuid.Nil {
		return nil, errors.NewValidationError("id", "must be set", id)
	}
	if action.At.IsZero() {
		action.At = time.Now().UTC()
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get position")
	}

	next, err := ApplyScale(*current, action)
	if err != nil {
		return nil, err
	}

	if action.Direction == ScaleIn {
		if err := s.gate.Admit(ctx, &next, action.At); err != nil {
			return nil, err
		}
	}

	fee, err := s.fees.Quote(ctx, current.UserID, action.Price, action.Quantity)
	if err != nil {
		return nil, errors.Wrap(err, "quote commission")
	}
	if action.Direction == ScaleIn {
		next.CommissionEntry = next.CommissionEntry.Add(fee)
	} else {
		next.CommissionExit = next.CommissionExit.Add(fee)
	}

	if err := s.repo.Update(ctx, &next); err != nil {
		return nil, errors.Wrap(err, "update position")
	}

	if action.Direction == ScaleOut {
		realizedDelta := next.RealizedPnL.Sub(current.RealizedPnL)
		if err := s.days.RecordRealized(ctx, next.UserID, action.At, realizedDelta); err != nil {
			// The scale and its day accrual apply together or not at all:
			// restore the pre-scale snapshot before surfacing the error.
			if revertErr := s.repo.Update(ctx, current); revertErr != nil {
				s.log.Errorw("failed to revert position after realized pnl error",
					"position_id", current.ID,
					"error", revertErr,
				)
			}
			return nil, errors.Wrap(err, "record realized pnl")
		}
	}

	if next.Status == StatusClosed {
		s.bus.Publish(events.PositionClosedEvent{
			PositionID:  next.ID,
			UserID:      next.UserID,
			Ticker:      next.Ticker,
			SettledOn:   action.At.UTC().Truncate(24 * time.Hour),
			RealizedPnL: next.RealizedPnL,
			ClosedAt:    action.At,
		})
		s.log.Infow("position closed",
			"position_id", next.ID,
			"ticker", next.Ticker,
			"realized_pnl", next.RealizedPnL.StringFixed(2),
		)
	}

	return &next, nil
}

// Close is a scale-out for the full remaining quantity.
func (s *Service) Close(ctx context.Context, id uuid.UUID, price decimal.Decimal, note string) (*Position, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get position")
	}

	return s.Scale(ctx, id, ScaleAction{
		Direction: ScaleOut,
		Quantity:  current.Quantity,
		Price:     price,
		Note:      note,
	})
}

// PatchFields are the directly editable position fields. Quantity and
// average entry price are absent on purpose: they move only through scale
// operations.
type PatchFields struct {
	StopPrice   *decimal.Decimal
	TargetPrice *decimal.Decimal
	Tags        []string
	Notes       *string
}

// Patch edits stop, target, tags or notes. A stop change alters the
// position's open risk, so the patched snapshot is re-evaluated by
// admission control before being applied.
func (s *Service) Patch(ctx context.Context, id uuid.UUID, fields PatchFields) (*Position, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get position")
	}

	next := *current
	if fields.StopPrice != nil {
		if fields.StopPrice.LessThan(decimal.Zero) {
			return nil, errors.NewValidationError("stop_price", "must not be negative", fields.StopPrice.String())
		}
		next.StopPrice = *fields.StopPrice
	}
	if fields.TargetPrice != nil {
		if fields.TargetPrice.LessThan(decimal.Zero) {
			return nil, errors.NewValidationError("target_price", "must not be negative", fields.TargetPrice.String())
		}
		next.TargetPrice = *fields.TargetPrice
	}
	if fields.Tags != nil {
		next.Tags = fields.Tags
	}
	if fields.Notes != nil {
		next.Notes = *fields.Notes
	}
	next.UpdatedAt = time.Now().UTC()

	if fields.StopPrice != nil && next.Status.IsOpen() {
		if err := s.gate.Admit(ctx, &next, next.UpdatedAt); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, &next); err != nil {
		return nil, errors.Wrap(err, "patch position")
	}
	return &next, nil
}

// GetByID retrieves a position by identifier.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Position, error) {
	if id == uuid.Nil {
		return nil, errors.NewValidationError("id", "must be set", id)
	}
	pos, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get position")
	}
	return pos, nil
}

// GetOpenByUser lists open positions for a user.
func (s *Service) GetOpenByUser(ctx context.Context, userID uuid.UUID) ([]*Position, error) {
	if userID == uuid.Nil {
		return nil, errors.NewValidationError("user_id", "must be set", userID)
	}
	book, err := s.repo.GetOpenByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get open positions")
	}
	return book, nil
}

func validateCreate(spec CreateSpec) error {
	if spec.UserID == uuid.Nil {
		return errors.NewValidationError("user_id", "must be set", spec.UserID)
	}
	if spec.Ticker == "" {
		return errors.NewValidationError("ticker", "must not be empty", spec.Ticker)
	}
	if !spec.Side.Valid() {
		return errors.NewValidationError("side", "must be LONG or SHORT", string(spec.Side))
	}
	if spec.Quantity.LessThanOrEqual(decimal.Zero) {
		return errors.NewValidationError("quantity", "must be positive", spec.Quantity.String())
	}
	if spec.Price.LessThanOrEqual(decimal.Zero) {
		return errors.NewValidationError("price", "must be positive", spec.Price.String())
	}
	if spec.StopPrice.LessThan(decimal.Zero) {
		return errors.NewValidationError("stop_price", "must not be negative", spec.StopPrice.String())
	}
	if spec.StopPrice.GreaterThan(decimal.Zero) {
		if spec.Side == SideLong && spec.StopPrice.GreaterThanOrEqual(spec.Price) {
			return errors.NewValidationError("stop_price", "must be below entry for LONG", spec.StopPrice.String())
		}
		if spec.Side == SideShort && spec.StopPrice.LessThanOrEqual(spec.Price) {
			return errors.NewValidationError("stop_price", "must be above entry for SHORT", spec.StopPrice.String())
		}
	}
	return nil
}
