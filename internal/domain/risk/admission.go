package risk

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradeledger/internal/domain/position"
	"tradeledger/pkg/errors"
	"tradeledger/pkg/logger"
)

// AdmissionController is the only component with reject/allow authority
// over mutating position operations. It evaluates the position as it
// would exist after the action, against the risk policy and the rest of
// the book unchanged.
type AdmissionController struct {
	calc *BudgetCalculator
	log  *logger.Logger
}

// NewAdmissionController constructs an admission controller.
func NewAdmissionController(calc *BudgetCalculator) *AdmissionController {
	return &AdmissionController{
		calc: calc,
		log:  logger.Get().With("component", "admission"),
	}
}

// Proposal is everything Evaluate needs: the proposed post-action
// position, the current book, the policy, and the day's equity state.
type Proposal struct {
	Position         *position.Position
	Book             []*position.Position
	Policy           Policy
	BaseEquity       decimal.Decimal
	RealizedPnLToday decimal.Decimal
	TradesToday      int // positions opened on the journal day, proposed one excluded
}

// Decision is an admission outcome with the figures that produced it.
type Decision struct {
	Allowed bool
	Reason  errors.AdmissionReason
	Risk    decimal.Decimal // proposed position risk, $
	Limit   decimal.Decimal // the violated budget, $
	Figures Figures
}

// Err returns nil for an allowed decision, otherwise the typed admission
// error carrying the numeric figures.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return errors.NewAdmissionError(d.Reason, d.Risk, d.Limit)
}

// Evaluate gates a proposed position change.
//
// Guards are only enforced when a positive equity baseline exists; with no
// baseline the system cannot meaningfully bound risk and must not invent
// one, so everything is allowed. When enforced the controller fails
// closed: a position whose risk cannot be computed (no quantity or no
// stop) is rejected rather than waved through.
func (c *AdmissionController) Evaluate(p *Proposal) Decision {
	figures := c.calc.Compute(p.Policy, p.BaseEquity, p.Book, p.RealizedPnLToday, p.Position.ID)

	d := Decision{Allowed: true, Figures: figures}
	if !figures.GuardsEnabled {
		return d
	}

	if p.Position.Quantity.LessThanOrEqual(decimal.Zero) || !p.Position.HasStop() {
		return c.reject(d, errors.ReasonMissingRiskInputs, decimal.Zero, decimal.Zero)
	}

	risk := c.calc.PositionRisk(p.Position)
	d.Risk = risk

	if risk.GreaterThan(figures.PerTradeCap) {
		return c.reject(d, errors.ReasonPerTradeCapExceeded, risk, figures.PerTradeCap)
	}

	if risk.GreaterThan(figures.DailyRemaining) {
		return c.reject(d, errors.ReasonDailyBudgetExceeded, risk, figures.DailyRemaining)
	}

	if p.Policy.MaxTradesPerDay > 0 && isNewOpen(p) && p.TradesToday >= p.Policy.MaxTradesPerDay {
		return c.reject(d, errors.ReasonMaxTradesPerDayReached,
			decimal.NewFromInt(int64(p.TradesToday)),
			decimal.NewFromInt(int64(p.Policy.MaxTradesPerDay)))
	}

	return d
}

func (c *AdmissionController) reject(d Decision, reason errors.AdmissionReason, risk, limit decimal.Decimal) Decision {
	d.Allowed = false
	d.Reason = reason
	d.Risk = risk
	d.Limit = limit
	c.log.Infow("admission rejected",
		"reason", reason.String(),
		"risk", risk.StringFixed(2),
		"limit", limit.StringFixed(2),
	)
	return d
}

// isNewOpen reports whether the proposal opens a brand new position (as
// opposed to re-evaluating one already in the book).
func isNewOpen(p *Proposal) bool {
	if p.Position.ID == uuid.Nil {
		return true
	}
	for _, existing := range p.Book {
		if existing.ID == p.Position.ID {
			return false
		}
	}
	return true
}
