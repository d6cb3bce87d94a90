package risk

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradeledger/internal/domain/equity"
	"tradeledger/internal/domain/position"
	"tradeledger/pkg/errors"
	"tradeledger/pkg/logger"
)

// BookReader provides the open-position state the gate budgets against.
// position.Repository satisfies it.
type BookReader interface {
	GetOpenByUser(ctx context.Context, userID uuid.UUID) ([]*position.Position, error)
	CountOpenedBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error)
}

// EquityReader resolves the day and equity baseline. equity.Service
// satisfies it.
type EquityReader interface {
	GetOrCreateJournalDay(ctx context.Context, userID uuid.UUID, date time.Time) (*equity.JournalDay, error)
	BaseEquity(ctx context.Context, userID uuid.UUID, day *equity.JournalDay) (decimal.Decimal, error)
}

// CacheClient is the cache surface the gate needs for policy lookups.
// Keeps the domain independent of the concrete Redis implementation.
type CacheClient interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
}

const policyCacheTTL = 5 * time.Minute

// Gate assembles admission proposals from ledger state and is the single
// entry point callers use for both gating and risk figure display.
type Gate struct {
	controller *AdmissionController
	calc       *BudgetCalculator
	policies   Repository
	book       BookReader
	equity     EquityReader
	reconciler *UsageReconciler
	cache      CacheClient // optional
	fallback   Policy      // used when the store has no persisted policy
	log        *logger.Logger
}

// NewGate constructs a risk gate. cache may be nil.
func NewGate(
	controller *AdmissionController,
	calc *BudgetCalculator,
	policies Repository,
	book BookReader,
	equityReader EquityReader,
	reconciler *UsageReconciler,
	cache CacheClient,
	fallback Policy,
) *Gate {
	return &Gate{
		controller: controller,
		calc:       calc,
		policies:   policies,
		book:       book,
		equity:     equityReader,
		reconciler: reconciler,
		cache:      cache,
		fallback:   fallback,
		log:        logger.Get().With("component", "risk_gate"),
	}
}

// Admit evaluates the proposed post-action position against the account's
// budgets and returns the typed admission error on rejection. Implements
// the position ledger's AdmissionGate.
func (g *Gate) Admit(ctx context.Context, proposed *position.Position, at time.Time) error {
	proposal, err := g.buildProposal(ctx, proposed, at)
	if err != nil {
		return err
	}

	decision := g.controller.Evaluate(proposal)
	g.reportLocalUsage(proposal)
	return decision.Err()
}

// View is the computed risk state exposed to the UI layer.
type View struct {
	Figures
	DisplayedDailyUsedPct decimal.Decimal
}

// CurrentFigures computes the account's risk figures for display: caps,
// open risk, daily remaining, and the conservatively reconciled daily
// usage percentage.
func (g *Gate) CurrentFigures(ctx context.Context, userID uuid.UUID, at time.Time) (*View, error) {
	day, err := g.equity.GetOrCreateJournalDay(ctx, userID, at)
	if err != nil {
		return nil, err
	}
	base, err := g.equity.BaseEquity(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	book, err := g.book.GetOpenByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get open positions")
	}
	policy, err := g.policyFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	figures := g.calc.Compute(policy, base, book, day.RealizedPnL, uuid.Nil)
	g.reconciler.ReportLocal(figures.LocalUsedPct)

	return &View{
		Figures:               figures,
		DisplayedDailyUsedPct: g.reconciler.DisplayedUsedPct(),
	}, nil
}

// Reconciler exposes the usage reconciler for the sync worker.
func (g *Gate) Reconciler() *UsageReconciler {
	return g.reconciler
}

func (g *Gate) buildProposal(ctx context.Context, proposed *position.Position, at time.Time) (*Proposal, error) {
	day, err := g.equity.GetOrCreateJournalDay(ctx, proposed.UserID, at)
	if err != nil {
		return nil, err
	}
	base, err := g.equity.BaseEquity(ctx, proposed.UserID, day)
	if err != nil {
		return nil, err
	}
	book, err := g.book.GetOpenByUser(ctx, proposed.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "get open positions")
	}
	policy, err := g.policyFor(ctx, proposed.UserID)
	if err != nil {
		return nil, err
	}
	tradesToday, err := g.book.CountOpenedBetween(ctx, proposed.UserID, day.Date, day.Date.Add(24*time.Hour))
	if err != nil {
		return nil, errors.Wrap(err, "count trades today")
	}

	return &Proposal{
		Position:         proposed,
		Book:             book,
		Policy:           policy,
		BaseEquity:       base,
		RealizedPnLToday: day.RealizedPnL,
		TradesToday:      tradesToday,
	}, nil
}

// reportLocalUsage refreshes the local usage estimate from the whole book
// (no exclusion), so the display reflects the action just taken.
func (g *Gate) reportLocalUsage(p *Proposal) {
	figures := g.calc.Compute(p.Policy, p.BaseEquity, p.Book, p.RealizedPnLToday, uuid.Nil)
	g.reconciler.ReportLocal(figures.LocalUsedPct)
}

func (g *Gate) policyFor(ctx context.Context, userID uuid.UUID) (Policy, error) {
	cacheKey := "risk_policy:" + userID.String()
	if g.cache != nil {
		var cached Policy
		if err := g.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	policy, err := g.policies.GetPolicy(ctx, userID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return g.fallback, nil
		}
		return Policy{}, errors.Wrap(err, "fetch risk policy")
	}

	if g.cache != nil {
		if err := g.cache.Set(ctx, cacheKey, policy, policyCacheTTL); err != nil {
			g.log.Debugf("policy cache write failed: %v", err)
		}
	}
	return *policy, nil
}
