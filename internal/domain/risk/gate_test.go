package risk

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/internal/domain/equity"
	"tradeledger/internal/domain/position"
	"tradeledger/pkg/errors"
)

type fakeBook struct {
	open        []*position.Position
	tradesToday int
}

func (b *fakeBook) GetOpenByUser(_ context.Context, _ uuid.UUID) ([]*position.Position, error) {
	return b.open, nil
}

func (b *fakeBook) CountOpenedBetween(_ context.Context, _ uuid.UUID, _, _ time.Time) (int, error) {
	return b.tradesToday, nil
}

type fakeEquity struct {
	day  *equity.JournalDay
	base decimal.Decimal
}

func (e *fakeEquity) GetOrCreateJournalDay(_ context.Context, userID uuid.UUID, date time.Time) (*equity.JournalDay, error) {
	if e.day == nil {
		e.day = &equity.JournalDay{
			ID:     uuid.New(),
			UserID: userID,
			Date:   time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
		}
	}
	return e.day, nil
}

func (e *fakeEquity) BaseEquity(_ context.Context, _ uuid.UUID, _ *equity.JournalDay) (decimal.Decimal, error) {
	return e.base, nil
}

type fakePolicies struct {
	policy *Policy
}

func (p *fakePolicies) GetPolicy(_ context.Context, _ uuid.UUID) (*Policy, error) {
	if p.policy == nil {
		return nil, errors.ErrNotFound
	}
	return p.policy, nil
}

func (p *fakePolicies) SavePolicy(_ context.Context, _ uuid.UUID, policy *Policy) error {
	p.policy = policy
	return nil
}

func (p *fakePolicies) ReportedDailyUsage(_ context.Context, _ uuid.UUID, _ time.Time) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func newTestGate(book *fakeBook, eq *fakeEquity, policies *fakePolicies) *Gate {
	calc := NewBudgetCalculator()
	return NewGate(
		NewAdmissionController(calc),
		calc,
		policies,
		book,
		eq,
		NewUsageReconciler(),
		nil,
		defaultPolicy(),
	)
}

func TestGateAdmit(t *testing.T) {
	now := time.Now().UTC()

	t.Run("allows within budgets", func(t *testing.T) {
		gate := newTestGate(&fakeBook{}, &fakeEquity{base: d("10000")}, &fakePolicies{})

		err := gate.Admit(context.Background(), openPos(position.SideLong, "100", "50", "49"), now)
		assert.NoError(t, err)
	})

	t.Run("rejects over the per-trade cap with typed error", func(t *testing.T) {
		gate := newTestGate(&fakeBook{}, &fakeEquity{base: d("10000")}, &fakePolicies{})

		err := gate.Admit(context.Background(), openPos(position.SideLong, "150", "50", "49"), now)
		require.Error(t, err)

		var admission *errors.AdmissionError
		require.True(t, errors.As(err, &admission))
		assert.Equal(t, errors.ReasonPerTradeCapExceeded, admission.Reason)
		assert.True(t, admission.Risk.Equal(d("150")))
		assert.True(t, admission.Limit.Equal(d("100")))
	})

	t.Run("persisted policy overrides the fallback", func(t *testing.T) {
		policies := &fakePolicies{policy: &Policy{
			MaxRiskPerTradePct: d("2"),
			MaxDailyLossPct:    d("6"),
		}}
		gate := newTestGate(&fakeBook{}, &fakeEquity{base: d("10000")}, policies)

		// Risks $150, inside the looser 2% ($200) cap
		err := gate.Admit(context.Background(), openPos(position.SideLong, "150", "50", "49"), now)
		assert.NoError(t, err)
	})

	t.Run("no baseline admits everything", func(t *testing.T) {
		gate := newTestGate(&fakeBook{}, &fakeEquity{base: decimal.Zero}, &fakePolicies{})

		err := gate.Admit(context.Background(), openPos(position.SideLong, "1000000", "50", "0"), now)
		assert.NoError(t, err)
	})
}

func TestGateCurrentFigures(t *testing.T) {
	book := &fakeBook{open: []*position.Position{
		openPos(position.SideLong, "100", "20", "19"), // $100 of the $300 budget
	}}
	gate := newTestGate(book, &fakeEquity{base: d("10000")}, &fakePolicies{})

	view, err := gate.CurrentFigures(context.Background(), uuid.New(), time.Now().UTC())
	require.NoError(t, err)

	assert.True(t, view.PerTradeCap.Equal(d("100")))
	assert.True(t, view.OpenRisk.Equal(d("100")))
	assert.True(t, view.DailyRemaining.Equal(d("200")))
	assert.True(t, view.DisplayedDailyUsedPct.GreaterThanOrEqual(view.LocalUsedPct))

	// A larger lagging-free server figure raises the display
	gen := gate.Reconciler().Begin()
	gate.Reconciler().ReportServer(d("90"), gen)

	view, err = gate.CurrentFigures(context.Background(), uuid.New(), time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, view.DisplayedDailyUsedPct.Equal(d("90")))
}
