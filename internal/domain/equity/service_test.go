package equity

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/pkg/errors"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeRepo struct {
	mu          sync.Mutex
	days        map[uuid.UUID]*JournalDay
	byUserDate  map[string]uuid.UUID
	adjustments map[uuid.UUID][]Adjustment
	lastKnown   decimal.Decimal

	createCalls atomic.Int64
	createDelay time.Duration
}

func newFakeEquityRepo() *fakeRepo {
	return &fakeRepo{
		days:        make(map[uuid.UUID]*JournalDay),
		byUserDate:  make(map[string]uuid.UUID),
		adjustments: make(map[uuid.UUID][]Adjustment),
	}
}

func dayKey(userID uuid.UUID, date time.Time) string {
	return userID.String() + ":" + date.Format("2006-01-02")
}

func (r *fakeRepo) GetOrCreateDay(_ context.Context, userID uuid.UUID, date time.Time) (*JournalDay, error) {
	if r.createDelay > 0 {
		time.Sleep(r.createDelay)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := dayKey(userID, date)
	if id, ok := r.byUserDate[key]; ok {
		cp := *r.days[id]
		return &cp, nil
	}

	r.createCalls.Add(1)
	day := &JournalDay{
		ID:        uuid.New(),
		UserID:    userID,
		Date:      date,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	r.days[day.ID] = day
	r.byUserDate[key] = day.ID

	cp := *day
	return &cp, nil
}

func (r *fakeRepo) GetDay(_ context.Context, id uuid.UUID) (*JournalDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	day, ok := r.days[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	cp := *day
	return &cp, nil
}

func (r *fakeRepo) UpdateDayStartEquity(_ context.Context, dayID uuid.UUID, value decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	day, ok := r.days[dayID]
	if !ok {
		return errors.ErrNotFound
	}
	day.DayStartEquity = value
	return nil
}

func (r *fakeRepo) AddRealizedPnL(_ context.Context, dayID uuid.UUID, delta decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	day, ok := r.days[dayID]
	if !ok {
		return errors.ErrNotFound
	}
	day.RealizedPnL = day.RealizedPnL.Add(delta)
	return nil
}

func (r *fakeRepo) LastKnownEquity(_ context.Context, _ uuid.UUID) (decimal.Decimal, error) {
	return r.lastKnown, nil
}

func (r *fakeRepo) ListAdjustments(_ context.Context, dayID uuid.UUID) ([]Adjustment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Adjustment(nil), r.adjustments[dayID]...), nil
}

func (r *fakeRepo) CreateAdjustment(_ context.Context, adjustment *Adjustment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adjustments[adjustment.DayID] = append(r.adjustments[adjustment.DayID], *adjustment)
	return nil
}

func (r *fakeRepo) DeleteAdjustment(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for dayID, adjs := range r.adjustments {
		for i, adj := range adjs {
			if adj.ID == id {
				r.adjustments[dayID] = append(adjs[:i], adjs[i+1:]...)
				return nil
			}
		}
	}
	return errors.ErrAdjustmentNotFound
}

func mustDay(t *testing.T, svc *Service, repo *fakeRepo, startEquity string) *JournalDay {
	t.Helper()
	day, err := svc.GetOrCreateJournalDay(context.Background(), uuid.New(), time.Now().UTC())
	require.NoError(t, err)
	if startEquity != "" {
		require.NoError(t, repo.UpdateDayStartEquity(context.Background(), day.ID, d(startEquity)))
	}
	return day
}

func TestGetOrCreateJournalDay_Coalesces(t *testing.T) {
	repo := newFakeEquityRepo()
	repo.createDelay = 20 * time.Millisecond
	svc := NewService(repo)

	userID := uuid.New()
	at := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

	const callers = 16
	results := make([]*JournalDay, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			day, err := svc.GetOrCreateJournalDay(context.Background(), userID, at)
			assert.NoError(t, err)
			results[i] = day
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), repo.createCalls.Load(), "concurrent callers must coalesce into one creation")
	for _, day := range results {
		require.NotNil(t, day)
		assert.Equal(t, results[0].ID, day.ID)
	}

	// A later distinct call proceeds normally after the in-flight marker clears
	again, err := svc.GetOrCreateJournalDay(context.Background(), userID, at)
	require.NoError(t, err)
	assert.Equal(t, results[0].ID, again.ID)
}

func TestGetOrCreateJournalDay_TruncatesToDate(t *testing.T) {
	repo := newFakeEquityRepo()
	svc := NewService(repo)
	userID := uuid.New()

	morning, err := svc.GetOrCreateJournalDay(context.Background(), userID,
		time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	evening, err := svc.GetOrCreateJournalDay(context.Background(), userID,
		time.Date(2026, 5, 2, 21, 45, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, morning.ID, evening.ID)
	assert.Equal(t, time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), morning.Date)
}

func TestApplyAdjustment_SignNormalization(t *testing.T) {
	tests := []struct {
		name     string
		reason   AdjustmentReason
		amount   string
		expected string
	}{
		{"deposit positive", ReasonDeposit, "500", "500"},
		{"deposit caller negated", ReasonDeposit, "-500", "500"},
		{"withdrawal negative", ReasonWithdrawal, "-50", "-50"},
		{"withdrawal caller positive", ReasonWithdrawal, "50", "-50"},
		{"fee caller positive", ReasonFee, "3.95", "-3.95"},
		{"correction keeps positive", ReasonCorrection, "12", "12"},
		{"correction keeps negative", ReasonCorrection, "-12", "-12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeEquityRepo()
			svc := NewService(repo)
			day := mustDay(t, svc, repo, "1000")

			snap, err := svc.ApplyAdjustment(context.Background(), day.ID, tt.reason, d(tt.amount), "")
			require.NoError(t, err)

			require.Len(t, snap.Adjustments, 1)
			assert.True(t, snap.Adjustments[0].Amount.Equal(d(tt.expected)),
				"stored %s, expected %s", snap.Adjustments[0].Amount, tt.expected)
			assert.True(t, snap.EffectiveEquity.Equal(d("1000").Add(d(tt.expected))))
		})
	}
}

func TestApplyAdjustment_Validation(t *testing.T) {
	repo := newFakeEquityRepo()
	svc := NewService(repo)
	day := mustDay(t, svc, repo, "1000")

	_, err := svc.ApplyAdjustment(context.Background(), day.ID, "BONUS", d("10"), "")
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = svc.ApplyAdjustment(context.Background(), day.ID, ReasonDeposit, decimal.Zero, "")
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestRemoveAdjustment_RevertsEffectiveEquity(t *testing.T) {
	repo := newFakeEquityRepo()
	svc := NewService(repo)
	day := mustDay(t, svc, repo, "2000")

	snap, err := svc.ApplyAdjustment(context.Background(), day.ID, ReasonWithdrawal, d("300"), "")
	require.NoError(t, err)
	require.True(t, snap.EffectiveEquity.Equal(d("1700")))

	snap, err = svc.RemoveAdjustment(context.Background(), day.ID, snap.Adjustments[0].ID)
	require.NoError(t, err)

	assert.Empty(t, snap.Adjustments)
	assert.True(t, snap.EffectiveEquity.Equal(d("2000")))
}

func TestSnapshot_EffectiveEquity(t *testing.T) {
	repo := newFakeEquityRepo()
	svc := NewService(repo)
	day := mustDay(t, svc, repo, "10000")

	require.NoError(t, svc.RecordRealizedPnL(context.Background(), day.ID, d("-250")))
	_, err := svc.ApplyAdjustment(context.Background(), day.ID, ReasonDeposit, d("1000"), "wire in")
	require.NoError(t, err)
	snap, err := svc.ApplyAdjustment(context.Background(), day.ID, ReasonFee, d("25"), "platform fee")
	require.NoError(t, err)

	// 10000 - 250 + 1000 - 25
	assert.True(t, snap.EffectiveEquity.Equal(d("10725")))
	assert.True(t, snap.AdjustmentsTotal.Equal(d("975")))
}

func TestRecordRealized_ResolvesSettlementDay(t *testing.T) {
	repo := newFakeEquityRepo()
	svc := NewService(repo)
	userID := uuid.New()
	at := time.Date(2026, 7, 1, 14, 30, 0, 0, time.UTC)

	require.NoError(t, svc.RecordRealized(context.Background(), userID, at, d("120")))

	day, err := svc.GetOrCreateJournalDay(context.Background(), userID, at)
	require.NoError(t, err)
	assert.True(t, day.RealizedPnL.Equal(d("120")))
}

func TestBaseEquity(t *testing.T) {
	repo := newFakeEquityRepo()
	repo.lastKnown = d("8400")
	svc := NewService(repo)
	userID := uuid.New()

	t.Run("day start wins when set", func(t *testing.T) {
		day := &JournalDay{DayStartEquity: d("9000")}
		base, err := svc.BaseEquity(context.Background(), userID, day)
		require.NoError(t, err)
		assert.True(t, base.Equal(d("9000")))
	})

	t.Run("falls back to last known", func(t *testing.T) {
		day := &JournalDay{DayStartEquity: decimal.Zero}
		base, err := svc.BaseEquity(context.Background(), userID, day)
		require.NoError(t, err)
		assert.True(t, base.Equal(d("8400")))
	})

	t.Run("nil day falls back", func(t *testing.T) {
		base, err := svc.BaseEquity(context.Background(), userID, nil)
		require.NoError(t, err)
		assert.True(t, base.Equal(d("8400")))
	})
}

func TestSetDayStartEquity(t *testing.T) {
	repo := newFakeEquityRepo()
	svc := NewService(repo)
	day := mustDay(t, svc, repo, "")

	snap, err := svc.SetDayStartEquity(context.Background(), day.ID, d("12500"))
	require.NoError(t, err)
	assert.True(t, snap.Day.DayStartEquity.Equal(d("12500")))
	assert.True(t, snap.EffectiveEquity.Equal(d("12500")))

	_, err = svc.SetDayStartEquity(context.Background(), day.ID, d("-1"))
	assert.True(t, errors.Is(err, errors.ErrValidation))
}
