package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/internal/domain/position"
	"tradeledger/internal/testsupport"
	"tradeledger/pkg/errors"
)

func seedPosition(userID uuid.UUID) *position.Position {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &position.Position{
		ID:              uuid.New(),
		UserID:          userID,
		Ticker:          "AAPL",
		Side:            position.SideLong,
		Quantity:        decimal.NewFromInt(100),
		AvgEntryPrice:   decimal.RequireFromString("185.50"),
		StopPrice:       decimal.RequireFromString("180.00"),
		TargetPrice:     decimal.RequireFromString("200.00"),
		CommissionEntry: decimal.RequireFromString("1.00"),
		CommissionExit:  decimal.Zero,
		RealizedPnL:     decimal.Zero,
		Tags:            []string{"swing", "tech"},
		Status:          position.StatusOpen,
		OpenedAt:        now,
		UpdatedAt:       now,
	}
}

func TestPositionRepository_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	helper := testsupport.NewTestPostgres(t)
	repo := NewPositionRepository(helper.Tx())
	ctx := context.Background()

	seeded := seedPosition(uuid.New())
	require.NoError(t, repo.Create(ctx, seeded))

	got, err := repo.GetByID(ctx, seeded.ID)
	require.NoError(t, err)

	assert.Equal(t, seeded.Ticker, got.Ticker)
	assert.Equal(t, seeded.Side, got.Side)
	assert.True(t, got.Quantity.Equal(seeded.Quantity))
	assert.True(t, got.AvgEntryPrice.Equal(seeded.AvgEntryPrice))
	assert.Equal(t, []string{"swing", "tech"}, []string(got.Tags))
	assert.Equal(t, position.StatusOpen, got.Status)
	assert.Nil(t, got.ClosedAt)
}

func TestPositionRepository_GetByID_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	helper := testsupport.NewTestPostgres(t)
	repo := NewPositionRepository(helper.Tx())

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, errors.ErrPositionNotFound))
}

func TestPositionRepository_GetOpenByUser(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	helper := testsupport.NewTestPostgres(t)
	repo := NewPositionRepository(helper.Tx())
	ctx := context.Background()

	userID := uuid.New()

	open := seedPosition(userID)
	require.NoError(t, repo.Create(ctx, open))

	closed := seedPosition(userID)
	closed.Quantity = decimal.Zero
	closed.Status = position.StatusClosed
	closedAt := time.Now().UTC()
	closed.ClosedAt = &closedAt
	require.NoError(t, repo.Create(ctx, closed))

	other := seedPosition(uuid.New())
	require.NoError(t, repo.Create(ctx, other))

	book, err := repo.GetOpenByUser(ctx, userID)
	require.NoError(t, err)

	require.Len(t, book, 1)
	assert.Equal(t, open.ID, book[0].ID)
}

func TestPositionRepository_Update(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	helper := testsupport.NewTestPostgres(t)
	repo := NewPositionRepository(helper.Tx())
	ctx := context.Background()

	seeded := seedPosition(uuid.New())
	require.NoError(t, repo.Create(ctx, seeded))

	seeded.Quantity = decimal.NewFromInt(60)
	seeded.RealizedPnL = decimal.RequireFromString("120.00")
	seeded.CommissionExit = decimal.RequireFromString("1.00")
	seeded.Notes = "took partial profit"
	seeded.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, seeded))

	got, err := repo.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.True(t, got.Quantity.Equal(decimal.NewFromInt(60)))
	assert.True(t, got.RealizedPnL.Equal(seeded.RealizedPnL))
	assert.Equal(t, "took partial profit", got.Notes)

	t.Run("unknown id", func(t *testing.T) {
		missing := seedPosition(uuid.New())
		err := repo.Update(ctx, missing)
		assert.True(t, errors.Is(err, errors.ErrPositionNotFound))
	})
}

func TestPositionRepository_CountOpenedBetween(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	helper := testsupport.NewTestPostgres(t)
	repo := NewPositionRepository(helper.Tx())
	ctx := context.Background()

	userID := uuid.New()
	dayStart := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)

	inside := seedPosition(userID)
	inside.OpenedAt = dayStart.Add(10 * time.Hour)
	require.NoError(t, repo.Create(ctx, inside))

	before := seedPosition(userID)
	before.OpenedAt = dayStart.Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, before))

	count, err := repo.CountOpenedBetween(ctx, userID, dayStart, dayStart.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPositionRepository_Delete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	helper := testsupport.NewTestPostgres(t)
	repo := NewPositionRepository(helper.Tx())
	ctx := context.Background()

	seeded := seedPosition(uuid.New())
	require.NoError(t, repo.Create(ctx, seeded))
	require.NoError(t, repo.Delete(ctx, seeded.ID))

	_, err := repo.GetByID(ctx, seeded.ID)
	assert.True(t, errors.Is(err, errors.ErrPositionNotFound))
}
