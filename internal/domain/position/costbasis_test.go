package position

import (
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

func openPosition(side Side, quantity, avgEntry string) Position {
	return Position{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		Ticker:        "AAPL",
		Side:          side,
		Quantity:      d(quantity),
		AvgEntryPrice: d(avgEntry),
		Status:        StatusOpen,
		OpenedAt:      time.Now().UTC(),
	}
}

func TestApplyScale_WeightedAverageInvariant(t *testing.T) {
	// For any sequence of scale-ins from empty, the average must equal
	// sum(price*qty)/sum(qty)
	fills := []struct{ price, qty string }{
		{"10", "100"},
		{"12.50", "40"},
		{"9.75", "260"},
		{"11.11", "33"},
	}

	pos := openPosition(SideLong, "0", "0")
	totalCost := decimal.Zero
	totalQty := decimal.Zero

	for _, fill := range fills {
		next, err := ApplyScale(pos, ScaleAction{
			Direction: ScaleIn,
			Quantity:  d(fill.qty),
			Price:     d(fill.price),
			At:        time.Now().UTC(),
		})
		require.NoError(t, err)
		pos = next

		totalCost = totalCost.Add(d(fill.price).Mul(d(fill.qty)))
		totalQty = totalQty.Add(d(fill.qty))
	}

	expectedAvg := totalCost.Div(totalQty)
	diff := pos.AvgEntryPrice.Sub(expectedAvg).Abs()
	assert.True(t, diff.LessThan(d("0.0000001")),
		"average %s deviates from weighted %s", pos.AvgEntryPrice, expectedAvg)
	assert.True(t, pos.Quantity.Equal(totalQty))
}

func TestApplyScale_ScaleOutNeutrality(t *testing.T) {
	// Scaling out any quantity <= current never changes the average entry
	pos := openPosition(SideLong, "300", "25.40")

	for _, qty := range []string{"1", "100", "150"} {
		next, err := ApplyScale(pos, ScaleAction{
			Direction: ScaleOut,
			Quantity:  d(qty),
			Price:     d("30"),
			At:        time.Now().UTC(),
		})
		require.NoError(t, err)
		assert.True(t, next.AvgEntryPrice.Equal(pos.AvgEntryPrice),
			"scale-out of %s moved the average", qty)
	}
}

func TestApplyScale_FullRoundTrip(t *testing.T) {
	// Scale in Q at P then out Q returns quantity to zero and closes
	empty := openPosition(SideLong, "0", "0")

	in, err := ApplyScale(empty, ScaleAction{
		Direction: ScaleIn, Quantity: d("50"), Price: d("20"), At: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.True(t, in.Quantity.Equal(d("50")))
	require.True(t, in.AvgEntryPrice.Equal(d("20")))

	out, err := ApplyScale(in, ScaleAction{
		Direction: ScaleOut, Quantity: d("50"), Price: d("22"), At: time.Now().UTC(),
	})
	require.NoError(t, err)

	assert.True(t, out.Quantity.IsZero())
	assert.Equal(t, StatusClosed, out.Status)
	require.NotNil(t, out.ClosedAt)
	// Average frozen for historical display
	assert.True(t, out.AvgEntryPrice.Equal(d("20")))
	// (22-20)*50 = 100 realized
	assert.True(t, out.RealizedPnL.Equal(d("100")))
}

func TestApplyScale_RealizedPnLBySide(t *testing.T) {
	tests := []struct {
		name     string
		side     Side
		exit     string
		expected string
	}{
		{"long profit", SideLong, "110", "1000"},
		{"long loss", SideLong, "95", "-500"},
		{"short profit", SideShort, "95", "500"},
		{"short loss", SideShort, "110", "-1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := openPosition(tt.side, "100", "100")
			next, err := ApplyScale(pos, ScaleAction{
				Direction: ScaleOut, Quantity: d("100"), Price: d(tt.exit), At: time.Now().UTC(),
			})
			require.NoError(t, err)
			assert.True(t, next.RealizedPnL.Equal(d(tt.expected)),
				"expected %s, got %s", tt.expected, next.RealizedPnL)
		})
	}
}

func TestApplyScale_OverScaleOutIsConflict(t *testing.T) {
	pos := openPosition(SideLong, "10", "50")

	_, err := ApplyScale(pos, ScaleAction{
		Direction: ScaleOut, Quantity: d("11"), Price: d("55"), At: time.Now().UTC(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrLedgerConflict))
}

func TestApplyScale_ClosedPositionRejected(t *testing.T) {
	pos := openPosition(SideLong, "10", "50")
	pos.Status = StatusClosed

	_, err := ApplyScale(pos, ScaleAction{
		Direction: ScaleIn, Quantity: d("5"), Price: d("50"), At: time.Now().UTC(),
	})
	assert.True(t, errors.Is(err, errors.ErrPositionClosed))

	// Closed wins over action validation, so closing a position with zero
	// remaining quantity still reports the closed state
	pos.Quantity = decimal.Zero
	_, err = ApplyScale(pos, ScaleAction{
		Direction: ScaleOut, Quantity: decimal.Zero, Price: d("50"), At: time.Now().UTC(),
	})
	assert.True(t, errors.Is(err, errors.ErrPositionClosed))
}

func TestApplyScale_Validation(t *testing.T) {
	pos := openPosition(SideLong, "10", "50")

	tests := []struct {
		name   string
		action ScaleAction
	}{
		{"bad direction", ScaleAction{Direction: "SIDEWAYS", Quantity: d("1"), Price: d("1")}},
		{"zero quantity", ScaleAction{Direction: ScaleIn, Quantity: decimal.Zero, Price: d("1")}},
		{"negative quantity", ScaleAction{Direction: ScaleIn, Quantity: d("-5"), Price: d("1")}},
		{"zero price", ScaleAction{Direction: ScaleIn, Quantity: d("1"), Price: decimal.Zero}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyScale(pos, tt.action)
			assert.True(t, errors.Is(err, errors.ErrValidation))
		})
	}
}

func TestApplyScale_DoesNotMutateInput(t *testing.T) {
	pos := openPosition(SideLong, "100", "10")

	_, err := ApplyScale(pos, ScaleAction{
		Direction: ScaleIn, Quantity: d("100"), Price: d("20"), At: time.Now().UTC(),
	})
	require.NoError(t, err)

	assert.True(t, pos.Quantity.Equal(d("100")))
	assert.True(t, pos.AvgEntryPrice.Equal(d("10")))
}
