package risk

import (
	"github.com/shopspring/decimal"
)

// Policy is the per-account risk configuration. Percentages are always
// relative to the base equity baseline supplied by the equity ledger.
type Policy struct {
	MaxRiskPerTradePct decimal.Decimal `db:"max_risk_per_trade_pct"`
	MaxDailyLossPct    decimal.Decimal `db:"max_daily_loss_pct"`
	MaxTradesPerDay    int             `db:"max_trades_per_day"` // 0 = unlimited
}

// Figures bundles every derived risk number for one account state.
type Figures struct {
	BaseEquity        decimal.Decimal
	PerTradeCap       decimal.Decimal // $
	DailyBudget       decimal.Decimal // $
	OpenRisk          decimal.Decimal // $ across OPEN positions
	RealizedLossToday decimal.Decimal // $, never negative
	DailyRemaining    decimal.Decimal // $, never negative
	LocalUsedPct      decimal.Decimal // share of daily budget consumed, %

	// GuardsEnabled is false when no equity baseline exists; without it
	// risk cannot be meaningfully bounded and admission allows everything
	GuardsEnabled bool
}

// UsageReport is the server-reported daily-risk-usage snapshot cached from
// the authoritative ledger store on its own refresh cadence.
type UsageReport struct {
	UsedPct    decimal.Decimal `json:"used_pct"`
	Generation uint64          `json:"generation"`
}
