package workers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tradeledger/internal/domain/risk"
	"tradeledger/pkg/errors"
)

const riskUsageCacheTTL = 2 * time.Minute

// RiskUsageSyncWorker pulls the ledger store's own daily-risk-usage
// figure on an interval and feeds it to the usage reconciler. Each
// request carries a generation so a response that arrives for a
// superseded request is discarded instead of applied.
type RiskUsageSyncWorker struct {
	*BaseWorker
	userID     uuid.UUID
	repo       risk.Repository
	reconciler *risk.UsageReconciler
	cache      risk.CacheClient // optional
}

// NewRiskUsageSyncWorker creates the sync worker for one account.
func NewRiskUsageSyncWorker(
	userID uuid.UUID,
	repo risk.Repository,
	reconciler *risk.UsageReconciler,
	cache risk.CacheClient,
	interval time.Duration,
	enabled bool,
) *RiskUsageSyncWorker {
	return &RiskUsageSyncWorker{
		BaseWorker: NewBaseWorker("risk_usage_sync", interval, enabled),
		userID:     userID,
		repo:       repo,
		reconciler: reconciler,
		cache:      cache,
	}
}

// Run fetches the server-reported usage and applies it if still current.
func (w *RiskUsageSyncWorker) Run(ctx context.Context) error {
	generation := w.reconciler.Begin()

	pct, err := w.repo.ReportedDailyUsage(ctx, w.userID, time.Now().UTC())
	if err != nil {
		w.RecordError(err)
		return errors.Wrap(err, "fetch reported daily usage")
	}

	if !w.reconciler.ReportServer(pct, generation) {
		w.Log().Debugw("stale usage report discarded", "generation", generation)
		w.RecordRun()
		return nil
	}

	if w.cache != nil {
		report := risk.UsageReport{UsedPct: pct, Generation: generation}
		if err := w.cache.Set(ctx, "risk_usage:"+w.userID.String(), report, riskUsageCacheTTL); err != nil {
			w.Log().Debugf("usage cache write failed: %v", err)
		}
	}

	w.RecordRun()
	return nil
}
