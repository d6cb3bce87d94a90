package risk

import (
	"sync"

	"github.com/shopspring/decimal"
)

// UsageReconciler merges two estimates of daily risk usage: the locally
// derived one, recomputed instantly after every accepted operation, and
// the authoritative store's own figure, which arrives on a lagging refresh
// cadence. The displayed value is always the larger of the two, so a
// client that just opened a risky position never shows a falsely-safe
// number while waiting for the next authoritative refresh.
//
// Server reports are stamped with a request generation; a report for a
// superseded request is discarded rather than applied.
type UsageReconciler struct {
	mu         sync.RWMutex
	localPct   decimal.Decimal
	serverPct  decimal.Decimal
	nextGen    uint64
	appliedGen uint64
}

// NewUsageReconciler constructs a reconciler with both estimates at zero.
func NewUsageReconciler() *UsageReconciler {
	return &UsageReconciler{}
}

// ReportLocal records the instantly computed local estimate.
func (r *UsageReconciler) ReportLocal(usedPct decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.localPct = usedPct
}

// Begin allocates a generation for an outgoing server refresh. The caller
// stamps the eventual report with it.
func (r *UsageReconciler) Begin() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextGen++
	return r.nextGen
}

// ReportServer records a server-reported estimate. Reports older than the
// latest applied one are discarded; returns whether the report was applied.
func (r *UsageReconciler) ReportServer(usedPct decimal.Decimal, generation uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if generation < r.appliedGen {
		return false
	}
	r.appliedGen = generation
	r.serverPct = usedPct
	return true
}

// DisplayedUsedPct is the conservative merge: never smaller than either
// estimate, for every interleaving of refresh arrivals.
func (r *UsageReconciler) DisplayedUsedPct() decimal.Decimal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.serverPct.GreaterThan(r.localPct) {
		return r.serverPct
	}
	return r.localPct
}
