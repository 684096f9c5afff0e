// Package monitor runs the read-only background collectors. Nothing here
// touches a transition lock: listings and counts go straight to the store.
package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/wareflow/parcel-engine/internal/pkg/metrics"
	"github.com/wareflow/parcel-engine/internal/core/domain"
	"github.com/wareflow/parcel-engine/internal/core/ports"
)

var allStatuses = []domain.ParcelStatus{
	domain.StatusWarehouse,
	domain.StatusStaged,
	domain.StatusLoaded,
	domain.StatusInTransit,
	domain.StatusArrived,
	domain.StatusCollected,
}

// StatusGauge periodically refreshes the parcels_by_status gauge.
type StatusGauge struct {
	parcels  ports.ParcelRepository
	interval time.Duration
	log      zerolog.Logger
}

func NewStatusGauge(parcels ports.ParcelRepository, interval time.Duration, log zerolog.Logger) *StatusGauge {
	if interval <= 0 {
		interval = time.Minute
	}
	return &StatusGauge{parcels: parcels, interval: interval, log: log}
}

// Run refreshes the gauge until ctx is cancelled. Failures are logged and
// the stale values stand until the next tick.
func (g *StatusGauge) Run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	g.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.refresh(ctx)
		}
	}
}

func (g *StatusGauge) refresh(ctx context.Context) {
	counts, err := g.parcels.CountByStatus(ctx)
	if err != nil {
		g.log.Warn().Err(err).Msg("status gauge refresh failed")
		return
	}
	for _, s := range allStatuses {
		metrics.ParcelsByStatus.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}
