package stage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/scenemcp/internal/infrastructure/monitoring"
)

// DefaultMaintenanceInterval is the period between maintenance passes
const DefaultMaintenanceInterval = 300 * time.Second

// Maintainer periodically trims the registry back to capacity.
type Maintainer struct {
	registry *Registry
	interval time.Duration
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// NewMaintainer creates a scheduler for reg. A non-positive interval uses the default.
func NewMaintainer(reg *Registry, interval time.Duration, logger *zap.Logger, metrics *monitoring.Metrics) *Maintainer {
	if interval <= 0 {
		interval = DefaultMaintenanceInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Maintainer{
		registry: reg,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run performs a pass every interval until ctx is cancelled. A failed pass
// is logged and the loop continues.
func (m *Maintainer) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("Stage maintenance started", zap.Duration("interval", m.interval))
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Stage maintenance stopped")
			return nil
		case <-ticker.C:
			if _, err := m.RunOnce(ctx); err != nil {
				m.logger.Error("Stage maintenance pass failed", zap.Error(err))
			}
		}
	}
}

// RunOnce logs the registry statistics, evicts down to capacity, and
// returns how many stages were removed.
func (m *Maintainer) RunOnce(ctx context.Context) (removed int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("maintenance pass panicked: %v", r)
		}
		m.metrics.RecordMaintenancePass(err)
	}()

	before := m.registry.Stats()
	m.logger.Debug("Stage maintenance pass",
		zap.Int("count", before.Count),
		zap.Int("max_entries", before.MaxEntries),
		zap.Int("modified", before.ModifiedCount))

	removed = m.registry.Evict(ctx)
	if removed > 0 {
		after := m.registry.Stats()
		m.logger.Info("Stage maintenance evicted stages",
			zap.Int("removed", removed),
			zap.Int("count_before", before.Count),
			zap.Int("count", after.Count),
			zap.Int("max_entries", after.MaxEntries),
			zap.Int("modified", after.ModifiedCount))
	}
	return removed, nil
}
