// Package jobs contains the scheduled background jobs.
package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/quantview/riskdesk/internal/clientdata"
	"github.com/quantview/riskdesk/internal/domain"
	"github.com/quantview/riskdesk/internal/modules/alerts"
	"github.com/quantview/riskdesk/internal/modules/allocation"
	"github.com/rs/zerolog"
)

// RiskMonitorJob is the monitoring tick: it reads the current risk
// measurement, computes the allocation, feeds the alert engine, and records
// a snapshot for the history chart.
//
// The job is the single writer for its alert engine. Run serializes itself
// so an overrunning tick cannot interleave with the next scheduled one.
type RiskMonitorJob struct {
	mu        sync.Mutex
	source    domain.RiskDataSource
	calc      *allocation.Calculator
	engine    *alerts.Engine
	snapshots *clientdata.SnapshotRepository
	retain    int
	now       func() time.Time
	log       zerolog.Logger
}

// NewRiskMonitorJob creates a risk monitor job
func NewRiskMonitorJob(
	source domain.RiskDataSource,
	calc *allocation.Calculator,
	engine *alerts.Engine,
	snapshots *clientdata.SnapshotRepository,
	retain int,
	log zerolog.Logger,
) *RiskMonitorJob {
	return &RiskMonitorJob{
		source:    source,
		calc:      calc,
		engine:    engine,
		snapshots: snapshots,
		retain:    retain,
		now:       time.Now,
		log:       log.With().Str("job", "risk_monitor").Logger(),
	}
}

// Name implements scheduler.Job
func (j *RiskMonitorJob) Name() string {
	return "risk_monitor"
}

// Run implements scheduler.Job
func (j *RiskMonitorJob) Run() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	measurement, err := j.source.GetCurrentRisk()
	if err != nil {
		return fmt.Errorf("failed to read current risk: %w", err)
	}

	alloc, err := j.calc.FromMeasurement(measurement)
	if err != nil {
		return fmt.Errorf("failed to compute allocation: %w", err)
	}

	newAlerts := j.engine.OnSnapshot(alloc)

	if j.snapshots != nil {
		if err := j.snapshots.Record(alloc, len(newAlerts), j.now()); err != nil {
			// The tick itself succeeded; a missed chart point is not fatal
			j.log.Warn().Err(err).Msg("Failed to record risk snapshot")
		} else if j.retain > 0 {
			if _, err := j.snapshots.Prune(j.retain); err != nil {
				j.log.Warn().Err(err).Msg("Failed to prune risk snapshots")
			}
		}
	}

	j.log.Debug().
		Float64("utilization", alloc.Utilization).
		Int("new_alerts", len(newAlerts)).
		Msg("Monitoring tick complete")

	return nil
}
