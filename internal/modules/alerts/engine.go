package alerts

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quantview/riskdesk/internal/domain"
	"github.com/quantview/riskdesk/internal/modules/allocation"
	"github.com/rs/zerolog"
)

// trendDeltaPct is the utilization change, in percentage points, that
// triggers a trend alert between consecutive snapshots.
const trendDeltaPct = 10.0

// Config holds engine construction options.
type Config struct {
	Thresholds Thresholds
	MaxAlerts  int
	Enabled    bool
	Now        func() time.Time // injected clock; defaults to time.Now
}

// Engine consumes risk-allocation snapshots and maintains the alert log.
//
// OnSnapshot is single-writer: one engine instance monitors one portfolio
// and exactly one caller (the monitor job) may tick it. The internal mutex
// only protects readers (Alerts, Dismiss, ClearAll) racing a tick; it does
// not make interleaved OnSnapshot calls meaningful, because the trend
// detection depends on the previous tick's utilization.
type Engine struct {
	mu          sync.Mutex
	alerts      []Alert
	prevUtil    *float64
	thresholds  Thresholds
	maxAlerts   int
	enabled     bool
	now         func() time.Time
	log         zerolog.Logger
	subscribers map[int]chan Alert
	nextSubID   int
}

// NewEngine creates an alert engine for a single monitored portfolio.
func NewEngine(cfg Config, log zerolog.Logger) *Engine {
	if cfg.MaxAlerts <= 0 {
		cfg.MaxAlerts = 5
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	zero := Thresholds{}
	if cfg.Thresholds == zero {
		cfg.Thresholds = DefaultThresholds()
	}

	return &Engine{
		thresholds:  cfg.Thresholds,
		maxAlerts:   cfg.MaxAlerts,
		enabled:     cfg.Enabled,
		now:         cfg.Now,
		log:         log.With().Str("component", "alert_engine").Logger(),
		subscribers: make(map[int]chan Alert),
	}
}

// OnSnapshot evaluates one monitoring tick and returns the alerts it added.
// A disabled engine is a no-op, never an error. Absence of a previous
// utilization is the normal initial state.
func (e *Engine) OnSnapshot(alloc allocation.RiskAllocation) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled {
		return nil
	}

	util := alloc.Utilization
	now := e.now()

	var fresh []Alert

	if a := e.thresholdAlert(util, now); a != nil {
		fresh = append(fresh, *a)
	}
	if a := e.trendAlert(util, now); a != nil {
		fresh = append(fresh, *a)
	}
	if a := e.capacityAlert(util, now); a != nil {
		fresh = append(fresh, *a)
	}

	if len(fresh) > 0 {
		e.merge(fresh)
	}

	e.prevUtil = &util

	for _, a := range fresh {
		e.publish(a)
	}

	if len(fresh) > 0 {
		e.log.Debug().Int("new_alerts", len(fresh)).Float64("utilization", util).Msg("Monitoring tick produced alerts")
	}

	return fresh
}

// thresholdAlert picks at most one threshold alert per tick, highest tier
// wins. Excessive and critical alerts are persistent; the warning tier is
// not.
func (e *Engine) thresholdAlert(util float64, now time.Time) *Alert {
	switch {
	case util >= e.thresholds.ExcessiveLevel:
		return e.newAlert(KindError, "Excessive Risk Level",
			fmt.Sprintf("Risk utilization is %.1f%% of target, well beyond the excessive threshold", util*100),
			now, e.thresholds.ExcessiveLevel, util, true)
	case util >= e.thresholds.CriticalLevel:
		return e.newAlert(KindError, "Critical Risk Level",
			fmt.Sprintf("Risk utilization is %.1f%% of target, at or over the full risk budget", util*100),
			now, e.thresholds.CriticalLevel, util, true)
	case util >= e.thresholds.WarningLevel:
		return e.newAlert(KindWarning, "Elevated Risk Level",
			fmt.Sprintf("Risk utilization is %.1f%% of target", util*100),
			now, e.thresholds.WarningLevel, util, false)
	}
	return nil
}

// trendAlert fires when utilization moved more than trendDeltaPct
// percentage points since the previous tick.
func (e *Engine) trendAlert(util float64, now time.Time) *Alert {
	if e.prevUtil == nil {
		return nil
	}

	delta := util - *e.prevUtil
	if math.Abs(delta)*100 <= trendDeltaPct {
		return nil
	}

	if delta > 0 {
		return e.newAlert(KindWarning, "Risk Increasing",
			fmt.Sprintf("Risk utilization rose %.1f percentage points since the last check", delta*100),
			now, *e.prevUtil, util, false)
	}
	return e.newAlert(KindInfo, "Risk Decreasing",
		fmt.Sprintf("Risk utilization fell %.1f percentage points since the last check", -delta*100),
		now, *e.prevUtil, util, false)
}

// capacityAlert fires when less than 10% of the risk budget remains but it
// is not yet exhausted.
func (e *Engine) capacityAlert(util float64, now time.Time) *Alert {
	remaining := 1 - util
	if remaining <= 0 || remaining >= 0.1 {
		return nil
	}

	return e.newAlert(KindWarning, "Low Risk Capacity",
		fmt.Sprintf("Only %.1f%% of the risk budget remains", remaining*100),
		now, 0.1, remaining, false)
}

func (e *Engine) newAlert(kind Kind, title, message string, now time.Time, threshold, observed float64, persistent bool) *Alert {
	return &Alert{
		ID:             uuid.NewString(),
		Kind:           kind,
		Title:          title,
		Message:        message,
		CreatedAt:      now,
		ThresholdValue: &threshold,
		ObservedValue:  &observed,
		Persistent:     persistent,
	}
}

// merge deduplicates and inserts a batch of new alerts, then enforces the
// retention cap. Existing non-persistent alerts matching a new alert's
// (kind, title) are replaced; persistent alerts are never removed by
// deduplication.
func (e *Engine) merge(fresh []Alert) {
	type key struct {
		kind  Kind
		title string
	}

	incoming := make(map[key]bool, len(fresh))
	for _, a := range fresh {
		incoming[key{a.Kind, a.Title}] = true
	}

	kept := e.alerts[:0]
	for _, a := range e.alerts {
		if !a.Persistent && incoming[key{a.Kind, a.Title}] {
			continue
		}
		kept = append(kept, a)
	}
	e.alerts = append(kept, fresh...)

	sort.SliceStable(e.alerts, func(i, j int) bool {
		return e.alerts[i].CreatedAt.After(e.alerts[j].CreatedAt)
	})

	// Evict oldest non-persistent first, then oldest persistent if the log
	// is still over the cap.
	for len(e.alerts) > e.maxAlerts {
		dropped := false
		for i := len(e.alerts) - 1; i >= 0; i-- {
			if !e.alerts[i].Persistent {
				e.alerts = append(e.alerts[:i], e.alerts[i+1:]...)
				dropped = true
				break
			}
		}
		if !dropped {
			e.alerts = e.alerts[:len(e.alerts)-1]
		}
	}
}

// Alerts returns a copy of the current alert log, newest first.
func (e *Engine) Alerts() []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Alert, len(e.alerts))
	copy(out, e.alerts)
	return out
}

// Dismiss marks an alert dismissed without deleting it, so callers can
// still count historical alerts. Unknown IDs fail with domain.ErrNotFound.
func (e *Engine) Dismiss(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.alerts {
		if e.alerts[i].ID == id {
			e.alerts[i].Dismissed = true
			return nil
		}
	}
	return fmt.Errorf("%w: alert %s", domain.ErrNotFound, id)
}

// ClearAll empties the alert log.
func (e *Engine) ClearAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alerts = nil
}

// Enabled reports whether the engine is processing snapshots.
func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// SetEnabled toggles snapshot processing.
func (e *Engine) SetEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = enabled
}

// Subscribe registers a listener for newly created alerts. The returned
// cancel function must be called to release the subscription. Slow
// listeners drop alerts rather than blocking the monitor tick.
func (e *Engine) Subscribe() (<-chan Alert, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextSubID
	e.nextSubID++

	ch := make(chan Alert, 16)
	e.subscribers[id] = ch

	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if sub, ok := e.subscribers[id]; ok {
			delete(e.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// publish fans an alert out to subscribers. Callers hold e.mu.
func (e *Engine) publish(a Alert) {
	for _, ch := range e.subscribers {
		select {
		case ch <- a:
		default:
			// Listener is behind; drop rather than stall the tick.
		}
	}
}
