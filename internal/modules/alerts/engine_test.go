package alerts

import (
	"testing"
	"time"

	"github.com/quantview/riskdesk/internal/domain"
	"github.com/quantview/riskdesk/internal/modules/allocation"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClock hands out strictly increasing timestamps so ordering by
// CreatedAt is deterministic.
type testClock struct {
	current time.Time
}

func newTestClock() *testClock {
	return &testClock{current: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.current = c.current.Add(time.Second)
	return c.current
}

func newTestEngine(maxAlerts int) (*Engine, *testClock) {
	clock := newTestClock()
	engine := NewEngine(Config{
		Thresholds: DefaultThresholds(),
		MaxAlerts:  maxAlerts,
		Enabled:    true,
		Now:        clock.Now,
	}, zerolog.Nop())
	return engine, clock
}

func snapshotAt(util float64) allocation.RiskAllocation {
	return allocation.RiskAllocation{
		CurrentRisk: util * 0.118,
		Target:      0.118,
		Utilization: util,
	}
}

func titles(alerts []Alert) []string {
	out := make([]string, len(alerts))
	for i, a := range alerts {
		out[i] = a.Title
	}
	return out
}

func TestThresholdAlertTiers(t *testing.T) {
	cases := []struct {
		name       string
		util       float64
		wantTitle  string
		wantKind   Kind
		persistent bool
	}{
		{"below warning", 0.79, "", KindInfo, false},
		{"at warning", 0.8, "Elevated Risk Level", KindWarning, false},
		{"between warning and critical", 0.99, "Elevated Risk Level", KindWarning, false},
		{"at critical", 1.0, "Critical Risk Level", KindError, true},
		{"between critical and excessive", 1.19, "Critical Risk Level", KindError, true},
		{"at excessive", 1.2, "Excessive Risk Level", KindError, true},
		{"far beyond excessive", 2.0, "Excessive Risk Level", KindError, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine, _ := newTestEngine(5)
			fresh := engine.OnSnapshot(snapshotAt(tc.util))

			if tc.wantTitle == "" {
				assert.Empty(t, fresh)
				return
			}

			// Exactly one threshold alert per tick, highest tier wins
			require.Len(t, fresh, 1)
			assert.Equal(t, tc.wantTitle, fresh[0].Title)
			assert.Equal(t, tc.wantKind, fresh[0].Kind)
			assert.Equal(t, tc.persistent, fresh[0].Persistent)
			require.NotNil(t, fresh[0].ObservedValue)
			assert.Equal(t, tc.util, *fresh[0].ObservedValue)
		})
	}
}

func TestTrendAlert(t *testing.T) {
	t.Run("no previous utilization means no trend", func(t *testing.T) {
		engine, _ := newTestEngine(5)
		fresh := engine.OnSnapshot(snapshotAt(0.5))
		assert.Empty(t, fresh)
	})

	t.Run("rising utilization", func(t *testing.T) {
		engine, _ := newTestEngine(5)
		engine.OnSnapshot(snapshotAt(0.3))
		fresh := engine.OnSnapshot(snapshotAt(0.45))

		require.Len(t, fresh, 1)
		assert.Equal(t, "Risk Increasing", fresh[0].Title)
		assert.Equal(t, KindWarning, fresh[0].Kind)
	})

	t.Run("falling utilization", func(t *testing.T) {
		engine, _ := newTestEngine(5)
		engine.OnSnapshot(snapshotAt(0.5))
		fresh := engine.OnSnapshot(snapshotAt(0.35))

		require.Len(t, fresh, 1)
		assert.Equal(t, "Risk Decreasing", fresh[0].Title)
		assert.Equal(t, KindInfo, fresh[0].Kind)
	})

	t.Run("small move does not fire", func(t *testing.T) {
		engine, _ := newTestEngine(5)
		engine.OnSnapshot(snapshotAt(0.3))
		fresh := engine.OnSnapshot(snapshotAt(0.39))
		assert.Empty(t, fresh)
	})
}

func TestCapacityAlert(t *testing.T) {
	t.Run("fires inside the low-capacity band", func(t *testing.T) {
		engine, _ := newTestEngine(5)
		fresh := engine.OnSnapshot(snapshotAt(0.95))

		// Warning threshold also trips at 0.95
		assert.Contains(t, titles(fresh), "Low Risk Capacity")
		assert.Contains(t, titles(fresh), "Elevated Risk Level")
	})

	t.Run("silent when capacity exhausted", func(t *testing.T) {
		engine, _ := newTestEngine(5)
		fresh := engine.OnSnapshot(snapshotAt(1.05))

		assert.NotContains(t, titles(fresh), "Low Risk Capacity")
	})

	t.Run("silent with ample capacity", func(t *testing.T) {
		engine, _ := newTestEngine(5)
		fresh := engine.OnSnapshot(snapshotAt(0.5))

		assert.NotContains(t, titles(fresh), "Low Risk Capacity")
	})
}

func TestDeduplication(t *testing.T) {
	engine, _ := newTestEngine(5)

	engine.OnSnapshot(snapshotAt(0.85))
	engine.OnSnapshot(snapshotAt(0.86))
	engine.OnSnapshot(snapshotAt(0.87))

	// The warning is non-persistent, so repeats replace rather than stack
	count := 0
	for _, a := range engine.Alerts() {
		if a.Title == "Elevated Risk Level" {
			count++
			require.NotNil(t, a.ObservedValue)
			assert.Equal(t, 0.87, *a.ObservedValue)
		}
	}
	assert.Equal(t, 1, count)
}

func TestPersistentAlertsSurviveDeduplication(t *testing.T) {
	engine, _ := newTestEngine(5)

	engine.OnSnapshot(snapshotAt(1.25))
	engine.OnSnapshot(snapshotAt(1.30))

	count := 0
	for _, a := range engine.Alerts() {
		if a.Title == "Excessive Risk Level" {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestCapEvictsOldestNonPersistentFirst(t *testing.T) {
	engine, _ := newTestEngine(3)

	engine.OnSnapshot(snapshotAt(1.25)) // persistent excessive
	engine.OnSnapshot(snapshotAt(0.5))  // info trend (falling)
	engine.OnSnapshot(snapshotAt(0.85)) // warning threshold + rising trend

	log := engine.Alerts()
	require.Len(t, log, 3)

	// The persistent alert outlives older non-persistent ones
	assert.Contains(t, titles(log), "Excessive Risk Level")
	assert.NotContains(t, titles(log), "Risk Decreasing")

	// Newest first
	for i := 1; i < len(log); i++ {
		assert.False(t, log[i].CreatedAt.After(log[i-1].CreatedAt))
	}
}

func TestCapEvictsPersistentWhenOnlyPersistentRemain(t *testing.T) {
	engine, _ := newTestEngine(2)

	engine.OnSnapshot(snapshotAt(1.25))
	engine.OnSnapshot(snapshotAt(1.30))
	engine.OnSnapshot(snapshotAt(1.35))

	log := engine.Alerts()
	assert.Len(t, log, 2)
	for _, a := range log {
		assert.True(t, a.Persistent)
	}
}

func TestDismiss(t *testing.T) {
	engine, _ := newTestEngine(5)

	fresh := engine.OnSnapshot(snapshotAt(0.85))
	require.Len(t, fresh, 1)

	require.NoError(t, engine.Dismiss(fresh[0].ID))

	log := engine.Alerts()
	require.Len(t, log, 1)
	assert.True(t, log[0].Dismissed)

	assert.ErrorIs(t, engine.Dismiss("no-such-id"), domain.ErrNotFound)
}

func TestClearAll(t *testing.T) {
	engine, _ := newTestEngine(5)

	engine.OnSnapshot(snapshotAt(1.25))
	require.NotEmpty(t, engine.Alerts())

	engine.ClearAll()
	assert.Empty(t, engine.Alerts())
}

func TestDisabledEngineIsNoOp(t *testing.T) {
	engine := NewEngine(Config{
		Thresholds: DefaultThresholds(),
		MaxAlerts:  5,
		Enabled:    false,
	}, zerolog.Nop())

	fresh := engine.OnSnapshot(snapshotAt(2.0))
	assert.Nil(t, fresh)
	assert.Empty(t, engine.Alerts())
}

func TestSubscribeReceivesNewAlerts(t *testing.T) {
	engine, _ := newTestEngine(5)

	ch, cancel := engine.Subscribe()
	defer cancel()

	fresh := engine.OnSnapshot(snapshotAt(1.25))
	require.Len(t, fresh, 1)

	select {
	case got := <-ch:
		assert.Equal(t, fresh[0].ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("expected a streamed alert")
	}
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	engine, _ := newTestEngine(5)

	ch, cancel := engine.Subscribe()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	// Publishing after cancel must not panic
	engine.OnSnapshot(snapshotAt(1.25))
}
