// Package alerts maintains a bounded, deduplicated log of risk alerts
// generated from risk-allocation snapshots over time.
package alerts

import "time"

// Kind is the closed set of alert severities.
type Kind string

const (
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
	KindSuccess Kind = "success"
)

// Alert is one entry in the engine's log. Once created it is mutated only
// by Dismiss/ClearAll; eviction removes the oldest non-persistent entries
// first when the retention cap is exceeded.
type Alert struct {
	ID             string    `json:"id"`
	Kind           Kind      `json:"kind"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
	ThresholdValue *float64  `json:"threshold_value,omitempty"`
	ObservedValue  *float64  `json:"observed_value,omitempty"`
	Persistent     bool      `json:"persistent"`
	Dismissed      bool      `json:"dismissed"`
}

// Thresholds are alert trigger levels expressed as multiples of target
// utilization.
type Thresholds struct {
	WarningLevel   float64 `json:"warning_level"`
	CriticalLevel  float64 `json:"critical_level"`
	ExcessiveLevel float64 `json:"excessive_level"`
}

// DefaultThresholds returns the standard trigger levels.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WarningLevel:   0.8,
		CriticalLevel:  1.0,
		ExcessiveLevel: 1.2,
	}
}
