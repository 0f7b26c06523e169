// Package clientdata caches recent risk snapshots for the dashboard's
// utilization history chart. Snapshots are ephemeral operational data:
// they live in the cache database and are pruned to a bounded count.
package clientdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/quantview/riskdesk/internal/modules/allocation"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// RiskSnapshot is one recorded monitoring tick.
type RiskSnapshot struct {
	CreatedAt      time.Time `json:"created_at" msgpack:"created_at"`
	CurrentRisk    float64   `json:"current_risk" msgpack:"current_risk"`
	Target         float64   `json:"target" msgpack:"target"`
	Utilization    float64   `json:"utilization" msgpack:"utilization"`
	RiskAmount     float64   `json:"risk_amount" msgpack:"risk_amount"`
	AvailableRisk  float64   `json:"available_risk" msgpack:"available_risk"`
	PortfolioValue float64   `json:"portfolio_value" msgpack:"portfolio_value"`
	AlertCount     int       `json:"alert_count" msgpack:"alert_count"`
}

// SnapshotRepository stores msgpack-encoded snapshots in the cache database.
type SnapshotRepository struct {
	db  *sql.DB // cache.db
	log zerolog.Logger
}

// NewSnapshotRepository creates a snapshot repository
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("repo", "snapshots").Logger(),
	}
}

// Record stores one snapshot built from an allocation and the number of
// alerts the tick produced.
func (r *SnapshotRepository) Record(alloc allocation.RiskAllocation, alertCount int, at time.Time) error {
	snap := RiskSnapshot{
		CreatedAt:      at.UTC(),
		CurrentRisk:    alloc.CurrentRisk,
		Target:         alloc.Target,
		Utilization:    alloc.Utilization,
		RiskAmount:     alloc.RiskAmount,
		AvailableRisk:  alloc.AvailableRisk,
		PortfolioValue: alloc.PortfolioValue,
		AlertCount:     alertCount,
	}

	payload, err := msgpack.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO risk_snapshots (created_at, payload) VALUES (?, ?)`,
		snap.CreatedAt.Format(time.RFC3339), payload)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return nil
}

// Recent returns up to limit snapshots, newest first.
func (r *SnapshotRepository) Recent(limit int) ([]RiskSnapshot, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(
		`SELECT payload FROM risk_snapshots ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []RiskSnapshot
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}

		var snap RiskSnapshot
		if err := msgpack.Unmarshal(payload, &snap); err != nil {
			// A corrupt cache row is not worth failing the chart over
			r.log.Warn().Err(err).Msg("Skipping undecodable snapshot payload")
			continue
		}
		snapshots = append(snapshots, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}

// Prune deletes all but the newest retain snapshots.
func (r *SnapshotRepository) Prune(retain int) (int64, error) {
	if retain <= 0 {
		return 0, fmt.Errorf("retain must be positive, got %d", retain)
	}

	res, err := r.db.Exec(`
		DELETE FROM risk_snapshots
		WHERE id NOT IN (SELECT id FROM risk_snapshots ORDER BY id DESC LIMIT ?)`,
		retain)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read prune result: %w", err)
	}

	if deleted > 0 {
		r.log.Debug().Int64("deleted", deleted).Msg("Pruned old snapshots")
	}

	return deleted, nil
}
