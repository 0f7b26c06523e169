// Package portfolio implements the position store on SQLite.
package portfolio

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/quantview/riskdesk/internal/domain"
	"github.com/rs/zerolog"
)

// PositionRepository handles position database operations. It satisfies
// domain.PositionStore. Tier updates are single-statement writes, so a
// failed update never leaves a partially applied record.
type PositionRepository struct {
	db  *sql.DB // portfolio.db - positions
	log zerolog.Logger
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *sql.DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		db:  db,
		log: log.With().Str("repo", "position").Logger(),
	}
}

const positionColumns = `symbol, value, tier, status, stop_state, last_updated`

// GetAll returns all positions regardless of status
func (r *PositionRepository) GetAll() ([]domain.Position, error) {
	rows, err := r.db.Query(`SELECT ` + positionColumns + ` FROM positions ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// ListActivePositions returns all positions with active status
func (r *PositionRepository) ListActivePositions() ([]domain.Position, error) {
	rows, err := r.db.Query(
		`SELECT `+positionColumns+` FROM positions WHERE status = ? ORDER BY symbol`,
		string(domain.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to query active positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// GetPosition returns the position for symbol, or domain.ErrNotFound
func (r *PositionRepository) GetPosition(symbol string) (*domain.Position, error) {
	row := r.db.QueryRow(
		`SELECT `+positionColumns+` FROM positions WHERE symbol = ?`, symbol)

	pos, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: position %s", domain.ErrNotFound, symbol)
		}
		return nil, fmt.Errorf("failed to get position %s: %w", symbol, err)
	}

	return pos, nil
}

// UpdateTier persists a tier change and returns the updated position.
// Write failures wrap domain.ErrPersistence; the row is untouched on error.
func (r *PositionRepository) UpdateTier(symbol string, newTier domain.Tier) (*domain.Position, error) {
	if !newTier.Valid() {
		return nil, fmt.Errorf("%w: unknown tier %q", domain.ErrInvalidInput, newTier)
	}

	res, err := r.db.Exec(
		`UPDATE positions SET tier = ?, last_updated = ? WHERE symbol = ?`,
		string(newTier), time.Now().UTC().Format(time.RFC3339), symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to update tier for %s: %v", domain.ErrPersistence, symbol, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read update result for %s: %v", domain.ErrPersistence, symbol, err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: position %s", domain.ErrNotFound, symbol)
	}

	return r.GetPosition(symbol)
}

// Upsert inserts or replaces a position record
func (r *PositionRepository) Upsert(pos domain.Position) error {
	if pos.Symbol == "" {
		return fmt.Errorf("%w: position symbol is required", domain.ErrInvalidInput)
	}
	if pos.LastUpdated.IsZero() {
		pos.LastUpdated = time.Now().UTC()
	}

	_, err := r.db.Exec(`
		INSERT INTO positions (symbol, value, tier, status, stop_state, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			value = excluded.value,
			tier = excluded.tier,
			status = excluded.status,
			stop_state = excluded.stop_state,
			last_updated = excluded.last_updated`,
		pos.Symbol, pos.Value, string(pos.Tier), string(pos.Status),
		string(pos.StopState), pos.LastUpdated.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("%w: failed to upsert position %s: %v", domain.ErrPersistence, pos.Symbol, err)
	}

	return nil
}

// Snapshot returns the active positions together with their total value,
// the input shape the stress tester expects.
func (r *PositionRepository) Snapshot() (domain.PortfolioSnapshot, error) {
	positions, err := r.ListActivePositions()
	if err != nil {
		return domain.PortfolioSnapshot{}, err
	}

	total := 0.0
	for _, pos := range positions {
		total += pos.Value
	}

	return domain.PortfolioSnapshot{TotalValue: total, Positions: positions}, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(row rowScanner) (*domain.Position, error) {
	var pos domain.Position
	var tier, status, stopState, lastUpdated string

	if err := row.Scan(&pos.Symbol, &pos.Value, &tier, &status, &stopState, &lastUpdated); err != nil {
		return nil, err
	}

	pos.Tier = domain.Tier(tier)
	pos.Status = domain.PositionStatus(status)
	pos.StopState = domain.StopState(stopState)

	if ts, err := time.Parse(time.RFC3339, lastUpdated); err == nil {
		pos.LastUpdated = ts
	} else if ts, err := time.Parse("2006-01-02 15:04:05", lastUpdated); err == nil {
		// datetime('now') default from the schema
		pos.LastUpdated = ts
	}

	return &pos, nil
}

func scanPositions(rows *sql.Rows) ([]domain.Position, error) {
	var positions []domain.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, *pos)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}
