package portfolio

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantview/riskdesk/internal/domain"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE positions (
			symbol TEXT PRIMARY KEY,
			value REAL NOT NULL DEFAULT 0,
			tier TEXT NOT NULL DEFAULT 'risk_on',
			status TEXT NOT NULL DEFAULT 'active',
			stop_state TEXT NOT NULL DEFAULT 'at_risk',
			last_updated TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	require.NoError(t, err)

	return db
}

func seedPosition(t *testing.T, repo *PositionRepository, symbol string, value float64, tier domain.Tier, status domain.PositionStatus) {
	t.Helper()
	require.NoError(t, repo.Upsert(domain.Position{
		Symbol:      symbol,
		Value:       value,
		Tier:        tier,
		Status:      status,
		StopState:   domain.StopAtRisk,
		LastUpdated: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}))
}

func TestPositionRepository_GetAll(t *testing.T) {
	repo := NewPositionRepository(setupTestDB(t), zerolog.Nop())

	seedPosition(t, repo, "MSFT", 30000, domain.TierProtected, domain.StatusActive)
	seedPosition(t, repo, "AAPL", 50000, domain.TierRiskOn, domain.StatusClosed)

	positions, err := repo.GetAll()
	require.NoError(t, err)
	require.Len(t, positions, 2)

	// Ordered by symbol
	assert.Equal(t, "AAPL", positions[0].Symbol)
	assert.Equal(t, "MSFT", positions[1].Symbol)
	assert.Equal(t, domain.TierProtected, positions[1].Tier)
	assert.Equal(t, 30000.0, positions[1].Value)
}

func TestPositionRepository_ListActivePositions(t *testing.T) {
	repo := NewPositionRepository(setupTestDB(t), zerolog.Nop())

	seedPosition(t, repo, "AAPL", 50000, domain.TierRiskOn, domain.StatusActive)
	seedPosition(t, repo, "GONE", 10000, domain.TierRiskOn, domain.StatusClosed)
	seedPosition(t, repo, "WAIT", 5000, domain.TierRiskOn, domain.StatusPending)

	positions, err := repo.ListActivePositions()
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "AAPL", positions[0].Symbol)
}

func TestPositionRepository_GetPosition(t *testing.T) {
	repo := NewPositionRepository(setupTestDB(t), zerolog.Nop())
	seedPosition(t, repo, "AAPL", 50000, domain.TierRiskOn, domain.StatusActive)

	pos, err := repo.GetPosition("AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", pos.Symbol)
	assert.Equal(t, domain.StopAtRisk, pos.StopState)
	assert.Equal(t, 2025, pos.LastUpdated.Year())

	_, err = repo.GetPosition("MISSING")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPositionRepository_UpdateTier(t *testing.T) {
	repo := NewPositionRepository(setupTestDB(t), zerolog.Nop())
	seedPosition(t, repo, "AAPL", 50000, domain.TierRiskOn, domain.StatusActive)

	t.Run("updates and returns the new record", func(t *testing.T) {
		updated, err := repo.UpdateTier("AAPL", domain.TierProtected)
		require.NoError(t, err)
		assert.Equal(t, domain.TierProtected, updated.Tier)

		stored, err := repo.GetPosition("AAPL")
		require.NoError(t, err)
		assert.Equal(t, domain.TierProtected, stored.Tier)
	})

	t.Run("unknown symbol", func(t *testing.T) {
		_, err := repo.UpdateTier("MISSING", domain.TierProtected)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("invalid tier rejected before touching the database", func(t *testing.T) {
		_, err := repo.UpdateTier("AAPL", domain.Tier("speculative"))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		stored, err := repo.GetPosition("AAPL")
		require.NoError(t, err)
		assert.Equal(t, domain.TierProtected, stored.Tier)
	})
}

func TestPositionRepository_UpsertReplaces(t *testing.T) {
	repo := NewPositionRepository(setupTestDB(t), zerolog.Nop())

	seedPosition(t, repo, "AAPL", 50000, domain.TierRiskOn, domain.StatusActive)
	seedPosition(t, repo, "AAPL", 60000, domain.TierProtected, domain.StatusActive)

	positions, err := repo.GetAll()
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, 60000.0, positions[0].Value)
	assert.Equal(t, domain.TierProtected, positions[0].Tier)

	err = repo.Upsert(domain.Position{Symbol: ""})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPositionRepository_Snapshot(t *testing.T) {
	repo := NewPositionRepository(setupTestDB(t), zerolog.Nop())

	seedPosition(t, repo, "AAPL", 50000, domain.TierRiskOn, domain.StatusActive)
	seedPosition(t, repo, "MSFT", 30000, domain.TierProtected, domain.StatusActive)
	seedPosition(t, repo, "GONE", 99999, domain.TierRiskOn, domain.StatusClosed)

	snapshot, err := repo.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, 80000.0, snapshot.TotalValue)
	assert.Len(t, snapshot.Positions, 2)
}

func TestPositionRepository_SnapshotEmpty(t *testing.T) {
	repo := NewPositionRepository(setupTestDB(t), zerolog.Nop())

	snapshot, err := repo.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, 0.0, snapshot.TotalValue)
	assert.Empty(t, snapshot.Positions)
}
