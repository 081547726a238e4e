package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/cryptorun-execcore/internal/persistence"
)

// regimeRepo implements RegimeRepo for PostgreSQL.
type regimeRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewRegimeRepo creates a new PostgreSQL regime repository.
func NewRegimeRepo(db *sqlx.DB, timeout time.Duration) persistence.RegimeRepo {
	return &regimeRepo{db: db, timeout: timeout}
}

// Upsert inserts or updates the regime snapshot for (symbol, timestamp).
func (r *regimeRepo) Upsert(ctx context.Context, snapshot persistence.RegimeSnapshot) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if !isValidState(snapshot.State) {
		return fmt.Errorf("invalid market state: %s", snapshot.State)
	}

	metadataJSON, err := json.Marshal(snapshot.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO regime_snapshots
		(ts, symbol, state, volatility, liquidity_score, spread_bps, reversals, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, ts) DO UPDATE SET
			state = EXCLUDED.state,
			volatility = EXCLUDED.volatility,
			liquidity_score = EXCLUDED.liquidity_score,
			spread_bps = EXCLUDED.spread_bps,
			reversals = EXCLUDED.reversals,
			metadata = EXCLUDED.metadata
		RETURNING created_at`

	err = r.db.QueryRowxContext(ctx, query,
		snapshot.Timestamp, snapshot.Symbol, snapshot.State, snapshot.Volatility,
		snapshot.LiquidityScore, snapshot.SpreadBps, snapshot.Reversals, metadataJSON).
		Scan(&snapshot.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert regime snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent regime classification for a symbol.
func (r *regimeRepo) Latest(ctx context.Context, symbol string) (*persistence.RegimeSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ` + regimeColumns + `
		FROM regime_snapshots
		WHERE symbol = $1
		ORDER BY ts DESC
		LIMIT 1`

	row := r.db.QueryRowxContext(ctx, query, symbol)
	snapshot, err := scanRegimeSnapshot(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest regime: %w", err)
	}
	return snapshot, nil
}

// GetByTimestamp retrieves a specific regime snapshot.
func (r *regimeRepo) GetByTimestamp(ctx context.Context, symbol string, ts time.Time) (*persistence.RegimeSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ` + regimeColumns + `
		FROM regime_snapshots
		WHERE symbol = $1 AND ts = $2`

	row := r.db.QueryRowxContext(ctx, query, symbol, ts)
	snapshot, err := scanRegimeSnapshot(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get regime by timestamp: %w", err)
	}
	return snapshot, nil
}

// ListRange retrieves regime history within a time window.
func (r *regimeRepo) ListRange(ctx context.Context, symbol string, tr persistence.TimeRange) ([]persistence.RegimeSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ` + regimeColumns + `
		FROM regime_snapshots
		WHERE symbol = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts DESC`

	rows, err := r.db.QueryxContext(ctx, query, symbol, tr.From, tr.To)
	if err != nil {
		return nil, fmt.Errorf("failed to query regime range: %w", err)
	}
	defer rows.Close()

	return scanRegimeSnapshots(rows)
}

// ListByState retrieves all snapshots classified into a specific state.
func (r *regimeRepo) ListByState(ctx context.Context, state string, limit int) ([]persistence.RegimeSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if !isValidState(state) {
		return nil, fmt.Errorf("invalid market state: %s", state)
	}

	query := `
		SELECT ` + regimeColumns + `
		FROM regime_snapshots
		WHERE state = $1
		ORDER BY ts DESC
		LIMIT $2`

	rows, err := r.db.QueryxContext(ctx, query, state, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query regime by state: %w", err)
	}
	defer rows.Close()

	return scanRegimeSnapshots(rows)
}

// GetStateStats returns state distribution statistics.
func (r *regimeRepo) GetStateStats(ctx context.Context, tr persistence.TimeRange) (map[string]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT state, COUNT(*)
		FROM regime_snapshots
		WHERE ts >= $1 AND ts <= $2
		GROUP BY state
		ORDER BY state`

	rows, err := r.db.QueryxContext(ctx, query, tr.From, tr.To)
	if err != nil {
		return nil, fmt.Errorf("failed to query state stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int64)
	for rows.Next() {
		var state string
		var count int64
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("failed to scan state stats: %w", err)
		}
		stats[state] = count
	}
	return stats, nil
}

const regimeColumns = `ts, symbol, state, volatility, liquidity_score, spread_bps, reversals, metadata, created_at`

func scanRegimeSnapshots(rows *sqlx.Rows) ([]persistence.RegimeSnapshot, error) {
	var snapshots []persistence.RegimeSnapshot
	for rows.Next() {
		snapshot, err := scanRegimeSnapshotFromRows(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return snapshots, nil
}

func scanRegimeSnapshot(row *sqlx.Row) (*persistence.RegimeSnapshot, error) {
	var snapshot persistence.RegimeSnapshot
	var metadataJSON []byte

	err := row.Scan(
		&snapshot.Timestamp, &snapshot.Symbol, &snapshot.State, &snapshot.Volatility,
		&snapshot.LiquidityScore, &snapshot.SpreadBps, &snapshot.Reversals,
		&metadataJSON, &snapshot.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalMetadata(metadataJSON, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func scanRegimeSnapshotFromRows(rows *sqlx.Rows) (*persistence.RegimeSnapshot, error) {
	var snapshot persistence.RegimeSnapshot
	var metadataJSON []byte

	err := rows.Scan(
		&snapshot.Timestamp, &snapshot.Symbol, &snapshot.State, &snapshot.Volatility,
		&snapshot.LiquidityScore, &snapshot.SpreadBps, &snapshot.Reversals,
		&metadataJSON, &snapshot.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalMetadata(metadataJSON, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func unmarshalMetadata(raw []byte, snapshot *persistence.RegimeSnapshot) error {
	if len(raw) == 0 {
		snapshot.Metadata = make(map[string]interface{})
		return nil
	}
	if err := json.Unmarshal(raw, &snapshot.Metadata); err != nil {
		return fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return nil
}

// isValidState validates a market state against the four classifier outputs.
func isValidState(state string) bool {
	validStates := map[string]bool{
		"NORMAL":   true,
		"HIGH_VOL": true,
		"LOW_LIQ":  true,
		"CHOPPY":   true,
	}
	return validStates[state]
}
