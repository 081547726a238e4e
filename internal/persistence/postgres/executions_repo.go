package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sawpanic/cryptorun-execcore/internal/persistence"
)

// executionsRepo implements ExecutionsRepo for PostgreSQL.
type executionsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewExecutionsRepo creates a new PostgreSQL executions repository.
func NewExecutionsRepo(db *sqlx.DB, timeout time.Duration) persistence.ExecutionsRepo {
	return &executionsRepo{db: db, timeout: timeout}
}

// Insert adds a new execution record.
func (r *executionsRepo) Insert(ctx context.Context, rec persistence.ExecutionRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO executions (ts, symbol, venue, side, order_type, confidence, price, qty,
			order_id, signal_score, latency_ms, slippage_bps, alpha, fee, rebate, slippage, impact, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		rec.Timestamp, rec.Symbol, rec.Venue, rec.Side, rec.OrderType, rec.Confidence,
		rec.Price, rec.Qty, rec.OrderID, rec.SignalScore, rec.LatencyMS, rec.SlippageBps,
		rec.Alpha, rec.Fee, rec.Rebate, rec.Slippage, rec.Impact, rec.Total).
		Scan(&rec.ID, &rec.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate execution: %w", err)
		}
		return fmt.Errorf("failed to insert execution: %w", err)
	}
	return nil
}

// InsertBatch adds multiple execution records atomically.
func (r *executionsRepo) InsertBatch(ctx context.Context, recs []persistence.ExecutionRecord) error {
	if len(recs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout*time.Duration(len(recs)/100+1))
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO executions (ts, symbol, venue, side, order_type, confidence, price, qty,
			order_id, signal_score, latency_ms, slippage_bps, alpha, fee, rebate, slippage, impact, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		_, err = stmt.ExecContext(ctx,
			rec.Timestamp, rec.Symbol, rec.Venue, rec.Side, rec.OrderType, rec.Confidence,
			rec.Price, rec.Qty, rec.OrderID, rec.SignalScore, rec.LatencyMS, rec.SlippageBps,
			rec.Alpha, rec.Fee, rec.Rebate, rec.Slippage, rec.Impact, rec.Total)
		if err != nil {
			return fmt.Errorf("failed to insert execution in batch: %w", err)
		}
	}

	return tx.Commit()
}

// ListBySymbol retrieves execution records for a symbol within time range (PIT-ordered).
func (r *executionsRepo) ListBySymbol(ctx context.Context, symbol string, tr persistence.TimeRange, limit int) ([]persistence.ExecutionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE symbol = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts DESC
		LIMIT $4`

	rows, err := r.db.QueryxContext(ctx, query, symbol, tr.From, tr.To, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions by symbol: %w", err)
	}
	defer rows.Close()

	return scanExecutions(rows)
}

// ListByVenue retrieves execution records for a venue within time range.
func (r *executionsRepo) ListByVenue(ctx context.Context, venue string, tr persistence.TimeRange, limit int) ([]persistence.ExecutionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE venue = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts DESC
		LIMIT $4`

	rows, err := r.db.QueryxContext(ctx, query, venue, tr.From, tr.To, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions by venue: %w", err)
	}
	defer rows.Close()

	return scanExecutions(rows)
}

// GetByOrderID finds an execution by venue order ID for reconciliation.
func (r *executionsRepo) GetByOrderID(ctx context.Context, orderID string) (*persistence.ExecutionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE order_id = $1
		ORDER BY ts DESC
		LIMIT 1`

	row := r.db.QueryRowxContext(ctx, query, orderID)
	rec, err := scanExecution(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get execution by order ID: %w", err)
	}
	return rec, nil
}

// GetLatest returns the most recent execution records across all symbols/venues.
func (r *executionsRepo) GetLatest(ctx context.Context, limit int) ([]persistence.ExecutionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ` + executionColumns + `
		FROM executions
		ORDER BY ts DESC
		LIMIT $1`

	rows, err := r.db.QueryxContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest executions: %w", err)
	}
	defer rows.Close()

	return scanExecutions(rows)
}

// Count returns total execution records in time range for statistics.
func (r *executionsRepo) Count(ctx context.Context, tr persistence.TimeRange) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT COUNT(*) FROM executions WHERE ts >= $1 AND ts <= $2`

	var count int64
	if err := r.db.QueryRowxContext(ctx, query, tr.From, tr.To).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count executions: %w", err)
	}
	return count, nil
}

// CountByVenue returns execution counts grouped by venue.
func (r *executionsRepo) CountByVenue(ctx context.Context, tr persistence.TimeRange) (map[string]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT venue, COUNT(*)
		FROM executions
		WHERE ts >= $1 AND ts <= $2
		GROUP BY venue
		ORDER BY venue`

	rows, err := r.db.QueryxContext(ctx, query, tr.From, tr.To)
	if err != nil {
		return nil, fmt.Errorf("failed to count executions by venue: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var venue string
		var count int64
		if err := rows.Scan(&venue, &count); err != nil {
			return nil, fmt.Errorf("failed to scan venue count: %w", err)
		}
		counts[venue] = count
	}
	return counts, nil
}

const executionColumns = `id, ts, symbol, venue, side, order_type, confidence, price, qty,
			order_id, signal_score, latency_ms, slippage_bps, alpha, fee, rebate, slippage, impact, total, created_at`

func scanExecutions(rows *sqlx.Rows) ([]persistence.ExecutionRecord, error) {
	var recs []persistence.ExecutionRecord
	for rows.Next() {
		rec, err := scanExecutionFromRows(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return recs, nil
}

func scanExecution(row *sqlx.Row) (*persistence.ExecutionRecord, error) {
	var rec persistence.ExecutionRecord
	err := row.Scan(
		&rec.ID, &rec.Timestamp, &rec.Symbol, &rec.Venue, &rec.Side, &rec.OrderType, &rec.Confidence,
		&rec.Price, &rec.Qty, &rec.OrderID, &rec.SignalScore, &rec.LatencyMS, &rec.SlippageBps,
		&rec.Alpha, &rec.Fee, &rec.Rebate, &rec.Slippage, &rec.Impact, &rec.Total, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func scanExecutionFromRows(rows *sqlx.Rows) (*persistence.ExecutionRecord, error) {
	var rec persistence.ExecutionRecord
	err := rows.Scan(
		&rec.ID, &rec.Timestamp, &rec.Symbol, &rec.Venue, &rec.Side, &rec.OrderType, &rec.Confidence,
		&rec.Price, &rec.Qty, &rec.OrderID, &rec.SignalScore, &rec.LatencyMS, &rec.SlippageBps,
		&rec.Alpha, &rec.Fee, &rec.Rebate, &rec.Slippage, &rec.Impact, &rec.Total, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
