package persistence

import (
	"context"
	"time"
)

// TimeRange represents a time window for data queries with PIT integrity
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ExecutionRecord is one completed order, carrying both the venue fill
// detail and the PnL attribution computed for it, for audit and for
// rebuilding the metrics collector's history on restart.
type ExecutionRecord struct {
	ID         int64     `json:"id" db:"id"`
	Timestamp  time.Time `json:"ts" db:"ts"`
	Symbol     string    `json:"symbol" db:"symbol"`
	Venue      string    `json:"venue" db:"venue"`
	Side       string    `json:"side" db:"side"`
	OrderType  string    `json:"order_type" db:"order_type"`
	Confidence string    `json:"confidence" db:"confidence"`
	Price      float64   `json:"price" db:"price"`
	Qty        float64   `json:"qty" db:"qty"`
	OrderID    string    `json:"order_id" db:"order_id"`

	SignalScore float64 `json:"signal_score" db:"signal_score"`
	LatencyMS   float64 `json:"latency_ms" db:"latency_ms"`
	SlippageBps float64 `json:"slippage_bps" db:"slippage_bps"`

	Alpha    float64 `json:"alpha" db:"alpha"`
	Fee      float64 `json:"fee" db:"fee"`
	Rebate   float64 `json:"rebate" db:"rebate"`
	Slippage float64 `json:"slippage" db:"slippage"`
	Impact   float64 `json:"impact" db:"impact"`
	Total    float64 `json:"total" db:"total"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RegimeSnapshot represents one MarketStateDetector classification, kept
// for the analytics feedback loop's state-conditioned cost estimation and
// for offline review of how the classifier behaved over time.
type RegimeSnapshot struct {
	Timestamp       time.Time              `json:"ts" db:"ts"`
	Symbol          string                 `json:"symbol" db:"symbol"`
	State           string                 `json:"state" db:"state"`
	Volatility      float64                `json:"volatility" db:"volatility"`
	LiquidityScore  float64                `json:"liquidity_score" db:"liquidity_score"`
	SpreadBps       float64                `json:"spread_bps" db:"spread_bps"`
	Reversals       int                    `json:"reversals" db:"reversals"`
	Metadata        map[string]interface{} `json:"metadata" db:"metadata"`
	CreatedAt       time.Time              `json:"created_at" db:"created_at"`
}

// ExecutionsRepo provides execution record persistence with PIT integrity.
type ExecutionsRepo interface {
	// Insert adds a new execution record with timestamp validation
	Insert(ctx context.Context, rec ExecutionRecord) error

	// InsertBatch adds multiple execution records atomically for high-throughput scenarios
	InsertBatch(ctx context.Context, recs []ExecutionRecord) error

	// ListBySymbol retrieves execution records for a symbol within time range (PIT-ordered)
	ListBySymbol(ctx context.Context, symbol string, tr TimeRange, limit int) ([]ExecutionRecord, error)

	// ListByVenue retrieves execution records for a venue within time range
	ListByVenue(ctx context.Context, venue string, tr TimeRange, limit int) ([]ExecutionRecord, error)

	// GetByOrderID finds an execution record by venue order ID for reconciliation
	GetByOrderID(ctx context.Context, orderID string) (*ExecutionRecord, error)

	// GetLatest returns the most recent execution records across all symbols/venues
	GetLatest(ctx context.Context, limit int) ([]ExecutionRecord, error)

	// Count returns total execution records in time range for statistics
	Count(ctx context.Context, tr TimeRange) (int64, error)

	// CountByVenue returns execution counts grouped by venue
	CountByVenue(ctx context.Context, tr TimeRange) (map[string]int64, error)
}

// RegimeRepo provides regime snapshot persistence, written once per
// classification cycle per symbol.
type RegimeRepo interface {
	// Upsert inserts or updates the regime snapshot for (symbol, timestamp)
	Upsert(ctx context.Context, snapshot RegimeSnapshot) error

	// Latest returns the most recent regime classification for a symbol
	Latest(ctx context.Context, symbol string) (*RegimeSnapshot, error)

	// GetByTimestamp retrieves a specific regime snapshot
	GetByTimestamp(ctx context.Context, symbol string, ts time.Time) (*RegimeSnapshot, error)

	// ListRange retrieves regime history within a time window
	ListRange(ctx context.Context, symbol string, tr TimeRange) ([]RegimeSnapshot, error)

	// ListByState retrieves all snapshots classified into a specific state
	ListByState(ctx context.Context, state string, limit int) ([]RegimeSnapshot, error)

	// GetStateStats returns state distribution statistics
	GetStateStats(ctx context.Context, tr TimeRange) (map[string]int64, error)
}

// Repository aggregates all persistence interfaces.
type Repository struct {
	Executions ExecutionsRepo
	Regimes    RegimeRepo
}

// HealthCheck represents repository health status
type HealthCheck struct {
	Healthy        bool           `json:"healthy"`
	Errors         []string       `json:"errors,omitempty"`
	ConnectionPool map[string]int `json:"connection_pool"`
	LastCheck      time.Time      `json:"last_check"`
	ResponseTimeMS int64          `json:"response_time_ms"`
}

// RepositoryHealth provides health monitoring for persistence layer
type RepositoryHealth interface {
	// Health returns current repository health status
	Health(ctx context.Context) HealthCheck

	// Ping tests basic connectivity to database
	Ping(ctx context.Context) error

	// Stats returns connection pool and query statistics
	Stats(ctx context.Context) map[string]interface{}
}
