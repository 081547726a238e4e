// Package types holds the shared data model for the execution core: fixed
// point money values, market snapshots, orders, positions, and the
// enumerated states that flow between the signal, execution, risk, and
// analytics packages.
package types

import (
	"github.com/shopspring/decimal"
)

// Decimal is the fixed-point type used for every money value in the system:
// prices, sizes, notional, PnL, and fees. Scores, ratios, and basis-point
// metrics stay float64 — they are not settlement-critical.
type Decimal = decimal.Decimal

// Zero is the canonical zero-value Decimal, usable as a field default.
var Zero = decimal.Zero

// D builds a Decimal from a float64 literal. Use only for constants and
// test fixtures; values arriving from a venue or config file should be
// parsed from their original string representation to avoid a binary
// float round-trip.
func D(v float64) Decimal {
	return decimal.NewFromFloat(v)
}

// Parse builds a Decimal from its decimal string representation.
func Parse(s string) (Decimal, error) {
	return decimal.NewFromString(s)
}
