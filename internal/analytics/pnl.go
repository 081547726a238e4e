// Package analytics implements the feedback-loop components: PnL
// attribution, the adaptive cost estimator, the alpha health checker, and
// the maker fill-rate monitor.
package analytics

import "github.com/sawpanic/cryptorun-execcore/internal/types"

// Attribution decomposes one closed trade's realized PnL into its
// contributing components, in USD, following the sign convention that a
// negative value is always a cost and a positive value is always a
// contribution to PnL: Alpha is the edge the signal predicted before any
// execution cost, Fee is the fee paid (negative): the taker fee for an IOC
// fill, or the maker fee for a maker fill when the maker rate is
// non-negative. Rebate is the maker rebate earned (positive) when the maker
// rate is negative, and zero otherwise. Slippage is the cost of the fill landing away from the price the
// signal was measured at, and Impact is the estimated cost of the fill
// moving the book away from the best opposite price at submission. Total is
// their sum.
type Attribution struct {
	Alpha    float64
	Fee      float64
	Rebate   float64
	Slippage float64
	Impact   float64
	Total    float64
}

// FeeRates configures the maker/taker fee schedule; MakerFeeRate may be
// negative to represent a net rebate instead of a fee.
type FeeRates struct {
	MakerFeeRate float64
	TakerFeeRate float64
}

// Attribute decomposes a single fill. referenceMid is the mid price at the
// moment the signal was classified (m0); fillPrice is the price actually
// filled at (p); bestOpposite is the best opposite-side price at order
// submission (p*); signalValue is the aggregated signal score that drove
// the decision; volProxyPct is the configurable volatility proxy (sigma
// hat), expressed as a fraction of referenceMid, used to translate the raw
// signal into a dollar alpha estimate.
func Attribute(orderType types.OrderType, side types.Side, referenceMid, fillPrice, bestOpposite, qty types.Decimal, signalValue, volProxyPct float64, fees FeeRates) Attribution {
	notional, _ := fillPrice.Mul(qty).Float64()
	qtyF, _ := qty.Float64()

	dirSign := 1.0
	if side == types.SideSell {
		dirSign = -1.0
	}

	m0F, _ := referenceMid.Float64()
	fillF, _ := fillPrice.Float64()
	bestOppF, _ := bestOpposite.Float64()

	slippage := -(fillF - m0F) * qtyF * dirSign
	impact := -(fillF - bestOppF) * qtyF * dirSign

	var fee, rebate float64
	switch orderType {
	case types.OrderTypeMaker:
		if fees.MakerFeeRate >= 0 {
			fee = -fees.MakerFeeRate * notional
		} else {
			rebate = -fees.MakerFeeRate * notional // negative rate -> positive rebate
		}
	case types.OrderTypeIOC:
		fee = -fees.TakerFeeRate * notional
	}

	sigmaHat := m0F * volProxyPct
	alpha := signalValue * sigmaHat * qtyF

	total := alpha + fee + rebate + slippage + impact

	return Attribution{
		Alpha:    alpha,
		Fee:      fee,
		Rebate:   rebate,
		Slippage: slippage,
		Impact:   impact,
		Total:    total,
	}
}
