package types

import "time"

// Position is the open exposure for one symbol, carried with a
// weighted-average entry price. Size is signed: positive is long, negative
// is short, zero is flat.
type Position struct {
	Symbol    string
	Size      Decimal // signed
	AvgEntry  Decimal
	OpenedAt  time.Time
	UpdatedAt time.Time
}

// IsFlat reports whether the position carries no exposure.
func (p Position) IsFlat() bool {
	return p.Size.IsZero()
}

// Side returns the position's directional side; undefined (SideBuy) when flat.
func (p Position) Side() Side {
	if p.Size.Sign() < 0 {
		return SideSell
	}
	return SideBuy
}

// UnrealizedPnL returns mark-to-market PnL at the given price, maintaining
// the invariant sign(size) * (mark - avg_entry) * |size| regardless of
// whether the position is long or short.
func (p Position) UnrealizedPnL(mark Decimal) Decimal {
	if p.IsFlat() {
		return Zero
	}
	diff := mark.Sub(p.AvgEntry)
	return diff.Mul(p.Size)
}

// ApplyFill accumulates, reduces, or flips the position with a signed fill
// (positive size = buy fill, negative size = sell fill), returning the
// realized PnL generated by any size reduction. Accumulating fills (same
// sign as the existing position, or opening from flat) move the weighted
// average entry price; reducing fills realize PnL at the existing average
// entry without moving it; a fill that overshoots flat flips the position
// and establishes a new average entry at the fill price for the remainder.
func (p *Position) ApplyFill(signedQty, price Decimal, now time.Time) Decimal {
	realized := Zero

	if p.Size.IsZero() {
		p.Size = signedQty
		p.AvgEntry = price
		p.OpenedAt = now
		p.UpdatedAt = now
		return realized
	}

	sameDirection := p.Size.Sign() == signedQty.Sign()

	if sameDirection {
		notional := p.AvgEntry.Mul(p.Size).Add(price.Mul(signedQty))
		newSize := p.Size.Add(signedQty)
		p.AvgEntry = notional.Div(newSize)
		p.Size = newSize
		p.UpdatedAt = now
		return realized
	}

	// Opposite-sign fill: reduces, or reduces-and-flips.
	closingQty := signedQty.Abs()
	existingQty := p.Size.Abs()

	if closingQty.LessThanOrEqual(existingQty) {
		// Pure reduction (or exact close).
		realized = price.Sub(p.AvgEntry).Mul(signedQty).Neg()
		p.Size = p.Size.Add(signedQty)
		p.UpdatedAt = now
		if p.Size.IsZero() {
			p.AvgEntry = Zero
		}
		return realized
	}

	// Flip: close the existing side fully, open the remainder at price.
	realized = price.Sub(p.AvgEntry).Mul(p.Size)
	remainder := closingQty.Sub(existingQty)
	p.Size = remainder
	if signedQty.Sign() < 0 {
		p.Size = p.Size.Neg()
	}
	p.AvgEntry = price
	p.OpenedAt = now
	p.UpdatedAt = now
	return realized
}
