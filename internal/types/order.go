package types

import (
	"time"

	"github.com/google/uuid"
)

// Order tracks one venue order through its lifecycle. Status transitions are
// one-directional (PENDING -> PLACING -> RESTING -> {FILLED | PARTIAL_FILLED
// | CANCELLING -> CANCELLED} or -> REJECTED at any point before a terminal
// state), following the same mark-and-check idiom used elsewhere in this
// codebase for multi-leg order chains.
type Order struct {
	ID         string
	Symbol     string
	Side       Side
	Type       OrderType
	Confidence Confidence

	Price Decimal // limit price for Maker; worst acceptable price for IOC
	Size  Decimal

	Status    OrderStatus
	FilledQty Decimal
	AvgFill   Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrder constructs a PENDING order with a fresh ID.
func NewOrder(symbol string, side Side, typ OrderType, confidence Confidence, price, size Decimal, now time.Time) *Order {
	return &Order{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Side:       side,
		Type:       typ,
		Confidence: confidence,
		Price:      price,
		Size:       size,
		Status:     OrderStatusPending,
		FilledQty:  Zero,
		AvgFill:    Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Transition moves the order to a new status, stamping UpdatedAt. Callers
// are responsible for only requesting legal transitions; Order itself does
// not enforce the state machine, the same division of responsibility used
// by the execution router that owns it.
func (o *Order) Transition(status OrderStatus, now time.Time) {
	o.Status = status
	o.UpdatedAt = now
}

// ApplyFill records a (possibly partial) fill, updating the weighted average
// fill price.
func (o *Order) ApplyFill(qty, price Decimal, now time.Time) {
	if qty.Sign() <= 0 {
		return
	}
	totalBefore := o.FilledQty
	notionalBefore := o.AvgFill.Mul(totalBefore)
	newTotal := totalBefore.Add(qty)
	newNotional := notionalBefore.Add(price.Mul(qty))
	o.FilledQty = newTotal
	if newTotal.Sign() > 0 {
		o.AvgFill = newNotional.Div(newTotal)
	}
	o.UpdatedAt = now
	if o.FilledQty.GreaterThanOrEqual(o.Size) {
		o.Transition(OrderStatusFilled, now)
	} else {
		o.Transition(OrderStatusPartialFilled, now)
	}
}

// RemainingQty returns the unfilled portion of the order's size.
func (o *Order) RemainingQty() Decimal {
	rem := o.Size.Sub(o.FilledQty)
	if rem.Sign() < 0 {
		return Zero
	}
	return rem
}
