package domain

import (
	"fmt"

	"github.com/alexe13/roboquant/pkg/quant"
)

// OrderKind is the tagged variant discriminator for order types.
type OrderKind uint8

const (
	Market OrderKind = iota + 1
	Limit
	Stop
	StopLimit
	Cancel
)

func (k OrderKind) String() string {
	switch k {
	case Market:
		return "MARKET"
	case Limit:
		return "LIMIT"
	case Stop:
		return "STOP"
	case StopLimit:
		return "STOP_LIMIT"
	case Cancel:
		return "CANCEL"
	default:
		return fmt.Sprintf("KIND_%d", k)
	}
}

// IsModify reports whether the kind mutates order bookkeeping only.
// Modify orders run before any trade order in the same event and do not
// need a price observation.
func (k OrderKind) IsModify() bool {
	return k == Cancel
}

// Order is a request to trade (or to modify another order). Orders are
// immutable after creation; all mutable lifecycle data lives in OrderState.
type Order struct {
	ID       string            `json:"id"`
	Tag      string            `json:"tag,omitempty"`
	Asset    Asset             `json:"asset"`
	Kind     OrderKind         `json:"kind"`
	Qty      quant.QtyUnits    `json:"qty"`             // signed, sign = direction
	Limit    quant.PriceMicros `json:"limit,omitempty"` // limit / stop-limit kinds
	Trigger  quant.PriceMicros `json:"trigger,omitempty"`
	GoodTill quant.TimeStamp   `json:"good_till,omitempty"` // zero = good till cancelled
	TargetID string            `json:"target_id,omitempty"` // cancel kinds only
}

// NewMarketOrder creates an order that fills its full size at the next
// available price.
func NewMarketOrder(asset Asset, qty quant.QtyUnits) *Order {
	return &Order{Asset: asset, Kind: Market, Qty: qty}
}

// NewLimitOrder creates an order that fills only at limit or better.
func NewLimitOrder(asset Asset, qty quant.QtyUnits, limit quant.PriceMicros) *Order {
	return &Order{Asset: asset, Kind: Limit, Qty: qty, Limit: limit}
}

// NewStopOrder creates an order that becomes a market order once the
// trigger price trades through.
func NewStopOrder(asset Asset, qty quant.QtyUnits, trigger quant.PriceMicros) *Order {
	return &Order{Asset: asset, Kind: Stop, Qty: qty, Trigger: trigger}
}

// NewStopLimitOrder creates an order that becomes a limit order once the
// trigger price trades through. The trigger latches: once hit it stays hit.
func NewStopLimitOrder(asset Asset, qty quant.QtyUnits, trigger, limit quant.PriceMicros) *Order {
	return &Order{Asset: asset, Kind: StopLimit, Qty: qty, Trigger: trigger, Limit: limit}
}

// NewCancelOrder creates a modify order that cancels the target order.
func NewCancelOrder(targetID string) *Order {
	return &Order{Kind: Cancel, TargetID: targetID}
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus uint8

const (
	StatusInitial OrderStatus = iota
	StatusAccepted
	StatusRejected
	StatusPartial
	StatusCompleted
	StatusCancelled
	StatusExpired
)

func (s OrderStatus) String() string {
	switch s {
	case StatusInitial:
		return "INITIAL"
	case StatusAccepted:
		return "ACCEPTED"
	case StatusRejected:
		return "REJECTED"
	case StatusPartial:
		return "PARTIAL"
	case StatusCompleted:
		return "COMPLETED"
	case StatusCancelled:
		return "CANCELLED"
	case StatusExpired:
		return "EXPIRED"
	default:
		return fmt.Sprintf("STATUS_%d", s)
	}
}

// Terminal reports whether the status is final. No transition ever leaves
// a terminal status.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusRejected, StatusCompleted, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Open is the complement of Terminal.
func (s OrderStatus) Open() bool { return !s.Terminal() }

// OrderState carries the mutable lifecycle of one order: status, placement
// time, accumulated fill and the stop latch.
type OrderState struct {
	Order     *Order            `json:"order"`
	Status    OrderStatus       `json:"status"`
	PlacedAt  quant.TimeStamp   `json:"placed_at,omitempty"`
	FilledQty quant.QtyUnits    `json:"filled_qty,omitempty"`
	Triggered bool              `json:"triggered,omitempty"`
}

// NewOrderState wraps a freshly submitted order.
func NewOrderState(o *Order) *OrderState {
	return &OrderState{Order: o, Status: StatusInitial}
}

// Remaining returns the signed quantity still open.
func (st *OrderState) Remaining() quant.QtyUnits {
	return st.Order.Qty - st.FilledQty
}

// Transition moves the order to the next status. Leaving a terminal status
// is a programming error.
func (st *OrderState) Transition(next OrderStatus) {
	if st.Status.Terminal() {
		panic(fmt.Sprintf("CORE_ORDER_TERMINAL_TRANSITION: %s %s -> %s",
			st.Order.ID, st.Status, next))
	}
	st.Status = next
}

// FillRule reports the signed quantity an order kind executes against the
// given price, or zero for "no fill this event". The broker dispatches
// through this table and never inspects kind internals.
type FillRule func(st *OrderState, price quant.PriceMicros) quant.QtyUnits

var fillRules = map[OrderKind]FillRule{
	Market:    fillMarket,
	Limit:     fillLimit,
	Stop:      fillStop,
	StopLimit: fillStopLimit,
}

// FillQty dispatches to the order kind's fill rule.
func (st *OrderState) FillQty(price quant.PriceMicros) quant.QtyUnits {
	rule, ok := fillRules[st.Order.Kind]
	if !ok {
		panic(fmt.Sprintf("CORE_ORDER_NO_FILL_RULE: kind %s", st.Order.Kind))
	}
	return rule(st, price)
}

func fillMarket(st *OrderState, _ quant.PriceMicros) quant.QtyUnits {
	return st.Remaining()
}

func fillLimit(st *OrderState, price quant.PriceMicros) quant.QtyUnits {
	if limitHolds(st.Order.Qty, st.Order.Limit, price) {
		return st.Remaining()
	}
	return 0
}

func fillStop(st *OrderState, price quant.PriceMicros) quant.QtyUnits {
	latchTrigger(st, price)
	if st.Triggered {
		return st.Remaining()
	}
	return 0
}

func fillStopLimit(st *OrderState, price quant.PriceMicros) quant.QtyUnits {
	latchTrigger(st, price)
	if st.Triggered && limitHolds(st.Order.Qty, st.Order.Limit, price) {
		return st.Remaining()
	}
	return 0
}

// limitHolds: buys fill at or below the limit, sells at or above.
func limitHolds(qty quant.QtyUnits, limit, price quant.PriceMicros) bool {
	if qty > 0 {
		return price <= limit
	}
	return price >= limit
}

// latchTrigger: buy stops trigger at or above, sell stops at or below.
// Once triggered the latch never resets.
func latchTrigger(st *OrderState, price quant.PriceMicros) {
	if st.Triggered {
		return
	}
	if st.Order.Qty > 0 {
		st.Triggered = price >= st.Order.Trigger
	} else {
		st.Triggered = price <= st.Order.Trigger
	}
}
