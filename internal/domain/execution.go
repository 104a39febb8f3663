package domain

import "github.com/alexe13/roboquant/pkg/quant"

// Execution is an ephemeral fill: a quantity matched against a price.
// It is never persisted; the broker consumes it immediately to settle
// cash, positions and the trade ledger.
type Execution struct {
	Order *Order
	Qty   quant.QtyUnits // signed
	Price quant.PriceMicros
	Time  quant.TimeStamp
}
