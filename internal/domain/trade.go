package domain

import "github.com/alexe13/roboquant/pkg/quant"

// Trade is one immutable row of the audit trail, appended per fill and
// never mutated afterwards. RealizedPnL is net of the fee.
type Trade struct {
	Time        quant.TimeStamp    `json:"time"`
	Asset       Asset              `json:"asset"`
	Qty         quant.QtyUnits     `json:"qty"`
	Price       quant.PriceMicros  `json:"price"`
	Fee         quant.AmountMicros `json:"fee"`
	RealizedPnL quant.AmountMicros `json:"realized_pnl"`
	OrderID     string             `json:"order_id"`
}
