// Package domain holds the core value types of the trading platform:
// assets, orders, positions, wallets, trades and the account aggregate.
// All monetary values are strictly int64 fixed point (see pkg/quant).
package domain

import "fmt"

// Asset identifies a tradable instrument and the currency it settles in.
// Assets are immutable and passed by value.
type Asset struct {
	Symbol   string `json:"symbol"`
	Currency string `json:"currency"`
}

// NewAsset creates an asset. Currency defaults to USD when empty.
func NewAsset(symbol, currency string) Asset {
	if currency == "" {
		currency = "USD"
	}
	return Asset{Symbol: symbol, Currency: currency}
}

func (a Asset) String() string {
	return fmt.Sprintf("%s/%s", a.Symbol, a.Currency)
}
