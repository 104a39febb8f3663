package domain

import (
	"github.com/alexe13/roboquant/pkg/quant"
)

// Account is the aggregate root owned by exactly one broker instance:
// cash, portfolio, the full order and trade ledgers, and buying power.
// External callers only ever see AccountSnapshot copies.
type Account struct {
	BaseCurrency string
	Cash         *Wallet
	Portfolio    *Portfolio
	Orders       []*OrderState // every order ever submitted
	Trades       []Trade
	BuyingPower  *Wallet
	LastUpdate   quant.TimeStamp
}

// NewAccount creates a funded account.
func NewAccount(baseCurrency string, deposit map[string]quant.AmountMicros) *Account {
	a := &Account{
		BaseCurrency: baseCurrency,
		Cash:         NewWallet(),
		Portfolio:    NewPortfolio(),
		BuyingPower:  NewWallet(),
	}
	for cur, amt := range deposit {
		a.Cash.Deposit(cur, amt)
		a.BuyingPower.Deposit(cur, amt)
	}
	return a
}

// OpenOrders returns the states whose status is not terminal.
func (a *Account) OpenOrders() []*OrderState {
	var out []*OrderState
	for _, st := range a.Orders {
		if st.Status.Open() {
			out = append(out, st)
		}
	}
	return out
}

// Equity returns cash plus signed portfolio value, per currency.
func (a *Account) Equity() *Wallet {
	eq := a.Cash.Clone()
	eq.AddWallet(a.Portfolio.Value())
	return eq
}

// OrderView is the read-only projection of one order's state.
type OrderView struct {
	ID        string            `json:"id"`
	Tag       string            `json:"tag,omitempty"`
	Asset     Asset             `json:"asset"`
	Kind      OrderKind         `json:"kind"`
	Qty       quant.QtyUnits    `json:"qty"`
	Status    OrderStatus       `json:"status"`
	PlacedAt  quant.TimeStamp   `json:"placed_at,omitempty"`
	FilledQty quant.QtyUnits    `json:"filled_qty,omitempty"`
}

// AccountSnapshot is an immutable value copy of the account, returned by
// every broker operation. Mutating it never touches engine state.
type AccountSnapshot struct {
	BaseCurrency string                        `json:"base_currency"`
	Cash         map[string]quant.AmountMicros `json:"cash"`
	BuyingPower  map[string]quant.AmountMicros `json:"buying_power"`
	Equity       map[string]quant.AmountMicros `json:"equity"`
	Positions    []Position                    `json:"positions"`
	Orders       []OrderView                   `json:"orders"`
	Trades       []Trade                       `json:"trades"`
	LastUpdate   quant.TimeStamp               `json:"last_update"`
}

// Snapshot deep-copies the account into a caller-owned value.
func (a *Account) Snapshot() AccountSnapshot {
	orders := make([]OrderView, 0, len(a.Orders))
	for _, st := range a.Orders {
		orders = append(orders, OrderView{
			ID:        st.Order.ID,
			Tag:       st.Order.Tag,
			Asset:     st.Order.Asset,
			Kind:      st.Order.Kind,
			Qty:       st.Order.Qty,
			Status:    st.Status,
			PlacedAt:  st.PlacedAt,
			FilledQty: st.FilledQty,
		})
	}
	trades := make([]Trade, len(a.Trades))
	copy(trades, a.Trades)

	return AccountSnapshot{
		BaseCurrency: a.BaseCurrency,
		Cash:         a.Cash.Snapshot(),
		BuyingPower:  a.BuyingPower.Snapshot(),
		Equity:       a.Equity().Snapshot(),
		Positions:    a.Portfolio.Positions(),
		Orders:       orders,
		Trades:       trades,
		LastUpdate:   a.LastUpdate,
	}
}
