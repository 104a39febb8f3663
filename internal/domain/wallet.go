package domain

import (
	"fmt"
	"sort"

	"github.com/alexe13/roboquant/pkg/quant"
	"github.com/alexe13/roboquant/pkg/safe"
)

// Wallet is a multi-currency cash ledger. It never converts between
// currencies; every currency is tracked as its own bucket.
type Wallet struct {
	amounts map[string]quant.AmountMicros
}

// NewWallet creates an empty wallet.
func NewWallet() *Wallet {
	return &Wallet{amounts: make(map[string]quant.AmountMicros)}
}

// Deposit credits the wallet. Amount must not be negative.
func (w *Wallet) Deposit(currency string, amount quant.AmountMicros) {
	if amount < 0 {
		panic(fmt.Sprintf("CORE_WALLET_NEGATIVE_DEPOSIT: %s %d", currency, amount))
	}
	w.Add(currency, amount)
}

// Withdraw debits the wallet. Withdrawing more than the balance is a
// broken invariant, not a user error: callers must check first.
func (w *Wallet) Withdraw(currency string, amount quant.AmountMicros) {
	if amount < 0 {
		panic(fmt.Sprintf("CORE_WALLET_NEGATIVE_WITHDRAW: %s %d", currency, amount))
	}
	if w.Get(currency) < amount {
		panic(fmt.Sprintf("CORE_WALLET_INSUFFICIENT: %s need %d have %d",
			currency, amount, w.Get(currency)))
	}
	w.Add(currency, -amount)
}

// Add applies a signed delta to a currency bucket. Settlement uses this
// directly; negative balances are legal under margin policies.
func (w *Wallet) Add(currency string, delta quant.AmountMicros) {
	next := quant.AmountMicros(safe.SafeAdd(int64(w.amounts[currency]), int64(delta)))
	if next == 0 {
		delete(w.amounts, currency)
		return
	}
	w.amounts[currency] = next
}

// Get returns the balance for a currency (zero if absent).
func (w *Wallet) Get(currency string) quant.AmountMicros {
	return w.amounts[currency]
}

// Set overwrites a currency bucket.
func (w *Wallet) Set(currency string, amount quant.AmountMicros) {
	if amount == 0 {
		delete(w.amounts, currency)
		return
	}
	w.amounts[currency] = amount
}

// AddWallet merges another wallet into this one, per currency.
func (w *Wallet) AddWallet(o *Wallet) {
	for cur, amt := range o.amounts {
		w.Add(cur, amt)
	}
}

// Currencies returns the held currencies in sorted order.
func (w *Wallet) Currencies() []string {
	out := make([]string, 0, len(w.amounts))
	for cur := range w.amounts {
		out = append(out, cur)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a copy of all balances.
func (w *Wallet) Snapshot() map[string]quant.AmountMicros {
	out := make(map[string]quant.AmountMicros, len(w.amounts))
	for cur, amt := range w.amounts {
		out[cur] = amt
	}
	return out
}

// Clone returns an independent copy.
func (w *Wallet) Clone() *Wallet {
	return &Wallet{amounts: w.Snapshot()}
}

// IsEmpty reports whether every bucket is zero.
func (w *Wallet) IsEmpty() bool {
	return len(w.amounts) == 0
}

// VerifyNonNegative panics if any bucket is negative. Policies that forbid
// leverage call this after settlement.
func (w *Wallet) VerifyNonNegative() {
	for cur, amt := range w.amounts {
		if amt < 0 {
			panic(fmt.Sprintf("CORE_WALLET_NEGATIVE_BALANCE: %s %d", cur, amt))
		}
	}
}
