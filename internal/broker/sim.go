// Package broker implements the simulated broker: a deterministic,
// single-owner execution engine that matches pending orders against market
// events and settles fills into the account.
package broker

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/alexe13/roboquant/internal/domain"
	"github.com/alexe13/roboquant/internal/event"
	"github.com/alexe13/roboquant/internal/policy"
	"github.com/alexe13/roboquant/pkg/quant"
)

// Config wires the broker's policies and initial funding.
type Config struct {
	BaseCurrency string
	Deposit      map[string]quant.AmountMicros
	Cost         policy.CostModel
	BuyingPower  policy.BuyingPowerModel
}

// SimBroker owns one Account exclusively. Place applies one market event
// at a time; callers only ever receive value snapshots. The mutex guards
// external reads (Account, Metrics) against the owning loop, not
// concurrent Place calls — those are forbidden by contract.
type SimBroker struct {
	mu      sync.Mutex
	cfg     Config
	account *domain.Account
	metrics map[string]float64
	nextID  uint64
}

// New validates the configuration and creates a funded broker.
// Policy misconfiguration fails here, never at Place time.
func New(cfg Config) (*SimBroker, error) {
	if cfg.BaseCurrency == "" {
		cfg.BaseCurrency = "USD"
	}
	if len(cfg.Deposit) == 0 {
		return nil, fmt.Errorf("initial deposit is required")
	}
	for cur, amt := range cfg.Deposit {
		if amt <= 0 {
			return nil, fmt.Errorf("deposit must be positive: %s %d", cur, amt)
		}
	}
	if cfg.Cost == nil {
		cfg.Cost = policy.NoCost()
	}
	if cfg.BuyingPower == nil {
		cfg.BuyingPower = policy.NewCashBuyingPower()
	}

	return &SimBroker{
		cfg:     cfg,
		account: domain.NewAccount(cfg.BaseCurrency, cfg.Deposit),
		metrics: make(map[string]float64),
	}, nil
}

// Place merges new orders into the book and applies one market event:
// modify pass, trade pass, settlement, mark-to-market, buying power.
// It never fails for ordinary market conditions; rejections and deferred
// fills are visible only through order status.
func (b *SimBroker) Place(orders []*domain.Order, ev *event.MarketEvent) domain.AccountSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.placeLocked(orders, ev)
}

func (b *SimBroker) placeLocked(orders []*domain.Order, ev *event.MarketEvent) domain.AccountSnapshot {
	acct := b.account

	for _, o := range orders {
		if o.ID == "" {
			o.ID = fmt.Sprintf("sim-%d", quant.NextSeq(&b.nextID))
		}
		acct.Orders = append(acct.Orders, domain.NewOrderState(o))
	}

	open := acct.OpenOrders()

	// Modify pass runs first and unconditionally: it touches order
	// bookkeeping only, so no price is needed.
	for _, st := range open {
		if st.Order.Kind.IsModify() {
			b.runModify(st, ev.GetTs())
		}
	}

	// Trade pass: orders without a price observation this event stay
	// untouched and are retried on the next event that carries one.
	for _, st := range open {
		if st.Order.Kind.IsModify() || st.Status.Terminal() {
			continue
		}
		obs, ok := ev.Prices[st.Order.Asset.Symbol]
		if !ok {
			continue
		}
		b.runTrade(st, obs, ev.GetTs())
	}

	for sym, obs := range ev.Prices {
		acct.Portfolio.MarkToMarket(sym, obs.Ref(event.RefClose), ev.GetTs())
	}

	b.refreshBuyingPower()
	acct.LastUpdate = ev.GetTs()

	return acct.Snapshot()
}

// runModify resolves a cancel order against its target.
func (b *SimBroker) runModify(st *domain.OrderState, ts quant.TimeStamp) {
	st.PlacedAt = ts

	target := b.findOrder(st.Order.TargetID)
	if target == nil || target.Status.Terminal() || target.Order.Kind.IsModify() {
		st.Transition(domain.StatusRejected)
		slog.Warn("SIM BROKER: cancel rejected",
			slog.String("id", st.Order.ID),
			slog.String("target", st.Order.TargetID))
		return
	}

	target.Transition(domain.StatusCancelled)
	st.Transition(domain.StatusCompleted)
	slog.Info("SIM BROKER: order cancelled",
		slog.String("id", target.Order.ID),
		slog.String("by", st.Order.ID))
}

// runTrade advances one trade order against a price observation.
func (b *SimBroker) runTrade(st *domain.OrderState, obs event.PriceObservation, ts quant.TimeStamp) {
	if st.Order.GoodTill != 0 && ts > st.Order.GoodTill {
		st.Transition(domain.StatusExpired)
		slog.Info("SIM BROKER: order expired", slog.String("id", st.Order.ID))
		return
	}

	price := b.cfg.Cost.Price(st.Order, obs)

	if st.Status == domain.StatusInitial {
		st.PlacedAt = ts
		if !b.accepts(st, price, ts) {
			st.Transition(domain.StatusRejected)
			slog.Warn("SIM BROKER: order rejected (buying power)",
				slog.String("id", st.Order.ID),
				slog.String("asset", st.Order.Asset.String()),
				slog.String("qty", st.Order.Qty.String()))
			return
		}
		st.Transition(domain.StatusAccepted)
	}

	qty := st.FillQty(price)
	if qty == 0 {
		return
	}

	b.settle(st, domain.Execution{Order: st.Order, Qty: qty, Price: price, Time: ts})
}

// accepts checks whether the incremental requirement of the order's
// remaining size, priced at the current observation, fits in the
// account's buying power. The proposed fill is netted into the existing
// position first: an order that reduces exposure frees requirement
// instead of being charged as a fresh opposite position, so closes and
// liquidations go through even with zero buying power left.
func (b *SimBroker) accepts(st *domain.OrderState, price quant.PriceMicros, ts quant.TimeStamp) bool {
	current := b.account.Portfolio.Positions()
	proposed := netFill(current, st.Order.Asset, st.Remaining(), price, ts)

	base := b.cfg.BuyingPower.Calculate(current, nil)
	with := b.cfg.BuyingPower.Calculate(proposed, nil)

	need := domain.NewWallet()
	for _, cur := range with.Currencies() {
		need.Add(cur, with.Get(cur)-base.Get(cur))
	}
	// The fee settles in cash at fill time, so it counts against buying
	// power up front.
	fee := b.cfg.Cost.Fee(domain.Execution{Order: st.Order, Qty: st.Remaining(), Price: price, Time: ts})
	need.Add(st.Order.Asset.Currency, fee)

	for _, cur := range need.Currencies() {
		if need.Get(cur) > b.account.BuyingPower.Get(cur) {
			return false
		}
	}
	return true
}

// netFill applies a hypothetical fill to value copies of the current
// positions and returns the resulting set, with flat entries dropped.
func netFill(positions []domain.Position, asset domain.Asset, qty quant.QtyUnits, price quant.PriceMicros, ts quant.TimeStamp) []domain.Position {
	out := make([]domain.Position, 0, len(positions)+1)
	held := false
	for _, p := range positions {
		if p.Asset == asset {
			held = true
			p.ApplyFill(qty, price, ts)
			if p.IsFlat() {
				continue
			}
		}
		out = append(out, p)
	}
	if !held {
		p := domain.Position{Asset: asset}
		p.ApplyFill(qty, price, ts)
		out = append(out, p)
	}
	return out
}

// settle applies one execution atomically: position, cash, fee, trade
// ledger, order state, metrics.
func (b *SimBroker) settle(st *domain.OrderState, exec domain.Execution) {
	acct := b.account
	cur := exec.Order.Asset.Currency

	realized := acct.Portfolio.ApplyFill(exec.Order.Asset, exec.Qty, exec.Price, exec.Time)
	fee := b.cfg.Cost.Fee(exec)

	// Buys debit cash, sells credit it. Under the cash-only policy the
	// fee goes through the checked withdrawal and the wallet must come
	// out non-negative; margin policies settle signed.
	acct.Cash.Add(cur, -quant.Notional(exec.Price, exec.Qty))
	if b.strictCash() {
		if fee > 0 {
			acct.Cash.Withdraw(cur, fee)
		}
		acct.Cash.VerifyNonNegative()
	} else {
		acct.Cash.Add(cur, -fee)
	}

	acct.Trades = append(acct.Trades, domain.Trade{
		Time:        exec.Time,
		Asset:       exec.Order.Asset,
		Qty:         exec.Qty,
		Price:       exec.Price,
		Fee:         fee,
		RealizedPnL: realized - fee,
		OrderID:     exec.Order.ID,
	})

	st.FilledQty += exec.Qty
	if st.Remaining() == 0 {
		st.Transition(domain.StatusCompleted)
	} else {
		st.Transition(domain.StatusPartial)
	}

	sym := exec.Order.Asset.Symbol
	b.metrics[sym+".executed.qty"] += exec.Qty.Float64()
	b.metrics[sym+".executed.price"] = exec.Price.Float64()
	b.metrics["fills.total"]++

	slog.Info("SIM BROKER: order filled",
		slog.String("id", exec.Order.ID),
		slog.String("asset", exec.Order.Asset.String()),
		slog.String("qty", exec.Qty.String()),
		slog.String("price", exec.Price.String()),
		slog.String("status", st.Status.String()))
}

// strictCash reports whether the account runs under the cash-only
// policy, where overdrawing the wallet is an invariant violation.
func (b *SimBroker) strictCash() bool {
	_, ok := b.cfg.BuyingPower.(*policy.CashBuyingPower)
	return ok
}

// refreshBuyingPower recomputes per-currency buying power as cash minus
// current usage, floored at zero.
func (b *SimBroker) refreshBuyingPower() {
	acct := b.account
	bp := acct.Cash.Clone()
	used := b.cfg.BuyingPower.Calculate(acct.Portfolio.Positions(), nil)
	for cur, amt := range used.Snapshot() {
		bp.Add(cur, -amt)
	}
	for _, cur := range bp.Currencies() {
		if bp.Get(cur) < 0 {
			bp.Set(cur, 0)
		}
	}
	acct.BuyingPower = bp
}

func (b *SimBroker) findOrder(id string) *domain.OrderState {
	for _, st := range b.account.Orders {
		if st.Order.ID == id {
			return st
		}
	}
	return nil
}

// Liquidate cancels every open order and closes every position with
// market orders priced off the portfolio's last known prices. It reuses
// the normal Place path; there is no separate liquidation logic.
func (b *SimBroker) Liquidate(ts quant.TimeStamp) domain.AccountSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	var orders []*domain.Order
	for _, st := range b.account.OpenOrders() {
		if !st.Order.Kind.IsModify() {
			orders = append(orders, domain.NewCancelOrder(st.Order.ID))
		}
	}
	for asset, qty := range b.account.Portfolio.Diff(nil) {
		orders = append(orders, domain.NewMarketOrder(asset, qty))
	}

	ev := event.NewMarketEvent(0, ts)
	for sym, price := range b.account.Portfolio.LastPrices() {
		ev.Prices[sym] = event.Obs(price)
	}

	slog.Info("SIM BROKER: liquidating portfolio",
		slog.Int("orders", len(orders)),
		slog.Any("exposure", b.account.Portfolio.Exposure().Snapshot()))
	return b.placeLocked(orders, ev)
}

// Reset clears all state and re-funds the account with the initial
// deposit. Called only at a phase boundary, never mid-run.
func (b *SimBroker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.account = domain.NewAccount(b.cfg.BaseCurrency, b.cfg.Deposit)
	b.metrics = make(map[string]float64)
	slog.Info("SIM BROKER: reset")
}

// Account returns a value snapshot of the current account state.
func (b *SimBroker) Account() domain.AccountSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.account.Snapshot()
}

// Metrics drains the broker-internal counters: the returned map holds
// everything recorded since the last call, and the counters start over.
func (b *SimBroker) Metrics() map[string]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.metrics
	b.metrics = make(map[string]float64)
	return out
}
