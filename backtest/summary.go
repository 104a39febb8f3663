package backtest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alexe13/roboquant/internal/domain"
	"github.com/alexe13/roboquant/pkg/quant"
)

// Summary condenses a finished run into the numbers a report needs.
// Ratios use decimal so the rendered report is exact, not float-rounded.
type Summary struct {
	Trades      int
	Wins        int
	Losses      int
	WinRate     decimal.Decimal // wins / closing trades, 0 when no closing trades
	TotalFees   map[string]quant.AmountMicros
	RealizedPnL map[string]quant.AmountMicros
	Cash        map[string]quant.AmountMicros
	Equity      map[string]quant.AmountMicros
	OpenCount   int
}

// Summarize builds a summary from a final account snapshot.
func Summarize(snap domain.AccountSnapshot) *Summary {
	s := &Summary{
		Trades:      len(snap.Trades),
		TotalFees:   make(map[string]quant.AmountMicros),
		RealizedPnL: make(map[string]quant.AmountMicros),
		Cash:        snap.Cash,
		Equity:      snap.Equity,
		OpenCount:   len(snap.Positions),
	}

	closing := 0
	for _, tr := range snap.Trades {
		cur := tr.Asset.Currency
		s.TotalFees[cur] += tr.Fee
		s.RealizedPnL[cur] += tr.RealizedPnL

		// A trade that only opens or adds to a position carries pnl equal
		// to minus its fee; anything else closed some quantity.
		if tr.RealizedPnL != -tr.Fee {
			closing++
			if tr.RealizedPnL > 0 {
				s.Wins++
			} else {
				s.Losses++
			}
		}
	}

	if closing > 0 {
		s.WinRate = decimal.NewFromInt(int64(s.Wins)).
			Div(decimal.NewFromInt(int64(closing))).
			Round(4)
	}
	return s
}

// String renders a human-readable report.
func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Backtest Summary ===\n")
	fmt.Fprintf(&b, "Trades:    %d (wins %d, losses %d, win rate %s)\n",
		s.Trades, s.Wins, s.Losses, s.WinRate.Mul(decimal.NewFromInt(100)).StringFixed(2)+"%")
	fmt.Fprintf(&b, "Open:      %d positions\n", s.OpenCount)

	for _, cur := range sortedKeys(s.Equity) {
		fmt.Fprintf(&b, "[%s] equity %s  cash %s  realized %s  fees %s\n",
			cur,
			s.Equity[cur].String(),
			s.Cash[cur].String(),
			s.RealizedPnL[cur].String(),
			s.TotalFees[cur].String())
	}
	return b.String()
}

func sortedKeys(m map[string]quant.AmountMicros) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
