// Package risk decides whether an evaluated cycle is worth sending to the
// chain. It gates on the configured profit threshold and on the wallet still
// holding enough of the base asset to fund the first leg.
package risk

import (
	"github.com/shopspring/decimal"

	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/config"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/types"
)

type Engine struct {
	thresholdPct decimal.Decimal
	minTrade     decimal.Decimal
}

func NewEngine(cfg *config.Config) *Engine {
	return &Engine{
		thresholdPct: decimal.NewFromFloat(cfg.Strategy.ProfitThresholdPct),
		minTrade:     decimal.NewFromFloat(cfg.Strategy.MinTradeAmount),
	}
}

// AllowTrade reports whether the cycle clears the profit threshold and the
// wallet balance sits at or above the minimum-trade floor. Threshold
// comparison is strict: a cycle at exactly the threshold does not trade.
// Config loading guarantees the trade amount itself is at or above the floor.
func (e *Engine) AllowTrade(eval types.CycleEvaluation, balance decimal.Decimal) bool {
	if eval.ProfitPct.Cmp(e.thresholdPct) <= 0 {
		return false
	}
	if balance.Cmp(e.minTrade) < 0 {
		return false
	}
	return true
}
