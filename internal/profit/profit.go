// Package profit chains three per-leg rates and fees into a net profit figure
// for one triangular cycle. Pure decimal arithmetic, no I/O: identical inputs
// always yield identical output.
package profit

import (
	"github.com/shopspring/decimal"

	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/types"
)

var (
	one     = decimal.NewFromInt(1)
	three   = decimal.NewFromInt(3)
	hundred = decimal.NewFromInt(100)
)

// Compute applies afterLeg_i = afterLeg_{i-1} * rate_i * (1 - fee_i) for the
// three legs, then subtracts the start amount and the network fee charged once
// per leg. Rates come from spot ratios and are optimistic relative to the
// executed constant-product outputs; the threshold gate absorbs that bias.
func Compute(startAmount decimal.Decimal, rates, fees [3]decimal.Decimal, networkFee decimal.Decimal) types.CycleEvaluation {
	after := startAmount
	for i := 0; i < 3; i++ {
		after = after.Mul(rates[i]).Mul(one.Sub(fees[i]))
	}

	net := after.Sub(startAmount).Sub(networkFee.Mul(three))

	pct := decimal.Zero
	if startAmount.Sign() > 0 {
		pct = net.Div(startAmount).Mul(hundred)
	}

	return types.CycleEvaluation{
		StartAmount: startAmount,
		Rates:       rates,
		Fees:        fees,
		NetworkFee:  networkFee,
		NetProfit:   net,
		ProfitPct:   pct,
	}
}
