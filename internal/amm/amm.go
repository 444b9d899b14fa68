// Package amm implements the constant-product swap law and the reserve-ratio
// fee heuristic. All arithmetic is fixed-point decimal; profit comparisons
// depend on its rounding behavior, so float64 is never used here.
package amm

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/types"
)

var one = decimal.NewFromInt(1)

// ComputeOutput estimates the swap output for inputAmount against the given
// reserves under the constant-product invariant the pool itself enforces:
//
//	inputAfterFee = inputAmount * (1 - feeRate)
//	output        = reserveOut * inputAfterFee / (reserveIn + inputAfterFee)
//	minOutput     = output * (1 - slippageTolerance)
//
// The formula is exact, not an approximation; minOutput is the on-chain floor
// that protects execution against reserve movement.
func ComputeOutput(reserveIn, reserveOut, inputAmount, feeRate, slippageTolerance decimal.Decimal) (types.Quote, error) {
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return types.Quote{}, fmt.Errorf("%w: reserves %s/%s",
			types.ErrIllegalPoolState, reserveIn.String(), reserveOut.String())
	}
	if inputAmount.Sign() <= 0 {
		return types.Quote{}, fmt.Errorf("input amount must be positive, got %s", inputAmount.String())
	}
	if err := checkRate("fee rate", feeRate); err != nil {
		return types.Quote{}, err
	}
	if err := checkRate("slippage tolerance", slippageTolerance); err != nil {
		return types.Quote{}, err
	}

	inputAfterFee := inputAmount.Mul(one.Sub(feeRate))
	output := reserveOut.Mul(inputAfterFee).Div(reserveIn.Add(inputAfterFee))
	minOutput := output.Mul(one.Sub(slippageTolerance))

	return types.Quote{
		Input:         inputAmount,
		InputAfterFee: inputAfterFee,
		Output:        output,
		MinOutput:     minOutput,
	}, nil
}

// SpotRate returns the simple reserve ratio reserveOut/reserveIn. It ignores
// price impact and slippage and is therefore optimistic relative to
// ComputeOutput; use it only for profitability estimation, never for actual
// swap amounts.
func SpotRate(reserveIn, reserveOut decimal.Decimal) (decimal.Decimal, error) {
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: reserves %s/%s",
			types.ErrIllegalPoolState, reserveIn.String(), reserveOut.String())
	}
	return reserveOut.Div(reserveIn), nil
}

// EstimateFee derives an effective fee figure for ranking candidate pools:
//
//	priceImpact = reserveB / reserveA
//	fee         = priceImpact * baseFeeRate
//
// This is a heuristic proxy for expected slippage cost, not the fee the pool
// charges (that is baseFeeRate alone, applied in ComputeOutput). When
// reserveB > reserveA the estimate exceeds the real fee; the bias is known and
// accepted because the figure only ranks pools relative to each other.
func EstimateFee(reserveA, reserveB, baseFeeRate decimal.Decimal) (fee, priceImpact decimal.Decimal, err error) {
	if reserveA.Sign() <= 0 || reserveB.Sign() <= 0 {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: reserves %s/%s",
			types.ErrIllegalPoolState, reserveA.String(), reserveB.String())
	}
	if err := checkRate("base fee rate", baseFeeRate); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	priceImpact = reserveB.Div(reserveA)
	return priceImpact.Mul(baseFeeRate), priceImpact, nil
}

func checkRate(name string, r decimal.Decimal) error {
	if r.Sign() < 0 || r.GreaterThanOrEqual(one) {
		return fmt.Errorf("%s must be in [0,1), got %s", name, r.String())
	}
	return nil
}
