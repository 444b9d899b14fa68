// Package execution performs the three swap legs of an accepted cycle in
// strict dependency order. There is no multi-pool atomic primitive on the
// ledger: a failed leg leaves the wallet holding the intermediate asset, which
// is a user-visible outcome, not something the sequencer unwinds.
package execution

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/amm"
	imetrics "github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/metrics"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/types"
)

// Submitter sends one swap to the chain. It must enforce realizedOut >= minOut
// on-chain (the pool program's floor) or fail; the sequencer performs no
// independent verification.
type Submitter interface {
	SubmitSwap(ctx context.Context, pool types.Pool, input types.Asset, amountIn, minOut decimal.Decimal) (sig solana.Signature, realizedOut decimal.Decimal, err error)
}

type reservesFetcher interface {
	FetchReserves(ctx context.Context, pool types.Pool) (reserveA, reserveB decimal.Decimal, err error)
}

// Fill records one executed leg.
type Fill struct {
	Leg       types.Leg
	Signature solana.Signature
	AmountIn  decimal.Decimal
	AmountOut decimal.Decimal
}

// CycleResult is what actually happened, including partial execution.
type CycleResult struct {
	Fills       []Fill
	FinalOutput decimal.Decimal
}

type Sequencer struct {
	oracle    reservesFetcher
	submitter Submitter
	slippage  decimal.Decimal
	log       *zap.Logger
}

func New(oracle reservesFetcher, submitter Submitter, slippage decimal.Decimal, log *zap.Logger) *Sequencer {
	return &Sequencer{oracle: oracle, submitter: submitter, slippage: slippage, log: log}
}

// ExecuteCycle runs the route's three legs sequentially, feeding each leg's
// realized output into the next. Every leg re-derives its own quote from
// fresh reserves immediately before submission; reserves may have shifted
// since the route was evaluated. On any failure the sequence halts and the
// partial result is returned alongside the error.
func (s *Sequencer) ExecuteCycle(ctx context.Context, route types.Route, startAmount decimal.Decimal) (CycleResult, error) {
	result := CycleResult{Fills: make([]Fill, 0, 3)}

	amount := startAmount
	for i, leg := range route.Legs {
		quote, err := s.quoteLeg(ctx, leg, amount)
		if err != nil {
			return result, fmt.Errorf("leg %d (%s->%s): %w", i+1, leg.In.Symbol, leg.Out.Symbol, err)
		}

		sig, realized, err := s.submitter.SubmitSwap(ctx, leg.Pool, leg.In, amount, quote.MinOutput)
		if err != nil {
			imetrics.SubmissionErrors.Inc()
			return result, fmt.Errorf("%w: leg %d (%s->%s) via %s: %v",
				types.ErrSubmissionFailed, i+1, leg.In.Symbol, leg.Out.Symbol, leg.Pool.Name, err)
		}

		s.log.Info("leg executed",
			zap.Int("leg", i+1),
			zap.String("pool", leg.Pool.Name),
			zap.String("in", leg.In.Symbol),
			zap.String("out", leg.Out.Symbol),
			zap.String("amount_in", amount.String()),
			zap.String("estimated_out", quote.Output.String()),
			zap.String("min_out", quote.MinOutput.String()),
			zap.String("realized_out", realized.String()),
			zap.String("signature", sig.String()),
		)

		result.Fills = append(result.Fills, Fill{
			Leg:       leg,
			Signature: sig,
			AmountIn:  amount,
			AmountOut: realized,
		})
		result.FinalOutput = realized
		amount = realized
	}

	return result, nil
}

// quoteLeg orients the pool reserves to the leg direction and prices the swap.
func (s *Sequencer) quoteLeg(ctx context.Context, leg types.Leg, amount decimal.Decimal) (types.Quote, error) {
	reserveA, reserveB, err := s.oracle.FetchReserves(ctx, leg.Pool)
	if err != nil {
		return types.Quote{}, err
	}

	reserveIn, reserveOut := reserveA, reserveB
	if leg.In.Symbol == leg.Pool.TokenB.Symbol {
		reserveIn, reserveOut = reserveB, reserveA
	}
	return amm.ComputeOutput(reserveIn, reserveOut, amount, leg.Pool.BaseFeeRate, s.slippage)
}
