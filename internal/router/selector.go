// Package router picks the 3-pool cycle for one iteration. Candidate pools
// are ranked by the reserve-ratio fee heuristic and the first candidate with
// an unambiguous quote-asset pairing wins.
package router

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/amm"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/types"
)

type reservesFetcher interface {
	FetchReserves(ctx context.Context, pool types.Pool) (reserveA, reserveB decimal.Decimal, err error)
}

type Selector struct {
	oracle reservesFetcher
	log    *zap.Logger
}

func New(oracle reservesFetcher, log *zap.Logger) *Selector {
	return &Selector{oracle: oracle, log: log}
}

type candidate struct {
	pool        types.Pool
	fee         decimal.Decimal
	priceImpact decimal.Decimal
	order       int // position in the input slice, the tie-break key
}

// SelectRoute builds a base -> quote -> X -> base cycle:
//
//  1. enumerate pools containing the base asset (the direct base/quote pool is
//     the fixed first leg, not a candidate),
//  2. rank candidates ascending by estimated fee (stable, so equal fees keep
//     input order),
//  3. accept the first candidate whose non-base asset X has exactly one pool
//     pairing it with the quote asset.
//
// An ambiguous or missing pairing makes a candidate unusable, not an error;
// exhausting all candidates yields ErrNoRouteFound.
func (s *Selector) SelectRoute(ctx context.Context, base, quote types.Asset, pools []types.Pool) (types.Route, error) {
	var direct *types.Pool
	for i := range pools {
		if pools[i].Pairs(base.Symbol, quote.Symbol) {
			direct = &pools[i]
			break
		}
	}
	if direct == nil {
		return types.Route{}, fmt.Errorf("%w: no %s/%s pool for the first leg",
			types.ErrNoRouteFound, base.Symbol, quote.Symbol)
	}

	var candidates []candidate
	for i, p := range pools {
		if !p.Has(base.Symbol) || p.Pairs(base.Symbol, quote.Symbol) {
			continue
		}
		candidates = append(candidates, candidate{pool: p, order: i})
	}
	if len(candidates) == 0 {
		return types.Route{}, fmt.Errorf("%w: no counter-leg pool contains %s",
			types.ErrNoRouteFound, base.Symbol)
	}

	// Independent reads; join before ranking.
	g, gctx := errgroup.WithContext(ctx)
	for i := range candidates {
		c := &candidates[i]
		g.Go(func() error {
			reserveA, reserveB, err := s.oracle.FetchReserves(gctx, c.pool)
			if err != nil {
				return err
			}
			c.fee, c.priceImpact, err = amm.EstimateFee(reserveA, reserveB, c.pool.BaseFeeRate)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return types.Route{}, fmt.Errorf("rank candidates: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].fee.LessThan(candidates[j].fee)
	})

	for _, c := range candidates {
		x, _ := c.pool.Other(base.Symbol)

		var pairing []types.Pool
		for _, p := range pools {
			if p.Pairs(x.Symbol, quote.Symbol) {
				pairing = append(pairing, p)
			}
		}
		if len(pairing) != 1 {
			s.log.Debug("candidate unusable",
				zap.String("pool", c.pool.Name),
				zap.String("asset", x.Symbol),
				zap.Int("quote_pairings", len(pairing)),
			)
			continue
		}

		route, err := types.NewRoute(base.Symbol, [3]types.Leg{
			{Pool: *direct, In: base, Out: quote},
			{Pool: pairing[0], In: quote, Out: x},
			{Pool: c.pool, In: x, Out: base},
		})
		if err != nil {
			// Continuity is guaranteed by construction above.
			return types.Route{}, fmt.Errorf("assemble route: %w", err)
		}

		s.log.Debug("route selected",
			zap.String("path", route.Path()),
			zap.String("via", c.pool.Name),
			zap.String("est_fee", c.fee.String()),
			zap.String("price_impact", c.priceImpact.String()),
		)
		return route, nil
	}

	return types.Route{}, fmt.Errorf("%w: no candidate has a unique %s pairing",
		types.ErrNoRouteFound, quote.Symbol)
}
