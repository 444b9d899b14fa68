// Package bot runs the engine's main loop: fetch market data, select a
// route, evaluate profit, then execute or sleep. Every iteration starts from
// fresh on-chain reads; nothing carries over except the wallet.
package bot

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/amm"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/config"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/dash"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/execution"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/feed"
	imetrics "github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/metrics"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/profit"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/registry"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/types"
)

// State is the loop's current phase, exported to the dashboard.
type State string

const (
	StateIdle       State = "Idle"
	StateFetching   State = "FetchingMarketData"
	StateSelecting  State = "SelectingRoute"
	StateEvaluating State = "EvaluatingProfit"
	StateExecuting  State = "Executing"
	StateSleeping   State = "Sleeping"
)

const lamportsPerSol = 1_000_000_000

type marketOracle interface {
	FetchReserves(ctx context.Context, pool types.Pool) (reserveA, reserveB decimal.Decimal, err error)
	WalletBalance(ctx context.Context, owner solana.PublicKey) (decimal.Decimal, error)
	EstimateNetworkFee(ctx context.Context, payer solana.PublicKey) (decimal.Decimal, error)
}

type routeSelector interface {
	SelectRoute(ctx context.Context, base, quote types.Asset, pools []types.Pool) (types.Route, error)
}

type cycleExecutor interface {
	ExecuteCycle(ctx context.Context, route types.Route, startAmount decimal.Decimal) (execution.CycleResult, error)
}

type tradeGate interface {
	AllowTrade(eval types.CycleEvaluation, balance decimal.Decimal) bool
}

type Bot struct {
	cfg      *config.Config
	reg      *registry.Registry
	oracle   marketOracle
	selector routeSelector
	executor cycleExecutor
	gate     tradeGate
	feed     *feed.Publisher
	board    *dash.Store
	owner    solana.PublicKey
	log      *zap.Logger

	// injectable for tests
	sleep func(ctx context.Context, d time.Duration)
	now   func() time.Time
}

func New(cfg *config.Config, reg *registry.Registry, oracle marketOracle, selector routeSelector,
	executor cycleExecutor, gate tradeGate, pub *feed.Publisher, board *dash.Store,
	owner solana.PublicKey, log *zap.Logger) *Bot {
	return &Bot{
		cfg:      cfg,
		reg:      reg,
		oracle:   oracle,
		selector: selector,
		executor: executor,
		gate:     gate,
		feed:     pub,
		board:    board,
		owner:    owner,
		log:      log,
		sleep:    sleepCtx,
		now:      time.Now,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Run iterates until the context is cancelled. Any iteration error is logged
// and absorbed with a fixed backoff; one bad pass never stops the loop.
func (b *Bot) Run(ctx context.Context) {
	b.log.Info("engine loop starting",
		zap.String("base", b.reg.Base.Symbol),
		zap.String("quote", b.reg.Quote.Symbol),
		zap.Int("pools", len(b.reg.Pools)),
		zap.Bool("dry_run", b.cfg.DryRun),
	)
	for {
		select {
		case <-ctx.Done():
			b.setState(StateIdle)
			b.log.Info("engine loop stopped")
			return
		default:
		}

		imetrics.Iterations.Inc()
		executed, err := b.runOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			imetrics.IterationErrors.Inc()
			b.log.Error("iteration failed", zap.Error(err))
			b.setState(StateSleeping)
			b.sleep(ctx, b.cfg.ErrorBackoff())
			continue
		}
		if executed {
			b.log.Debug("cycle complete, next iteration")
		}
		b.setState(StateSleeping)
		b.sleep(ctx, b.cfg.IterationInterval())
		b.setState(StateIdle)
	}
}

// runOnce performs one full pass and reports whether a cycle was executed.
func (b *Bot) runOnce(ctx context.Context) (bool, error) {
	b.setState(StateFetching)

	lamports, err := b.oracle.WalletBalance(ctx, b.owner)
	if err != nil {
		return false, err
	}
	balance := lamports.Div(decimal.New(lamportsPerSol, 0))
	imetrics.WalletBalance.Set(toFloat(balance))
	if b.board != nil {
		b.board.SetBalance(balance.StringFixed(6))
	}

	networkFee, err := b.oracle.EstimateNetworkFee(ctx, b.owner)
	if err != nil {
		return false, err
	}
	imetrics.NetworkFee.Set(toFloat(networkFee))

	b.setState(StateSelecting)
	route, err := b.selector.SelectRoute(ctx, b.reg.Base, b.reg.Quote, b.reg.Pools)
	if err != nil {
		if errors.Is(err, types.ErrNoRouteFound) {
			b.log.Warn("no usable route this iteration", zap.Error(err))
			return false, nil
		}
		return false, err
	}

	b.setState(StateEvaluating)
	eval, err := b.evaluate(ctx, route, networkFee)
	if err != nil {
		return false, err
	}
	eval.Ts = b.now()

	imetrics.NetProfit.Set(toFloat(eval.NetProfit))
	imetrics.ProfitPct.Set(toFloat(eval.ProfitPct))

	allowed := b.gate.AllowTrade(eval, balance)
	execute := allowed && !b.cfg.DryRun && b.feeWithinCap(networkFee)

	b.log.Info("cycle evaluated",
		zap.String("path", route.Path()),
		zap.String("net_profit", eval.NetProfit.StringFixed(9)),
		zap.String("profit_pct", eval.ProfitPct.StringFixed(6)),
		zap.String("network_fee", eval.NetworkFee.String()),
		zap.Bool("trade", execute),
	)
	b.publish(ctx, route, eval, execute)

	if allowed && b.cfg.DryRun {
		b.log.Info("dry run: profitable cycle not executed", zap.String("path", route.Path()))
	}
	if !execute {
		return false, nil
	}

	b.setState(StateExecuting)
	startRaw := b.reg.Base.ToRaw(eval.StartAmount)
	result, err := b.executor.ExecuteCycle(ctx, route, startRaw)
	if err != nil {
		// Filled legs stand; the error surfaces for backoff and the next
		// iteration re-reads the wallet from scratch.
		b.log.Error("cycle execution failed",
			zap.String("path", route.Path()),
			zap.Int("legs_filled", len(result.Fills)),
			zap.Error(err),
		)
		return false, err
	}

	imetrics.TradesExecuted.Inc()
	b.log.Info("cycle executed",
		zap.String("path", route.Path()),
		zap.String("final_output", b.reg.Base.ToDisplay(result.FinalOutput).StringFixed(9)),
	)
	return true, nil
}

// evaluate prices the route from fresh reserves: per-leg display-unit spot
// rates and the reserve-ratio fee estimate feed the chained profit compute.
func (b *Bot) evaluate(ctx context.Context, route types.Route, networkFee decimal.Decimal) (types.CycleEvaluation, error) {
	var rates, fees [3]decimal.Decimal
	for i, leg := range route.Legs {
		reserveA, reserveB, err := b.oracle.FetchReserves(ctx, leg.Pool)
		if err != nil {
			return types.CycleEvaluation{}, err
		}

		reserveIn, reserveOut := reserveA, reserveB
		if leg.In.Symbol == leg.Pool.TokenB.Symbol {
			reserveIn, reserveOut = reserveB, reserveA
		}

		// Spot rate in display units; decimals differ between the two sides.
		rate, err := amm.SpotRate(leg.In.ToDisplay(reserveIn), leg.Out.ToDisplay(reserveOut))
		if err != nil {
			return types.CycleEvaluation{}, err
		}
		rates[i] = rate
		// The reserve-ratio estimate only ranks candidates in the router; the
		// fee a swap actually charges is the pool's own rate.
		fees[i] = leg.Pool.BaseFeeRate
	}

	start := decimal.NewFromFloat(b.cfg.Strategy.TradeAmount)
	return profit.Compute(start, rates, fees, networkFee), nil
}

func (b *Bot) feeWithinCap(networkFee decimal.Decimal) bool {
	capLamports := b.cfg.Strategy.PriorityFeeCapLamports
	if capLamports == 0 {
		return true
	}
	feeLamports := networkFee.Mul(decimal.New(lamportsPerSol, 0))
	if feeLamports.Cmp(decimal.NewFromUint64(capLamports)) > 0 {
		b.log.Warn("network fee above cap, skipping execution",
			zap.String("fee_lamports", feeLamports.String()),
			zap.Uint64("cap_lamports", capLamports),
		)
		return false
	}
	return true
}

func (b *Bot) publish(ctx context.Context, route types.Route, eval types.CycleEvaluation, executed bool) {
	b.feed.PublishEvaluation(ctx, route.Path(), eval, executed)
	if b.board != nil {
		b.board.RecordCycle(dash.Row{
			Path:       route.Path(),
			StartAmt:   eval.StartAmount.String(),
			NetProfit:  eval.NetProfit.StringFixed(9),
			ProfitPct:  eval.ProfitPct.StringFixed(6),
			NetworkFee: eval.NetworkFee.String(),
			Executed:   executed,
			TS:         eval.Ts.UnixMilli(),
		})
	}
}

func (b *Bot) setState(s State) {
	if b.board != nil {
		b.board.SetState(string(s))
	}
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
