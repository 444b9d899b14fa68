package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/config"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/dash"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/execution"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/registry"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/types"
)

var (
	solAsset  = types.Asset{Symbol: "SOL", Mint: solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112"), Decimals: 9}
	usdcAsset = types.Asset{Symbol: "USDC", Mint: solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"), Decimals: 6}
	ethAsset  = types.Asset{Symbol: "ETH", Mint: solana.NewWallet().PublicKey(), Decimals: 8}
)

func rawDisplay(a types.Asset, display string) decimal.Decimal {
	return a.ToRaw(decimal.RequireFromString(display))
}

// three pools whose display reserves give rates 100, 0.0005, 50: one SOL in
// yields 2.5 SOL back before fees.
func testPools() []types.Pool {
	fee := decimal.RequireFromString("0.003")
	return []types.Pool{
		{
			Name: "SOL/USDC", TokenA: solAsset, TokenB: usdcAsset,
			ReserveA: solana.NewWallet().PublicKey(), ReserveB: solana.NewWallet().PublicKey(),
			BaseFeeRate: fee,
		},
		{
			Name: "ETH/USDC", TokenA: ethAsset, TokenB: usdcAsset,
			ReserveA: solana.NewWallet().PublicKey(), ReserveB: solana.NewWallet().PublicKey(),
			BaseFeeRate: fee,
		},
		{
			Name: "ETH/SOL", TokenA: ethAsset, TokenB: solAsset,
			ReserveA: solana.NewWallet().PublicKey(), ReserveB: solana.NewWallet().PublicKey(),
			BaseFeeRate: fee,
		},
	}
}

type fakeOracle struct {
	balance  decimal.Decimal
	fee      decimal.Decimal
	reserves map[string][2]decimal.Decimal // pool name -> raw A, raw B

	balanceErr error
}

func (f *fakeOracle) FetchReserves(ctx context.Context, pool types.Pool) (decimal.Decimal, decimal.Decimal, error) {
	r, ok := f.reserves[pool.Name]
	if !ok {
		return decimal.Zero, decimal.Zero, types.ErrDataUnavailable
	}
	return r[0], r[1], nil
}

func (f *fakeOracle) WalletBalance(ctx context.Context, owner solana.PublicKey) (decimal.Decimal, error) {
	if f.balanceErr != nil {
		return decimal.Zero, f.balanceErr
	}
	return f.balance, nil
}

func (f *fakeOracle) EstimateNetworkFee(ctx context.Context, payer solana.PublicKey) (decimal.Decimal, error) {
	return f.fee, nil
}

type fakeSelector struct {
	route types.Route
	err   error
}

func (f *fakeSelector) SelectRoute(ctx context.Context, base, quote types.Asset, pools []types.Pool) (types.Route, error) {
	return f.route, f.err
}

type fakeExecutor struct {
	calls  int
	starts []decimal.Decimal
	err    error
}

func (f *fakeExecutor) ExecuteCycle(ctx context.Context, route types.Route, startAmount decimal.Decimal) (execution.CycleResult, error) {
	f.calls++
	f.starts = append(f.starts, startAmount)
	if f.err != nil {
		return execution.CycleResult{}, f.err
	}
	return execution.CycleResult{FinalOutput: startAmount.Mul(decimal.RequireFromString("2"))}, nil
}

type fakeGate struct{ allow bool }

func (f fakeGate) AllowTrade(eval types.CycleEvaluation, balance decimal.Decimal) bool {
	return f.allow
}

func testFixture(t *testing.T, allow bool) (*Bot, *fakeOracle, *fakeExecutor) {
	t.Helper()
	pools := testPools()
	route, err := types.NewRoute("SOL", [3]types.Leg{
		{Pool: pools[0], In: solAsset, Out: usdcAsset},
		{Pool: pools[1], In: usdcAsset, Out: ethAsset},
		{Pool: pools[2], In: ethAsset, Out: solAsset},
	})
	require.NoError(t, err)

	oracle := &fakeOracle{
		balance: decimal.RequireFromString("5000000000"), // 5 SOL in lamports
		fee:     decimal.RequireFromString("0.000005"),
		reserves: map[string][2]decimal.Decimal{
			"SOL/USDC": {rawDisplay(solAsset, "1000"), rawDisplay(usdcAsset, "100000")},
			"ETH/USDC": {rawDisplay(ethAsset, "100"), rawDisplay(usdcAsset, "200000")},
			"ETH/SOL":  {rawDisplay(ethAsset, "100"), rawDisplay(solAsset, "5000")},
		},
	}
	exec := &fakeExecutor{}

	cfg := &config.Config{}
	cfg.Strategy.TradeAmount = 1.0
	cfg.Timings.IterationIntervalMs = 1
	cfg.Timings.ErrorBackoffMs = 1

	reg := &registry.Registry{Base: solAsset, Quote: usdcAsset, Pools: pools}
	b := New(cfg, reg, oracle, &fakeSelector{route: route}, exec, fakeGate{allow: allow},
		nil, dash.NewStore(), solana.NewWallet().PublicKey(), zap.NewNop())
	b.now = func() time.Time { return time.UnixMilli(1700000000000) }
	b.sleep = func(ctx context.Context, d time.Duration) {}
	return b, oracle, exec
}

func TestEvaluate_UsesPoolFeeRatesNotRankingEstimate(t *testing.T) {
	b, _, _ := testFixture(t, true)
	pools := b.reg.Pools
	route, err := types.NewRoute("SOL", [3]types.Leg{
		{Pool: pools[0], In: solAsset, Out: usdcAsset},
		{Pool: pools[1], In: usdcAsset, Out: ethAsset},
		{Pool: pools[2], In: ethAsset, Out: solAsset},
	})
	require.NoError(t, err)

	eval, err := b.evaluate(context.Background(), route, decimal.RequireFromString("0.000005"))
	require.NoError(t, err)

	// Each leg is charged the pool's own rate. The reserve-ratio ranking
	// figure is unbounded (the ETH/SOL raw ratio alone gives 1.5 here) and
	// must never reach the profit chain.
	for i, fee := range eval.Fees {
		assert.True(t, fee.Equal(decimal.RequireFromString("0.003")), "leg %d fee = %s", i+1, fee)
	}

	// rates 100, 0.0005, 50 compound to 2.5x; at 0.3% per leg the cycle
	// stays clearly profitable.
	assert.True(t, eval.NetProfit.Equal(decimal.RequireFromString("1.4775524325")),
		"net = %s", eval.NetProfit)
	assert.True(t, eval.ProfitPct.Equal(decimal.RequireFromString("147.75524325")),
		"pct = %s", eval.ProfitPct)
}

func TestRunOnce_ProfitableCycleExecutes(t *testing.T) {
	b, _, exec := testFixture(t, true)

	executed, err := b.runOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, executed)
	require.Equal(t, 1, exec.calls)
	// 1 SOL start amount submitted in raw lamports
	assert.True(t, exec.starts[0].Equal(decimal.RequireFromString("1000000000")), "got %s", exec.starts[0])
}

func TestRunOnce_GateDeniesTrade(t *testing.T) {
	b, _, exec := testFixture(t, false)

	executed, err := b.runOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, executed)
	assert.Zero(t, exec.calls)
}

func TestRunOnce_DryRunNeverExecutes(t *testing.T) {
	b, _, exec := testFixture(t, true)
	b.cfg.DryRun = true

	executed, err := b.runOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, executed)
	assert.Zero(t, exec.calls)
}

func TestRunOnce_FeeCapSkipsExecution(t *testing.T) {
	b, oracle, exec := testFixture(t, true)
	b.cfg.Strategy.PriorityFeeCapLamports = 1000
	oracle.fee = decimal.RequireFromString("0.00001") // 10000 lamports, above cap

	executed, err := b.runOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, executed)
	assert.Zero(t, exec.calls)
}

func TestRunOnce_NoRouteIsNotAnError(t *testing.T) {
	b, _, exec := testFixture(t, true)
	b.selector = &fakeSelector{err: types.ErrNoRouteFound}

	executed, err := b.runOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, executed)
	assert.Zero(t, exec.calls)
}

func TestRunOnce_BalanceErrorSurfaces(t *testing.T) {
	b, oracle, _ := testFixture(t, true)
	oracle.balanceErr = types.ErrDataUnavailable

	_, err := b.runOnce(context.Background())
	assert.ErrorIs(t, err, types.ErrDataUnavailable)
}

func TestRunOnce_ExecutionFailureSurfaces(t *testing.T) {
	b, _, exec := testFixture(t, true)
	exec.err = types.ErrSubmissionFailed

	executed, err := b.runOnce(context.Background())
	assert.ErrorIs(t, err, types.ErrSubmissionFailed)
	assert.False(t, executed)
}

func TestRun_LoopSurvivesIterationErrors(t *testing.T) {
	b, oracle, _ := testFixture(t, false)
	oracle.balanceErr = errors.New("rpc down")

	var backoffs int
	ctx, cancel := context.WithCancel(context.Background())
	b.sleep = func(ctx context.Context, d time.Duration) {
		backoffs++
		if backoffs >= 3 {
			cancel()
		}
	}

	b.Run(ctx) // returns once cancelled; panics or livelocks fail the test by timeout
	assert.GreaterOrEqual(t, backoffs, 3)
}
