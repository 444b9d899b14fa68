package router

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/types"
)

var (
	sol  = types.Asset{Symbol: "SOL", Decimals: 9}
	usdc = types.Asset{Symbol: "USDC", Decimals: 6}
	eth  = types.Asset{Symbol: "ETH", Decimals: 8}
	btc  = types.Asset{Symbol: "BTC", Decimals: 6}
)

func pool(name string, a, b types.Asset) types.Pool {
	return types.Pool{
		Name:        name,
		TokenA:      a,
		TokenB:      b,
		BaseFeeRate: decimal.RequireFromString("0.003"),
	}
}

type fakeReserves struct {
	byName map[string][2]string
}

func (f *fakeReserves) FetchReserves(_ context.Context, p types.Pool) (decimal.Decimal, decimal.Decimal, error) {
	r, ok := f.byName[p.Name]
	if !ok {
		return decimal.Zero, decimal.Zero, types.ErrDataUnavailable
	}
	return decimal.RequireFromString(r[0]), decimal.RequireFromString(r[1]), nil
}

func TestSelectRoute(t *testing.T) {
	pools := []types.Pool{
		pool("SOL/USDC", sol, usdc),
		pool("ETH/USDC", eth, usdc),
		pool("ETH/SOL", eth, sol),
	}
	f := &fakeReserves{byName: map[string][2]string{
		"ETH/SOL": {"1000", "2000"},
	}}
	s := New(f, zap.NewNop())

	route, err := s.SelectRoute(context.Background(), sol, usdc, pools)
	require.NoError(t, err)

	assert.Equal(t, "SOL->USDC->ETH->SOL", route.Path())
	assert.Equal(t, [3]string{"SOL/USDC", "ETH/USDC", "ETH/SOL"}, route.PoolNames())

	// Continuity invariant.
	for i := 0; i < 2; i++ {
		assert.Equal(t, route.Legs[i].Out.Symbol, route.Legs[i+1].In.Symbol)
	}
	assert.Equal(t, "SOL", route.Legs[2].Out.Symbol)
}

func TestSelectRoute_PrefersLowestEstimatedFee(t *testing.T) {
	pools := []types.Pool{
		pool("SOL/USDC", sol, usdc),
		pool("ETH/USDC", eth, usdc),
		pool("BTC/USDC", btc, usdc),
		pool("ETH/SOL", eth, sol),
		pool("BTC/SOL", btc, sol),
	}
	// BTC/SOL has the lower reserve ratio, hence the lower estimated fee.
	f := &fakeReserves{byName: map[string][2]string{
		"ETH/SOL": {"1000", "9000"},
		"BTC/SOL": {"1000", "2000"},
	}}
	s := New(f, zap.NewNop())

	route, err := s.SelectRoute(context.Background(), sol, usdc, pools)
	require.NoError(t, err)
	assert.Equal(t, "SOL->USDC->BTC->SOL", route.Path())
}

func TestSelectRoute_EqualFeesKeepInputOrder(t *testing.T) {
	pools := []types.Pool{
		pool("SOL/USDC", sol, usdc),
		pool("ETH/USDC", eth, usdc),
		pool("BTC/USDC", btc, usdc),
		pool("ETH/SOL", eth, sol),
		pool("BTC/SOL", btc, sol),
	}
	f := &fakeReserves{byName: map[string][2]string{
		"ETH/SOL": {"1000", "2000"},
		"BTC/SOL": {"1000", "2000"},
	}}
	s := New(f, zap.NewNop())

	route, err := s.SelectRoute(context.Background(), sol, usdc, pools)
	require.NoError(t, err)
	assert.Equal(t, "SOL->USDC->ETH->SOL", route.Path(), "first-in-input-order candidate wins the tie")
}

func TestSelectRoute_AmbiguousPairingSkipsCandidate(t *testing.T) {
	// ETH pairs with USDC twice, so the ETH candidate is unusable; BTC wins
	// despite its worse fee estimate.
	pools := []types.Pool{
		pool("SOL/USDC", sol, usdc),
		pool("ETH/USDC", eth, usdc),
		pool("ETH/USDC-2", usdc, eth),
		pool("BTC/USDC", btc, usdc),
		pool("ETH/SOL", eth, sol),
		pool("BTC/SOL", btc, sol),
	}
	f := &fakeReserves{byName: map[string][2]string{
		"ETH/SOL": {"1000", "2000"},
		"BTC/SOL": {"1000", "9000"},
	}}
	s := New(f, zap.NewNop())

	route, err := s.SelectRoute(context.Background(), sol, usdc, pools)
	require.NoError(t, err)
	assert.Equal(t, "SOL->USDC->BTC->SOL", route.Path())
}

func TestSelectRoute_NoRoute(t *testing.T) {
	pools := []types.Pool{
		pool("SOL/USDC", sol, usdc),
		pool("ETH/SOL", eth, sol), // no ETH/USDC pairing exists
	}
	f := &fakeReserves{byName: map[string][2]string{
		"ETH/SOL": {"1000", "2000"},
	}}
	s := New(f, zap.NewNop())

	_, err := s.SelectRoute(context.Background(), sol, usdc, pools)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNoRouteFound)
}

func TestSelectRoute_MissingDirectPool(t *testing.T) {
	pools := []types.Pool{
		pool("ETH/USDC", eth, usdc),
		pool("ETH/SOL", eth, sol),
	}
	s := New(&fakeReserves{}, zap.NewNop())

	_, err := s.SelectRoute(context.Background(), sol, usdc, pools)
	assert.ErrorIs(t, err, types.ErrNoRouteFound)
}

func TestSelectRoute_OracleFailureAbortsSelection(t *testing.T) {
	pools := []types.Pool{
		pool("SOL/USDC", sol, usdc),
		pool("ETH/USDC", eth, usdc),
		pool("ETH/SOL", eth, sol),
	}
	s := New(&fakeReserves{}, zap.NewNop()) // every fetch fails

	_, err := s.SelectRoute(context.Background(), sol, usdc, pools)
	assert.ErrorIs(t, err, types.ErrDataUnavailable)
}
