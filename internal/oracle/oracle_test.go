package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/types"
)

type fakeRPC struct {
	balances map[solana.PublicKey]string // token account -> raw amount
	solBal   uint64
	fee      *uint64
	err      error
}

func (f *fakeRPC) GetTokenAccountBalance(_ context.Context, account solana.PublicKey, _ rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	amount, ok := f.balances[account]
	if !ok {
		return &rpc.GetTokenAccountBalanceResult{}, nil
	}
	return &rpc.GetTokenAccountBalanceResult{
		Value: &rpc.UiTokenAmount{Amount: amount},
	}, nil
}

func (f *fakeRPC) GetBalance(_ context.Context, _ solana.PublicKey, _ rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &rpc.GetBalanceResult{Value: f.solBal}, nil
}

func (f *fakeRPC) GetLatestBlockhash(_ context.Context, _ rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: solana.Hash{}},
	}, nil
}

func (f *fakeRPC) GetFeeForMessage(_ context.Context, _ string, _ rpc.CommitmentType) (*rpc.GetFeeForMessageResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &rpc.GetFeeForMessageResult{Value: f.fee}, nil
}

func testPool() types.Pool {
	return types.Pool{
		Name:     "SOL/USDC",
		TokenA:   types.Asset{Symbol: "SOL", Decimals: 9},
		TokenB:   types.Asset{Symbol: "USDC", Decimals: 6},
		ReserveA: solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112"),
		ReserveB: solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"),
	}
}

func TestFetchReserves(t *testing.T) {
	pool := testPool()
	f := &fakeRPC{balances: map[solana.PublicKey]string{
		pool.ReserveA: "1000000",
		pool.ReserveB: "2000000",
	}}
	o := New(f, rpc.CommitmentConfirmed, zap.NewNop())

	a, b, err := o.FetchReserves(context.Background(), pool)
	require.NoError(t, err)
	assert.True(t, a.Equal(decimal.NewFromInt(1000000)), "reserveA = %s", a)
	assert.True(t, b.Equal(decimal.NewFromInt(2000000)), "reserveB = %s", b)
}

func TestFetchReserves_MissingBalance(t *testing.T) {
	pool := testPool()
	f := &fakeRPC{balances: map[solana.PublicKey]string{pool.ReserveA: "1000000"}}
	o := New(f, rpc.CommitmentConfirmed, zap.NewNop())

	_, _, err := o.FetchReserves(context.Background(), pool)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrDataUnavailable)
}

func TestFetchReserves_RPCError(t *testing.T) {
	f := &fakeRPC{err: errors.New("connection refused")}
	o := New(f, rpc.CommitmentConfirmed, zap.NewNop())

	_, _, err := o.FetchReserves(context.Background(), testPool())
	assert.ErrorIs(t, err, types.ErrDataUnavailable)
}

func TestWalletBalance(t *testing.T) {
	f := &fakeRPC{solBal: 2_500_000_000}
	o := New(f, rpc.CommitmentConfirmed, zap.NewNop())

	bal, err := o.WalletBalance(context.Background(), solana.PublicKey{})
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(2_500_000_000)))
}

func TestEstimateNetworkFee(t *testing.T) {
	fee := uint64(7500)
	f := &fakeRPC{fee: &fee}
	o := New(f, rpc.CommitmentConfirmed, zap.NewNop())

	got, err := o.EstimateNetworkFee(context.Background(), solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112"))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("0.0000075")), "fee = %s", got)
}

func TestEstimateNetworkFee_FallsBackToSignatureFee(t *testing.T) {
	f := &fakeRPC{} // node returns no fee value
	o := New(f, rpc.CommitmentConfirmed, zap.NewNop())

	got, err := o.EstimateNetworkFee(context.Background(), solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112"))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("0.000005")), "fee = %s", got)
}
