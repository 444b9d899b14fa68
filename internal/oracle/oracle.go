// Package oracle reads live market data over Solana RPC: pool reserves, the
// wallet balance, and a network fee estimate. Nothing is cached; every call
// re-queries chain state so each evaluation pass sees fresh reserves.
package oracle

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	imetrics "github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/metrics"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/types"
)

// Fallback when the node cannot price a draft message: the flat
// lamports-per-signature fee of a single-signature transaction.
const defaultSignatureFeeLamports = 5000

var lamportsPerSOL = decimal.New(1, 9)

// ChainRPC is the slice of the Solana RPC surface the oracle needs.
// *rpc.Client satisfies it; tests substitute a fake.
type ChainRPC interface {
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetFeeForMessage(ctx context.Context, message string, commitment rpc.CommitmentType) (*rpc.GetFeeForMessageResult, error)
}

type Oracle struct {
	client     ChainRPC
	commitment rpc.CommitmentType
	log        *zap.Logger
}

func New(client ChainRPC, commitment rpc.CommitmentType, log *zap.Logger) *Oracle {
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	return &Oracle{client: client, commitment: commitment, log: log}
}

// FetchReserves returns the raw integer token balances of both pool sides.
// The two reads are issued concurrently; the staleness window between them is
// an accepted, bounded race since both land within one evaluation pass.
func (o *Oracle) FetchReserves(ctx context.Context, pool types.Pool) (reserveA, reserveB decimal.Decimal, err error) {
	start := time.Now()
	defer func() { imetrics.OracleLatency.Observe(time.Since(start).Seconds()) }()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reserveA, err = o.tokenBalance(ctx, pool.ReserveA)
		return err
	})
	g.Go(func() error {
		var err error
		reserveB, err = o.tokenBalance(ctx, pool.ReserveB)
		return err
	})
	if err := g.Wait(); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("pool %s: %w", pool.Name, err)
	}
	return reserveA, reserveB, nil
}

// WalletBalance returns the owner's balance in raw lamports. Callers must
// re-read it every iteration rather than assume a stale figure.
func (o *Oracle) WalletBalance(ctx context.Context, owner solana.PublicKey) (decimal.Decimal, error) {
	res, err := o.client.GetBalance(ctx, owner, o.commitment)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: balance of %s: %v", types.ErrDataUnavailable, owner, err)
	}
	return decimal.NewFromUint64(res.Value), nil
}

// EstimateNetworkFee prices a draft single-signature transaction and returns
// the fee in SOL. When the node declines to price the draft the flat
// per-signature fee is assumed instead.
func (o *Oracle) EstimateNetworkFee(ctx context.Context, payer solana.PublicKey) (decimal.Decimal, error) {
	recent, err := o.client.GetLatestBlockhash(ctx, o.commitment)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: latest blockhash: %v", types.ErrDataUnavailable, err)
	}
	if recent.Value == nil {
		return decimal.Zero, fmt.Errorf("%w: empty blockhash response", types.ErrDataUnavailable)
	}

	draft, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1, payer, payer).Build(),
		},
		recent.Value.Blockhash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build fee draft: %w", err)
	}
	msg, err := draft.Message.MarshalBinary()
	if err != nil {
		return decimal.Zero, fmt.Errorf("encode fee draft: %w", err)
	}

	res, err := o.client.GetFeeForMessage(ctx, base64.StdEncoding.EncodeToString(msg), o.commitment)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: fee for message: %v", types.ErrDataUnavailable, err)
	}

	lamports := uint64(defaultSignatureFeeLamports)
	if res.Value != nil {
		lamports = *res.Value
	} else {
		o.log.Debug("node returned no fee for draft, assuming signature fee",
			zap.Uint64("lamports", lamports))
	}
	return decimal.NewFromUint64(lamports).Div(lamportsPerSOL), nil
}

func (o *Oracle) tokenBalance(ctx context.Context, account solana.PublicKey) (decimal.Decimal, error) {
	res, err := o.client.GetTokenAccountBalance(ctx, account, o.commitment)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: token balance of %s: %v", types.ErrDataUnavailable, account, err)
	}
	if res.Value == nil {
		return decimal.Zero, fmt.Errorf("%w: no balance for %s", types.ErrDataUnavailable, account)
	}
	amount, err := decimal.NewFromString(res.Value.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed balance %q for %s: %v",
			types.ErrDataUnavailable, res.Value.Amount, account, err)
	}
	return amount, nil
}
