// Package submit sends individual swaps to an SPL token-swap program. It is
// the engine's submission collaborator: the pool program itself enforces the
// minimum-output floor, so a swap that would realize less than minOut fails
// on-chain instead of filling.
package submit

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/types"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/wallet"
)

// swapInstruction is the token-swap program's Swap discriminator.
const swapInstruction uint8 = 1

const confirmPollInterval = 500 * time.Millisecond

// SubmitRPC is the RPC surface needed to send and confirm one swap.
type SubmitRPC interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
}

type Service struct {
	client         SubmitRPC
	wallet         *wallet.Wallet
	commitment     rpc.CommitmentType
	confirmTimeout time.Duration
	log            *zap.Logger
}

func New(client SubmitRPC, w *wallet.Wallet, commitment rpc.CommitmentType, confirmTimeout time.Duration, log *zap.Logger) *Service {
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	if confirmTimeout == 0 {
		confirmTimeout = time.Minute
	}
	return &Service{
		client:         client,
		wallet:         w,
		commitment:     commitment,
		confirmTimeout: confirmTimeout,
		log:            log,
	}
}

// SubmitSwap builds, signs, and sends one swap through the pool's program,
// then blocks until the transaction confirms or the confirm timeout expires.
// The realized output is measured as the destination account's balance delta.
func (s *Service) SubmitSwap(ctx context.Context, pool types.Pool, input types.Asset, amountIn, minOut decimal.Decimal) (solana.Signature, decimal.Decimal, error) {
	output, ok := pool.Other(input.Symbol)
	if !ok {
		return solana.Signature{}, decimal.Zero, fmt.Errorf("pool %s does not carry %s", pool.Name, input.Symbol)
	}
	_, poolSource, _ := pool.Side(input.Symbol)
	_, poolDest, _ := pool.Side(output.Symbol)

	owner := s.wallet.PublicKey()
	userSource, _, err := solana.FindAssociatedTokenAddress(owner, input.Mint)
	if err != nil {
		return solana.Signature{}, decimal.Zero, fmt.Errorf("derive source token account: %w", err)
	}
	userDest, _, err := solana.FindAssociatedTokenAddress(owner, output.Mint)
	if err != nil {
		return solana.Signature{}, decimal.Zero, fmt.Errorf("derive destination token account: %w", err)
	}

	before := s.tokenBalanceOrZero(ctx, userDest)

	ix := swapIx(pool, owner, userSource, userDest, poolSource, poolDest, amountIn, minOut)

	recent, err := s.client.GetLatestBlockhash(ctx, s.commitment)
	if err != nil {
		return solana.Signature{}, decimal.Zero, fmt.Errorf("latest blockhash: %w", err)
	}
	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		recent.Value.Blockhash,
		solana.TransactionPayer(owner),
	)
	if err != nil {
		return solana.Signature{}, decimal.Zero, fmt.Errorf("build transaction: %w", err)
	}
	if _, err := tx.Sign(s.wallet.Signer); err != nil {
		return solana.Signature{}, decimal.Zero, fmt.Errorf("sign transaction: %w", err)
	}

	sig, err := s.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: s.commitment,
	})
	if err != nil {
		return solana.Signature{}, decimal.Zero, fmt.Errorf("send transaction: %w", err)
	}

	if err := s.awaitConfirmation(ctx, sig); err != nil {
		return sig, decimal.Zero, err
	}

	after := s.tokenBalanceOrZero(ctx, userDest)
	realized := after.Sub(before)
	if realized.Sign() <= 0 {
		// The program enforced the floor or the read raced; report the floor.
		realized = minOut
	}

	s.log.Debug("swap confirmed",
		zap.String("pool", pool.Name),
		zap.String("signature", sig.String()),
		zap.String("realized_out", realized.String()),
	)
	return sig, realized, nil
}

func (s *Service) awaitConfirmation(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()

	tick := time.NewTicker(confirmPollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("confirmation of %s: %w", sig, ctx.Err())
		case <-tick.C:
		}

		res, err := s.client.GetSignatureStatuses(ctx, false, sig)
		if err != nil || len(res.Value) == 0 {
			continue
		}
		st := res.Value[0]
		if st == nil {
			continue
		}
		if st.Err != nil {
			return fmt.Errorf("transaction %s failed on-chain: %v", sig, st.Err)
		}
		switch st.ConfirmationStatus {
		case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
			return nil
		}
	}
}

func (s *Service) tokenBalanceOrZero(ctx context.Context, account solana.PublicKey) decimal.Decimal {
	res, err := s.client.GetTokenAccountBalance(ctx, account, s.commitment)
	if err != nil || res.Value == nil {
		s.log.Debug("token balance unavailable", zap.String("account", account.String()), zap.Error(err))
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(res.Value.Amount)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

func swapIx(pool types.Pool, owner, userSource, userDest, poolSource, poolDest solana.PublicKey, amountIn, minOut decimal.Decimal) solana.Instruction {
	data := make([]byte, 17)
	data[0] = swapInstruction
	binary.LittleEndian.PutUint64(data[1:9], amountIn.BigInt().Uint64())
	binary.LittleEndian.PutUint64(data[9:17], minOut.BigInt().Uint64())

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(pool.Address, false, false),
		solana.NewAccountMeta(pool.Authority, false, false),
		solana.NewAccountMeta(owner, false, true),
		solana.NewAccountMeta(userSource, true, false),
		solana.NewAccountMeta(poolSource, true, false),
		solana.NewAccountMeta(poolDest, true, false),
		solana.NewAccountMeta(userDest, true, false),
		solana.NewAccountMeta(pool.PoolMint, true, false),
		solana.NewAccountMeta(pool.FeeAccount, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}
	return solana.NewInstruction(pool.Program, accounts, data)
}
