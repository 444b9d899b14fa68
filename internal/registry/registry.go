// Package registry resolves the configured pool set into typed, validated
// descriptors once at startup. Route selection then operates over these
// references instead of string keys.
package registry

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/config"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/types"
)

// Registry is the closed pool mapping for one run. Immutable after Build.
type Registry struct {
	Base  types.Asset
	Quote types.Asset
	Pools []types.Pool
}

// Build parses and cross-checks every configured pool. Any inconsistency is a
// startup failure, never a runtime one.
func Build(cfg *config.Config) (*Registry, error) {
	if len(cfg.Pools) < 3 {
		return nil, fmt.Errorf("need at least 3 pools for a triangular cycle, got %d", len(cfg.Pools))
	}

	assets := make(map[string]types.Asset)
	pools := make([]types.Pool, 0, len(cfg.Pools))
	seen := make(map[string]bool)

	for _, pc := range cfg.Pools {
		pool, err := buildPool(pc)
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", pc.Name, err)
		}
		for _, a := range []types.Asset{pool.TokenA, pool.TokenB} {
			if prev, ok := assets[a.Symbol]; ok {
				if !prev.Mint.Equals(a.Mint) || prev.Decimals != a.Decimals {
					return nil, fmt.Errorf("pool %s: asset %s conflicts with an earlier definition", pc.Name, a.Symbol)
				}
			} else {
				assets[a.Symbol] = a
			}
		}
		// Duplicate pairs are allowed (distinct venues over the same assets);
		// route selection treats an ambiguous pairing as unusable.
		if seen[pool.Name] {
			return nil, fmt.Errorf("pool %s: duplicate name", pc.Name)
		}
		seen[pool.Name] = true
		pools = append(pools, pool)
	}

	base, ok := assets[cfg.Strategy.BaseAsset]
	if !ok {
		return nil, fmt.Errorf("base asset %s appears in no pool", cfg.Strategy.BaseAsset)
	}
	quote, ok := assets[cfg.Strategy.QuoteAsset]
	if !ok {
		return nil, fmt.Errorf("quote asset %s appears in no pool", cfg.Strategy.QuoteAsset)
	}
	if base.Symbol == quote.Symbol {
		return nil, fmt.Errorf("base and quote asset must differ, both are %s", base.Symbol)
	}

	return &Registry{Base: base, Quote: quote, Pools: pools}, nil
}

func buildPool(pc config.PoolConfig) (types.Pool, error) {
	if pc.Name == "" {
		return types.Pool{}, fmt.Errorf("name is required")
	}
	if pc.TokenA.Symbol == "" || pc.TokenB.Symbol == "" {
		return types.Pool{}, fmt.Errorf("both token symbols are required")
	}
	if pc.TokenA.Symbol == pc.TokenB.Symbol {
		return types.Pool{}, fmt.Errorf("pool sides must be distinct assets, both are %s", pc.TokenA.Symbol)
	}
	if pc.BaseFeeRate < 0 || pc.BaseFeeRate >= 1 {
		return types.Pool{}, fmt.Errorf("base fee rate %v outside [0,1)", pc.BaseFeeRate)
	}

	tokenA, reserveA, err := buildSide(pc.TokenA)
	if err != nil {
		return types.Pool{}, fmt.Errorf("token_a: %w", err)
	}
	tokenB, reserveB, err := buildSide(pc.TokenB)
	if err != nil {
		return types.Pool{}, fmt.Errorf("token_b: %w", err)
	}

	pool := types.Pool{
		Name:        pc.Name,
		TokenA:      tokenA,
		TokenB:      tokenB,
		ReserveA:    reserveA,
		ReserveB:    reserveB,
		BaseFeeRate: decimal.NewFromFloat(pc.BaseFeeRate),
	}

	for _, f := range []struct {
		name string
		val  string
		dst  *solana.PublicKey
	}{
		{"program", pc.Program, &pool.Program},
		{"address", pc.Address, &pool.Address},
		{"authority", pc.Authority, &pool.Authority},
		{"pool_mint", pc.PoolMint, &pool.PoolMint},
		{"fee_account", pc.FeeAccount, &pool.FeeAccount},
	} {
		if f.val == "" {
			continue // only needed for live submission; poolwatch and dry runs go without
		}
		pk, err := solana.PublicKeyFromBase58(f.val)
		if err != nil {
			return types.Pool{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = pk
	}

	return pool, nil
}

func buildSide(sc config.PoolSideConfig) (types.Asset, solana.PublicKey, error) {
	asset := types.Asset{Symbol: sc.Symbol, Decimals: sc.Decimals}
	if sc.Mint != "" {
		mint, err := solana.PublicKeyFromBase58(sc.Mint)
		if err != nil {
			return types.Asset{}, solana.PublicKey{}, fmt.Errorf("mint: %w", err)
		}
		asset.Mint = mint
	}
	if sc.Reserve == "" {
		return types.Asset{}, solana.PublicKey{}, fmt.Errorf("reserve account is required")
	}
	reserve, err := solana.PublicKeyFromBase58(sc.Reserve)
	if err != nil {
		return types.Asset{}, solana.PublicKey{}, fmt.Errorf("reserve: %w", err)
	}
	return asset, reserve, nil
}
