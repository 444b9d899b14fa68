package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RPCConfig struct {
	URL        string `yaml:"url"`
	Commitment string `yaml:"commitment"`
}

type WalletConfig struct {
	// PrivateKeyEnv names the environment variable holding the base58 secret
	// key. The key itself never lives in the config file.
	PrivateKeyEnv string `yaml:"private_key_env"`
}

type StrategyConfig struct {
	BaseAsset  string `yaml:"base_asset"`
	QuoteAsset string `yaml:"quote_asset"`

	// ProfitThresholdPct gates execution: the estimated cycle profit must
	// exceed this percentage of the start amount.
	ProfitThresholdPct float64 `yaml:"profit_threshold_pct"`
	// TradeAmount is the base-asset amount (display units) each cycle starts with.
	TradeAmount float64 `yaml:"trade_amount"`
	// MinTradeAmount is the wallet balance floor (display units) below which
	// no cycle is executed. Defaults to TradeAmount.
	MinTradeAmount    float64 `yaml:"min_trade_amount"`
	SlippageTolerance float64 `yaml:"slippage_tolerance"`
	// PriorityFeeCapLamports aborts execution when the estimated network fee
	// exceeds it. Zero means no cap.
	PriorityFeeCapLamports uint64 `yaml:"priority_fee_cap_lamports"`
}

type TimingsConfig struct {
	IterationIntervalMs int `yaml:"iteration_interval_ms"`
	ErrorBackoffMs      int `yaml:"error_backoff_ms"`
	ConfirmTimeoutMs    int `yaml:"confirm_timeout_ms"`
}

type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type DashConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type RedisConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	DB        int    `yaml:"db"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Stream    string `yaml:"stream"`
	LatestKey string `yaml:"latest_key"`
}

type PoolSideConfig struct {
	Symbol   string `yaml:"symbol"`
	Mint     string `yaml:"mint"`
	Decimals uint8  `yaml:"decimals"`
	// Reserve is the pool's token account for this side; the oracle reads its
	// balance as the live reserve.
	Reserve string `yaml:"reserve"`
}

type PoolConfig struct {
	Name       string         `yaml:"name"`
	Program    string         `yaml:"program"`
	Address    string         `yaml:"address"`
	Authority  string         `yaml:"authority"`
	PoolMint   string         `yaml:"pool_mint"`
	FeeAccount string         `yaml:"fee_account"`
	TokenA     PoolSideConfig `yaml:"token_a"`
	TokenB     PoolSideConfig `yaml:"token_b"`
	// BaseFeeRate defaults to 0.003 when omitted.
	BaseFeeRate float64 `yaml:"base_fee_rate"`
}

type Config struct {
	DryRun   bool           `yaml:"dry_run"`
	RPC      RPCConfig      `yaml:"rpc"`
	Wallet   WalletConfig   `yaml:"wallet"`
	Strategy StrategyConfig `yaml:"strategy"`
	Timings  TimingsConfig  `yaml:"timings"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Dash     DashConfig     `yaml:"dash"`
	Redis    RedisConfig    `yaml:"redis"`
	Pools    []PoolConfig   `yaml:"pools"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.RPC.URL == "" {
		return nil, fmt.Errorf("rpc.url is required")
	}
	if c.RPC.Commitment == "" {
		c.RPC.Commitment = "confirmed"
	}
	if c.Wallet.PrivateKeyEnv == "" {
		c.Wallet.PrivateKeyEnv = "SOLANA_PRIVATE_KEY"
	}
	if c.Strategy.BaseAsset == "" {
		c.Strategy.BaseAsset = "SOL"
	}
	if c.Strategy.QuoteAsset == "" {
		c.Strategy.QuoteAsset = "USDC"
	}
	// Network fees are paid and accounted in SOL; profit math subtracts them
	// from the base-asset amount without conversion.
	if c.Strategy.BaseAsset != "SOL" {
		return nil, fmt.Errorf("strategy.base_asset must be SOL, got %q", c.Strategy.BaseAsset)
	}
	if c.Strategy.ProfitThresholdPct == 0 {
		c.Strategy.ProfitThresholdPct = 0.02
	}
	if c.Strategy.TradeAmount == 0 {
		c.Strategy.TradeAmount = 1.0
	}
	if c.Strategy.MinTradeAmount == 0 {
		c.Strategy.MinTradeAmount = c.Strategy.TradeAmount
	}
	if c.Strategy.TradeAmount < c.Strategy.MinTradeAmount {
		return nil, fmt.Errorf("strategy.trade_amount %v is below strategy.min_trade_amount %v",
			c.Strategy.TradeAmount, c.Strategy.MinTradeAmount)
	}
	if c.Strategy.SlippageTolerance == 0 {
		c.Strategy.SlippageTolerance = 0.01
	}
	if c.Timings.IterationIntervalMs == 0 {
		c.Timings.IterationIntervalMs = 500
	}
	if c.Timings.ErrorBackoffMs == 0 {
		c.Timings.ErrorBackoffMs = 5000
	}
	if c.Timings.ConfirmTimeoutMs == 0 {
		c.Timings.ConfirmTimeoutMs = 60000
	}
	if c.Redis.Stream == "" {
		c.Redis.Stream = "arb:evaluations"
	}
	if c.Redis.LatestKey == "" {
		c.Redis.LatestKey = "arb:latest"
	}
	for i := range c.Pools {
		if c.Pools[i].BaseFeeRate == 0 {
			c.Pools[i].BaseFeeRate = 0.003
		}
	}
	return &c, nil
}

func (c *Config) IterationInterval() time.Duration {
	return time.Duration(c.Timings.IterationIntervalMs) * time.Millisecond
}

func (c *Config) ErrorBackoff() time.Duration {
	return time.Duration(c.Timings.ErrorBackoffMs) * time.Millisecond
}

func (c *Config) ConfirmTimeout() time.Duration {
	return time.Duration(c.Timings.ConfirmTimeoutMs) * time.Millisecond
}
