// Package feed publishes cycle evaluations and executed trades to Redis so
// external dashboards and backtest collectors can tail them. The bot treats
// the feed as fire-and-forget: a Redis outage never stops the loop.
package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/config"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/types"
)

type Publisher struct {
	rdb       *redis.Client
	stream    string
	latestKey string
	log       *zap.Logger
}

// NewPublisher returns nil when the feed is disabled; all methods are
// nil-receiver safe, so callers publish unconditionally.
func NewPublisher(cfg *config.Config, log *zap.Logger) *Publisher {
	if !cfg.Redis.Enabled {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
	})
	return &Publisher{
		rdb:       rdb,
		stream:    cfg.Redis.Stream,
		latestKey: cfg.Redis.LatestKey,
		log:       log,
	}
}

// Evaluation is the flattened stream record for one evaluated cycle.
type Evaluation struct {
	Path       string    `json:"path"`
	StartAmt   string    `json:"start_amount"`
	NetProfit  string    `json:"net_profit"`
	ProfitPct  string    `json:"profit_pct"`
	NetworkFee string    `json:"network_fee"`
	Executed   bool      `json:"executed"`
	Ts         time.Time `json:"ts"`
}

func (p *Publisher) PublishEvaluation(ctx context.Context, path string, eval types.CycleEvaluation, executed bool) {
	if p == nil {
		return
	}
	rec := Evaluation{
		Path:       path,
		StartAmt:   eval.StartAmount.String(),
		NetProfit:  eval.NetProfit.String(),
		ProfitPct:  eval.ProfitPct.String(),
		NetworkFee: eval.NetworkFee.String(),
		Executed:   executed,
		Ts:         eval.Ts,
	}

	if err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"path":        rec.Path,
			"start":       rec.StartAmt,
			"net_profit":  rec.NetProfit,
			"profit_pct":  rec.ProfitPct,
			"network_fee": rec.NetworkFee,
			"executed":    rec.Executed,
			"ts_ms":       rec.Ts.UnixMilli(),
		},
	}).Err(); err != nil {
		p.log.Warn("feed: stream append failed", zap.Error(err))
		return
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := p.rdb.Set(ctx, p.latestKey, b, 0).Err(); err != nil {
		p.log.Warn("feed: latest snapshot write failed", zap.Error(err))
	}
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.rdb.Close()
}
