package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/bot"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/config"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/dash"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/execution"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/feed"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/metrics"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/oracle"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/registry"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/risk"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/router"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/submit"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/wallet"
)

func newLogger() (*zap.Logger, error) {
	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zap.DebugLevel),
		Development: false,
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.RFC3339TimeEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}

func slippage(cfg *config.Config) decimal.Decimal {
	return decimal.NewFromFloat(cfg.Strategy.SlippageTolerance)
}

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config file")
	flag.Parse()

	// .env is optional; the key env var may come from the shell directly.
	_ = godotenv.Load()

	logger, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Warn("received signal, shutting down")
		cancel()
	}()

	w, err := wallet.FromEnv(cfg.Wallet.PrivateKeyEnv)
	if err != nil {
		logger.Fatal("wallet init failed", zap.Error(err))
	}

	reg, err := registry.Build(cfg)
	if err != nil {
		logger.Fatal("pool registry build failed", zap.Error(err))
	}

	client := rpc.New(cfg.RPC.URL)
	commitment := rpc.CommitmentType(cfg.RPC.Commitment)

	// Fail fast on an unreachable node before entering the loop.
	probeCtx, probeCancel := context.WithTimeout(ctx, 10*time.Second)
	height, err := client.GetBlockHeight(probeCtx, commitment)
	probeCancel()
	if err != nil {
		logger.Fatal("rpc connectivity check failed", zap.String("url", cfg.RPC.URL), zap.Error(err))
	}
	logger.Info("connected to rpc node",
		zap.String("url", cfg.RPC.URL),
		zap.Uint64("block_height", height),
		zap.String("wallet", w.PublicKey().String()),
	)

	metrics.Serve(ctx, cfg.Metrics.ListenAddr, nil, logger)

	board := dash.NewStore()
	if cfg.Dash.ListenAddr != "" {
		go dash.StartHTTP(ctx, board, cfg.Dash.ListenAddr, logger)
	}

	pub := feed.NewPublisher(cfg, logger)
	defer pub.Close()

	chainOracle := oracle.New(client, commitment, logger)
	selector := router.New(chainOracle, logger)
	submitter := submit.New(client, w, commitment, cfg.ConfirmTimeout(), logger)
	sequencer := execution.New(chainOracle, submitter, slippage(cfg), logger)
	gate := risk.NewEngine(cfg)

	if cfg.DryRun {
		logger.Warn("dry run: profitable cycles will be logged, not executed")
	}

	engine := bot.New(cfg, reg, chainOracle, selector, sequencer, gate, pub, board, w.PublicKey(), logger)
	engine.Run(ctx)
}
