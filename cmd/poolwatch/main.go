// poolwatch prints live reserves, spot rates, and estimated fees for every
// configured pool. Handy for sanity-checking a config before running the bot.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/amm"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/config"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/oracle"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/registry"
	"github.com/goldstar0417/solana-arbitrage-strategy-bot/internal/types"
)

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config file")
	interval := flag.Duration("interval", 5*time.Second, "refresh interval")
	once := flag.Bool("once", false, "print one snapshot and exit")
	flag.Parse()

	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		<-ch
		fmt.Println("[sys] signal received, exiting")
		cancel()
	}()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	reg, err := registry.Build(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "registry: %v\n", err)
		os.Exit(1)
	}

	client := rpc.New(cfg.RPC.URL)
	chainOracle := oracle.New(client, rpc.CommitmentType(cfg.RPC.Commitment), zap.NewNop())

	for {
		printSnapshot(ctx, chainOracle, reg.Pools)
		if *once {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(*interval):
		}
	}
}

func printSnapshot(ctx context.Context, chainOracle *oracle.Oracle, pools []types.Pool) {
	fmt.Printf("--- %s ---\n", time.Now().Format(time.RFC3339))
	for _, pool := range pools {
		rawA, rawB, err := chainOracle.FetchReserves(ctx, pool)
		if err != nil {
			fmt.Printf("%-12s error: %v\n", pool.Name, err)
			continue
		}
		dispA := pool.TokenA.ToDisplay(rawA)
		dispB := pool.TokenB.ToDisplay(rawB)

		rateAB, err := amm.SpotRate(dispA, dispB)
		if err != nil {
			fmt.Printf("%-12s illegal reserves: %s / %s\n", pool.Name, rawA, rawB)
			continue
		}
		rateBA, _ := amm.SpotRate(dispB, dispA)
		fee, impact, _ := amm.EstimateFee(rawA, rawB, pool.BaseFeeRate)

		fmt.Printf("%-12s %s=%s %s=%s  %s->%s=%s  %s->%s=%s  est_fee=%s impact=%s\n",
			pool.Name,
			pool.TokenA.Symbol, dispA.StringFixed(4),
			pool.TokenB.Symbol, dispB.StringFixed(4),
			pool.TokenA.Symbol, pool.TokenB.Symbol, rateAB.StringFixed(8),
			pool.TokenB.Symbol, pool.TokenA.Symbol, rateBA.StringFixed(8),
			fee.StringFixed(8), impact.StringFixed(6),
		)
	}
}
