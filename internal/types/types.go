package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Error kinds recoverable at the loop boundary. Wrap with %w, match with errors.Is.
var (
	// ErrDataUnavailable: an oracle/network read failed or timed out.
	ErrDataUnavailable = errors.New("market data unavailable")
	// ErrIllegalPoolState: a pool reported a zero or negative reserve.
	ErrIllegalPoolState = errors.New("illegal pool state")
	// ErrNoRouteFound: no usable 3-pool cycle through the base asset.
	ErrNoRouteFound = errors.New("no route found")
	// ErrSubmissionFailed: a swap leg was rejected or never confirmed. Fatal to
	// the current cycle; already-executed legs stand.
	ErrSubmissionFailed = errors.New("swap submission failed")
)

// Asset is an SPL token resolved once at startup and immutable afterwards.
type Asset struct {
	Symbol   string
	Mint     solana.PublicKey
	Decimals uint8
}

// Scale returns the power-of-ten divisor converting raw amounts to display units.
func (a Asset) Scale() decimal.Decimal {
	return decimal.New(1, int32(a.Decimals))
}

// ToDisplay converts a raw on-chain integer amount to display units.
func (a Asset) ToDisplay(raw decimal.Decimal) decimal.Decimal {
	return raw.Div(a.Scale())
}

// ToRaw converts a display amount to raw on-chain units, truncated to an integer.
func (a Asset) ToRaw(display decimal.Decimal) decimal.Decimal {
	return display.Mul(a.Scale()).Truncate(0)
}

// Pool is a constant-product liquidity pool. TokenA/TokenB order is fixed;
// swap direction is chosen per use. ReserveA/ReserveB are the pool's token
// accounts, read live by the oracle and never cached.
type Pool struct {
	Name       string
	Program    solana.PublicKey
	Address    solana.PublicKey // the swap state account
	Authority  solana.PublicKey
	PoolMint   solana.PublicKey
	FeeAccount solana.PublicKey

	TokenA   Asset
	TokenB   Asset
	ReserveA solana.PublicKey
	ReserveB solana.PublicKey

	// BaseFeeRate is the fixed protocol fee in [0,1), e.g. 0.003.
	BaseFeeRate decimal.Decimal
}

// Has reports whether the pool contains the asset with the given symbol.
func (p Pool) Has(symbol string) bool {
	return p.TokenA.Symbol == symbol || p.TokenB.Symbol == symbol
}

// Pairs reports whether the pool is exactly the {a, b} pair, in either order.
func (p Pool) Pairs(a, b string) bool {
	return (p.TokenA.Symbol == a && p.TokenB.Symbol == b) ||
		(p.TokenA.Symbol == b && p.TokenB.Symbol == a)
}

// Other returns the pool asset that is not the given symbol.
func (p Pool) Other(symbol string) (Asset, bool) {
	switch symbol {
	case p.TokenA.Symbol:
		return p.TokenB, true
	case p.TokenB.Symbol:
		return p.TokenA, true
	}
	return Asset{}, false
}

// Side returns the asset and its reserve account for one side of the pool.
func (p Pool) Side(symbol string) (Asset, solana.PublicKey, bool) {
	switch symbol {
	case p.TokenA.Symbol:
		return p.TokenA, p.ReserveA, true
	case p.TokenB.Symbol:
		return p.TokenB, p.ReserveB, true
	}
	return Asset{}, solana.PublicKey{}, false
}

// Leg is one directed swap through a pool.
type Leg struct {
	Pool Pool
	In   Asset
	Out  Asset
}

// Route is an ordered 3-pool cycle starting and ending at the base asset.
type Route struct {
	Legs [3]Leg
}

// NewRoute validates asset continuity: leg i's output is leg i+1's input and
// the cycle closes on base. A violation is a configuration error.
func NewRoute(base string, legs [3]Leg) (Route, error) {
	if legs[0].In.Symbol != base {
		return Route{}, fmt.Errorf("route must start at %s, got %s", base, legs[0].In.Symbol)
	}
	if legs[2].Out.Symbol != base {
		return Route{}, fmt.Errorf("route must end at %s, got %s", base, legs[2].Out.Symbol)
	}
	for i, leg := range legs {
		if leg.In.Symbol == leg.Out.Symbol {
			return Route{}, fmt.Errorf("leg %d: degenerate swap %s->%s", i+1, leg.In.Symbol, leg.Out.Symbol)
		}
		if !leg.Pool.Has(leg.In.Symbol) || !leg.Pool.Has(leg.Out.Symbol) {
			return Route{}, fmt.Errorf("leg %d: pool %s does not carry %s->%s",
				i+1, leg.Pool.Name, leg.In.Symbol, leg.Out.Symbol)
		}
		if i > 0 && legs[i-1].Out.Symbol != leg.In.Symbol {
			return Route{}, fmt.Errorf("leg %d: expects %s in, previous leg yields %s",
				i+1, leg.In.Symbol, legs[i-1].Out.Symbol)
		}
	}
	return Route{Legs: legs}, nil
}

// Path renders the route as "SOL->USDC->ETH->SOL" for logging.
func (r Route) Path() string {
	return fmt.Sprintf("%s->%s->%s->%s",
		r.Legs[0].In.Symbol, r.Legs[1].In.Symbol, r.Legs[2].In.Symbol, r.Legs[2].Out.Symbol)
}

// PoolNames returns the pool name of each leg in order.
func (r Route) PoolNames() [3]string {
	return [3]string{r.Legs[0].Pool.Name, r.Legs[1].Pool.Name, r.Legs[2].Pool.Name}
}

// Quote is the ephemeral result of evaluating one leg. Created per evaluation,
// discarded after use.
type Quote struct {
	Input         decimal.Decimal
	InputAfterFee decimal.Decimal
	Output        decimal.Decimal
	MinOutput     decimal.Decimal
}

// CycleEvaluation aggregates three leg rates and fees plus a flat network fee
// into a net profit figure. Recomputed every iteration; reserves move between
// pools, so it is never cached.
type CycleEvaluation struct {
	StartAmount decimal.Decimal
	Rates       [3]decimal.Decimal
	Fees        [3]decimal.Decimal
	NetworkFee  decimal.Decimal

	NetProfit decimal.Decimal
	ProfitPct decimal.Decimal
	Ts        time.Time
}
