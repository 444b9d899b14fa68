// Package wallet loads the signing keypair once at process start. The key is
// immutable for the process lifetime; only the execution path ever signs.
package wallet

import (
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
)

type Wallet struct {
	key solana.PrivateKey
}

// FromEnv reads a base58-encoded secret key from the named environment
// variable. A missing or malformed key is a fatal startup condition.
func FromEnv(envVar string) (*Wallet, error) {
	raw := os.Getenv(envVar)
	if raw == "" {
		return nil, fmt.Errorf("environment variable %s is not set", envVar)
	}
	return FromBase58(raw)
}

func FromBase58(raw string) (*Wallet, error) {
	key, err := solana.PrivateKeyFromBase58(raw)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	return &Wallet{key: key}, nil
}

func (w *Wallet) PublicKey() solana.PublicKey {
	return w.key.PublicKey()
}

// Signer returns the key for the given account when it is ours, nil
// otherwise. Shaped for solana.Transaction.Sign.
func (w *Wallet) Signer(key solana.PublicKey) *solana.PrivateKey {
	if w.key.PublicKey().Equals(key) {
		return &w.key
	}
	return nil
}
