package solana

import (
	"context"
	"math/big"
)

// BalanceReader reads token holdings from the chain.
type BalanceReader interface {
	// GetHolderBalance returns the sum of all token accounts of mint owned by
	// wallet, in the mint's smallest unit. A wallet with no accounts has zero.
	GetHolderBalance(ctx context.Context, wallet, mint string) (*big.Int, error)
}

// SlotReader is used for liveness probing.
type SlotReader interface {
	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (int64, error)
}

// RPCClient defines the Solana RPC HTTP interface used by the service.
type RPCClient interface {
	BalanceReader
	SlotReader
}

// TokenAccount is one parsed SPL token account of a holder.
type TokenAccount struct {
	Pubkey   string
	Mint     string
	Owner    string
	Amount   *big.Int // raw amount in smallest unit
	Decimals int
}
