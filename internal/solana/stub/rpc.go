package stub

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"

	"drop-live/internal/solana"
)

// RPCClient implements solana.RPCClient for testing. Counts balance queries.
type RPCClient struct {
	mu       sync.RWMutex
	balances map[string]*big.Int // keyed by wallet|mint
	err      error

	Slot  int64
	calls atomic.Int64
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		balances: make(map[string]*big.Int),
		Slot:     1,
	}
}

// SetBalance sets the balance returned for (wallet, mint). amount is a decimal string.
func (c *RPCClient) SetBalance(wallet, mint, amount string) {
	v, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		panic("stub: invalid amount " + amount)
	}
	c.mu.Lock()
	c.balances[wallet+"|"+mint] = v
	c.mu.Unlock()
}

// SetError makes every subsequent query fail with err. Nil clears it.
func (c *RPCClient) SetError(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

// Calls returns how many balance queries were made.
func (c *RPCClient) Calls() int64 {
	return c.calls.Load()
}

// GetHolderBalance returns the configured balance, or zero.
func (c *RPCClient) GetHolderBalance(_ context.Context, wallet, mint string) (*big.Int, error) {
	c.calls.Add(1)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.err != nil {
		return nil, c.err
	}
	if v, ok := c.balances[wallet+"|"+mint]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

// GetSlot returns the configured slot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.err != nil {
		return 0, c.err
	}
	return c.Slot, nil
}
