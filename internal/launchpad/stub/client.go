package stub

import (
	"context"
	"sync"

	"github.com/mr-tron/base58"

	"drop-live/internal/launchpad"
)

// Operation names used for error injection and call counts.
const (
	OpCreateTokenInfo         = "CreateTokenInfo"
	OpCreateFeeShareConfig    = "CreateFeeShareConfig"
	OpCreateLaunchTransaction = "CreateLaunchTransaction"
	OpGetClaimablePositions   = "GetClaimablePositions"
	OpGetClaimTransactions    = "GetClaimTransactions"
)

// TxBlob is a syntactically valid unsigned transaction placeholder.
var TxBlob = base58.Encode([]byte("unsigned-transaction"))

// Client implements launchpad.Client with scripted responses.
type Client struct {
	mu sync.Mutex

	TokenInfo    launchpad.TokenInfo
	ConfigKey    string
	Positions    []launchpad.ClaimablePosition
	ClaimTxCount int

	errs  map[string]error
	calls map[string]int

	LastFeeClaimers []launchpad.FeeClaimer
	LastLaunch      launchpad.LaunchRequest
}

// Compile-time interface check.
var _ launchpad.Client = (*Client)(nil)

// NewClient creates a stub with deterministic defaults.
func NewClient() *Client {
	return &Client{
		TokenInfo: launchpad.TokenInfo{
			AssetID:     "So11111111111111111111111111111111111111112",
			MetadataURL: "https://ipfs.example/metadata.json",
		},
		ConfigKey:    "CfgKey1111111111111111111111111111111111111",
		ClaimTxCount: 1,
		errs:         make(map[string]error),
		calls:        make(map[string]int),
	}
}

// FailWith makes op return err until cleared with a nil err.
func (c *Client) FailWith(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.errs, op)
		return
	}
	c.errs[op] = err
}

// Calls returns how many times op was invoked.
func (c *Client) Calls(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

func (c *Client) enter(op string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[op]++
	return c.errs[op]
}

// CreateTokenInfo returns the scripted token info.
func (c *Client) CreateTokenInfo(ctx context.Context, _ launchpad.TokenInfoRequest) (*launchpad.TokenInfo, error) {
	if err := c.enter(OpCreateTokenInfo); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info := c.TokenInfo
	return &info, nil
}

// CreateFeeShareConfig records the claimers and returns the scripted config key.
func (c *Client) CreateFeeShareConfig(_ context.Context, _, _ string, claimers []launchpad.FeeClaimer) (*launchpad.FeeShareConfig, error) {
	if err := c.enter(OpCreateFeeShareConfig); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.LastFeeClaimers = append([]launchpad.FeeClaimer(nil), claimers...)
	c.mu.Unlock()
	return &launchpad.FeeShareConfig{ConfigKey: c.ConfigKey, Transactions: []string{TxBlob}}, nil
}

// CreateLaunchTransaction records the request and returns TxBlob.
func (c *Client) CreateLaunchTransaction(_ context.Context, req launchpad.LaunchRequest) (string, error) {
	if err := c.enter(OpCreateLaunchTransaction); err != nil {
		return "", err
	}
	c.mu.Lock()
	c.LastLaunch = req
	c.mu.Unlock()
	return TxBlob, nil
}

// GetClaimablePositions returns the scripted positions.
func (c *Client) GetClaimablePositions(_ context.Context, _ string) ([]launchpad.ClaimablePosition, error) {
	if err := c.enter(OpGetClaimablePositions); err != nil {
		return nil, err
	}
	return append([]launchpad.ClaimablePosition(nil), c.Positions...), nil
}

// GetClaimTransactions returns ClaimTxCount copies of TxBlob.
func (c *Client) GetClaimTransactions(_ context.Context, _ launchpad.ClaimRequest) ([]string, error) {
	if err := c.enter(OpGetClaimTransactions); err != nil {
		return nil, err
	}
	txs := make([]string, c.ClaimTxCount)
	for i := range txs {
		txs[i] = TxBlob
	}
	return txs, nil
}
