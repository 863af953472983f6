// Package launchpad is the client of the third-party token-launch service.
// Transaction blobs it returns are opaque; they are only length-checked.
package launchpad

import (
	"context"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// MaxTransactionSize is the maximum serialized Solana transaction size.
const MaxTransactionSize = 1232

// ErrInvalidTransaction is returned when a transaction blob fails the sanity check.
var ErrInvalidTransaction = errors.New("invalid transaction blob")

// Client is the narrow interface of the launch service.
type Client interface {
	// CreateTokenInfo mints the asset identity and uploads metadata.
	CreateTokenInfo(ctx context.Context, req TokenInfoRequest) (*TokenInfo, error)

	// CreateFeeShareConfig prepares fee-share setup transactions for the claimers.
	CreateFeeShareConfig(ctx context.Context, payer, assetID string, claimers []FeeClaimer) (*FeeShareConfig, error)

	// CreateLaunchTransaction returns the unsigned launch transaction.
	CreateLaunchTransaction(ctx context.Context, req LaunchRequest) (string, error)

	// GetClaimablePositions lists fee positions claimable by wallet.
	GetClaimablePositions(ctx context.Context, wallet string) ([]ClaimablePosition, error)

	// GetClaimTransactions returns unsigned transactions claiming the fees of one asset.
	GetClaimTransactions(ctx context.Context, req ClaimRequest) ([]string, error)
}

// TokenInfoRequest describes the token to create.
type TokenInfoRequest struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Website     string `json:"website,omitempty"`
	Twitter     string `json:"twitter,omitempty"`
	Telegram    string `json:"telegram,omitempty"`
}

// TokenInfo is the created asset identity.
type TokenInfo struct {
	AssetID     string `json:"tokenMint"`
	MetadataURL string `json:"tokenMetadata"`
}

// FeeClaimer is one fee recipient and its share in basis points.
type FeeClaimer struct {
	Wallet string `json:"wallet"`
	Bps    int    `json:"bps"`
}

// FeeShareConfig is the prepared fee-share configuration.
type FeeShareConfig struct {
	ConfigKey    string   `json:"configKey"`
	Transactions []string `json:"transactions"`
}

// LaunchRequest describes the launch transaction to build.
type LaunchRequest struct {
	MetadataURL        string `json:"ipfs"`
	AssetID            string `json:"tokenMint"`
	Wallet             string `json:"wallet"`
	InitialBuyLamports string `json:"initialBuyLamports"`
	ConfigKey          string `json:"configKey"`
}

// ClaimablePosition is one fee position of a wallet.
type ClaimablePosition struct {
	AssetID           string `json:"baseMint"`
	Pool              string `json:"poolAddress"`
	ClaimableLamports string `json:"totalClaimableLamportsUserShare"`
	IsMigrated        bool   `json:"isMigrated"`
}

// ClaimRequest selects the fees to claim.
type ClaimRequest struct {
	Wallet  string `json:"feeClaimer"`
	AssetID string `json:"tokenMint"`
}

// ValidateTransaction checks that blob is base58 and of plausible size.
func ValidateTransaction(blob string) error {
	raw, err := base58.Decode(blob)
	if err != nil {
		return fmt.Errorf("%w: not base58", ErrInvalidTransaction)
	}
	if len(raw) == 0 || len(raw) > MaxTransactionSize {
		return fmt.Errorf("%w: %d bytes", ErrInvalidTransaction, len(raw))
	}
	return nil
}

// validateTransactions checks every blob in txs.
func validateTransactions(txs []string) error {
	for i, tx := range txs {
		if err := ValidateTransaction(tx); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
	}
	return nil
}
