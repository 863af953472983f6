package launch

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"drop-live/internal/apperr"
	"drop-live/internal/domain"
	"drop-live/internal/launchpad"
	"drop-live/internal/solana"
)

// maxClaimSignatures bounds one RecordClaim call.
const maxClaimSignatures = 16

// loadLaunched returns the owned drop if it is LAUNCHED.
func (s *Service) loadLaunched(ctx context.Context, ownerID, dropID string) (*domain.Drop, error) {
	d, err := s.loadOwned(ctx, ownerID, dropID)
	if err != nil {
		return nil, err
	}
	if !d.IsLaunched() {
		return nil, apperr.ErrDropNotLaunched
	}
	return d, nil
}

func validateWallet(wallet string) error {
	if _, err := solana.DecodeAddress(wallet); err != nil {
		return apperr.InvalidField("wallet", "must be a base58 address")
	}
	return nil
}

// ClaimablePositions lists the fee positions of wallet for the drop's asset.
func (s *Service) ClaimablePositions(ctx context.Context, ownerID, dropID, wallet string) ([]launchpad.ClaimablePosition, error) {
	if err := validateWallet(wallet); err != nil {
		return nil, err
	}
	d, err := s.loadLaunched(ctx, ownerID, dropID)
	if err != nil {
		return nil, err
	}

	uctx, cancel := s.upstreamContext(ctx)
	positions, err := s.launchpad.GetClaimablePositions(uctx, wallet)
	cancel()
	if err != nil {
		return nil, apperr.Upstream("get claimable positions", err)
	}

	result := make([]launchpad.ClaimablePosition, 0, len(positions))
	for _, p := range positions {
		if p.AssetID == d.AssetID {
			result = append(result, p)
		}
	}
	return result, nil
}

// PrepareClaim returns unsigned transactions claiming the drop's fees for wallet.
func (s *Service) PrepareClaim(ctx context.Context, ownerID, dropID, wallet string) ([]string, error) {
	if err := validateWallet(wallet); err != nil {
		return nil, err
	}
	d, err := s.loadLaunched(ctx, ownerID, dropID)
	if err != nil {
		return nil, err
	}

	uctx, cancel := s.upstreamContext(ctx)
	txs, err := s.launchpad.GetClaimTransactions(uctx, launchpad.ClaimRequest{Wallet: wallet, AssetID: d.AssetID})
	cancel()
	if err != nil {
		return nil, apperr.Upstream("get claim transactions", err)
	}
	return txs, nil
}

// RecordClaim stores the signatures of submitted claim transactions.
func (s *Service) RecordClaim(ctx context.Context, ownerID, dropID, wallet string, signatures []string) (*domain.Claim, error) {
	if err := validateWallet(wallet); err != nil {
		return nil, err
	}
	if len(signatures) == 0 || len(signatures) > maxClaimSignatures {
		return nil, apperr.InvalidField("signatures", "must contain 1-16 signatures")
	}
	clean := make([]string, len(signatures))
	for i, sig := range signatures {
		sig = strings.TrimSpace(sig)
		if _, err := solana.DecodeSignature(sig); err != nil {
			return nil, apperr.InvalidField("signatures", "must be base58 64-byte signatures")
		}
		clean[i] = sig
	}

	d, err := s.loadLaunched(ctx, ownerID, dropID)
	if err != nil {
		return nil, err
	}

	c := &domain.Claim{
		ID:         uuid.NewString(),
		DropID:     d.ID,
		Wallet:     wallet,
		Signatures: clean,
		CreatedAt:  s.now(),
	}
	if err := s.claims.Insert(ctx, c); err != nil {
		return nil, apperr.Internal("record claim", err)
	}
	s.logger.Info().Str("drop_id", d.ID).Str("wallet", wallet).Int("signatures", len(clean)).Msg("claim recorded")
	return c, nil
}

// ListClaims returns the recorded claims of a drop, newest first.
func (s *Service) ListClaims(ctx context.Context, ownerID, dropID string) ([]*domain.Claim, error) {
	d, err := s.loadOwned(ctx, ownerID, dropID)
	if err != nil {
		return nil, err
	}
	claims, err := s.claims.ListByDrop(ctx, d.ID)
	if err != nil {
		return nil, apperr.Internal("list claims", err)
	}
	return claims, nil
}
