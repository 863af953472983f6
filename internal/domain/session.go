package domain

import "time"

// Session is a minted login credential.
// Corresponds to sessions table in PostgreSQL. Only the credential hash is stored.
type Session struct {
	TokenHash  string    // PRIMARY KEY, hex(blake3(credential))
	UserID     string    // FK to users
	Wallet     string    // owning wallet, denormalized for identity lookups
	CreatedAt  time.Time // mint time
	ExpiresAt  time.Time // hard expiry
	LastSeenAt time.Time // throttled activity timestamp
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Nonce is the single live sign-in challenge of a wallet.
// Never persisted to durable storage.
type Nonce struct {
	Wallet   string    `json:"wallet"`
	Message  string    `json:"message"`  // exact challenge text the wallet must sign
	IssuedAt time.Time `json:"issuedAt"` // issuance time, TTL is measured from here
}
