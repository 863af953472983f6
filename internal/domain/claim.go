package domain

import "time"

// Claim records that fee-claim transactions were submitted for a Drop.
// Informational only; on-chain state is the source of truth.
type Claim struct {
	ID         string // PRIMARY KEY, uuid
	DropID     string // FK to drops
	Wallet     string // claiming wallet
	Signatures []string
	CreatedAt  time.Time
}
