package domain

import "time"

// User is an identity derived from a wallet address.
// Corresponds to users table in PostgreSQL. Immutable after creation.
type User struct {
	ID        string    // PRIMARY KEY, uuid
	Wallet    string    // base58 wallet address, UNIQUE
	CreatedAt time.Time // first successful authentication
}
