package domain

import "time"

// DropStatus is the launch state of a Drop. States only move forward.
type DropStatus string

const (
	DropStatusDraft            DropStatus = "DRAFT"
	DropStatusTokenInfoCreated DropStatus = "TOKEN_INFO_CREATED"
	DropStatusConfigCreated    DropStatus = "CONFIG_CREATED"
	DropStatusLaunched         DropStatus = "LAUNCHED"
)

var dropStatusOrder = []DropStatus{
	DropStatusDraft,
	DropStatusTokenInfoCreated,
	DropStatusConfigCreated,
	DropStatusLaunched,
}

// String returns the string representation of DropStatus.
func (s DropStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a known value.
func (s DropStatus) IsValid() bool {
	return s.Rank() >= 0
}

// Rank returns the position of the status in the forward order, or -1.
func (s DropStatus) Rank() int {
	for i, st := range dropStatusOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the status that directly follows s.
// Returns false for LAUNCHED and unknown statuses.
func (s DropStatus) Next() (DropStatus, bool) {
	r := s.Rank()
	if r < 0 || r == len(dropStatusOrder)-1 {
		return "", false
	}
	return dropStatusOrder[r+1], true
}

// TotalBps is the basis-point total a fee split must add up to.
const TotalBps = 10000

// Drop is a gated-interaction session owned by one User.
// Corresponds to drops table in PostgreSQL.
type Drop struct {
	ID          string // PRIMARY KEY, uuid
	OwnerID     string // FK to users
	Slug        string // UNIQUE across all drops, also the broadcast session key
	Name        string
	Symbol      string
	Description string
	ImageURL    string
	Website     string
	Twitter     string
	Telegram    string

	Status DropStatus

	// Artifacts of the external launch service, populated as status advances.
	AssetID         string // token mint, set at TOKEN_INFO_CREATED
	MetadataURL     string // token metadata location, set at TOKEN_INFO_CREATED
	ConfigKey       string // fee-share config key, set at CONFIG_CREATED
	LaunchSignature string // launch transaction signature, set at LAUNCHED

	CreatorBps         int    // creator share of fees
	PrizePoolBps       int    // prize-pool share of fees, CreatorBps+PrizePoolBps == TotalBps
	ThresholdRaw       string // minimum holding in asset-native units, decimal digits
	InitialBuyLamports string // creator's initial buy, decimal digits

	CreatedAt  time.Time
	UpdatedAt  time.Time
	LaunchedAt *time.Time
}

// IsLaunched reports whether viewers may interact with the drop.
func (d *Drop) IsLaunched() bool {
	return d.Status == DropStatusLaunched && d.AssetID != ""
}
