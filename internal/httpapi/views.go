package httpapi

import (
	"time"

	"drop-live/internal/domain"
	"drop-live/internal/events"
	"drop-live/internal/ledger"
)

// DropView is the creator's view of a drop.
type DropView struct {
	ID                 string     `json:"id"`
	Slug               string     `json:"slug"`
	Name               string     `json:"name"`
	Symbol             string     `json:"symbol"`
	Description        string     `json:"description"`
	ImageURL           string     `json:"imageUrl,omitempty"`
	Website            string     `json:"website,omitempty"`
	Twitter            string     `json:"twitter,omitempty"`
	Telegram           string     `json:"telegram,omitempty"`
	Status             string     `json:"status"`
	AssetID            string     `json:"assetId,omitempty"`
	MetadataURL        string     `json:"metadataUrl,omitempty"`
	ConfigKey          string     `json:"configKey,omitempty"`
	LaunchSignature    string     `json:"launchSignature,omitempty"`
	CreatorBps         int        `json:"creatorBps"`
	PrizePoolBps       int        `json:"prizePoolBps"`
	ThresholdRaw       string     `json:"thresholdRaw"`
	ThresholdUI        string     `json:"thresholdUi"`
	InitialBuyLamports string     `json:"initialBuyLamports"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
	LaunchedAt         *time.Time `json:"launchedAt,omitempty"`
}

// PublicDropView is what viewers see of a drop.
type PublicDropView struct {
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Description  string `json:"description"`
	ImageURL     string `json:"imageUrl,omitempty"`
	Website      string `json:"website,omitempty"`
	Twitter      string `json:"twitter,omitempty"`
	Telegram     string `json:"telegram,omitempty"`
	Status       string `json:"status"`
	AssetID      string `json:"assetId,omitempty"`
	ThresholdRaw string `json:"thresholdRaw"`
	ThresholdUI  string `json:"thresholdUi"`
}

// PollView is the wire shape of a poll.
type PollView struct {
	ID        string     `json:"id"`
	Question  string     `json:"question"`
	Options   []string   `json:"options"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"createdAt"`
	ClosedAt  *time.Time `json:"closedAt,omitempty"`
}

// SnapshotView is the full live state of a drop.
type SnapshotView struct {
	Drop       PublicDropView   `json:"drop"`
	Poll       *PollView        `json:"poll"`
	VoteCounts []int            `json:"voteCounts"`
	Messages   []events.Message `json:"messages"`
}

// ClaimView is a recorded fee claim.
type ClaimView struct {
	ID         string    `json:"id"`
	Wallet     string    `json:"wallet"`
	Signatures []string  `json:"signatures"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (s *Server) dropView(d *domain.Drop) DropView {
	return DropView{
		ID:                 d.ID,
		Slug:               d.Slug,
		Name:               d.Name,
		Symbol:             d.Symbol,
		Description:        d.Description,
		ImageURL:           d.ImageURL,
		Website:            d.Website,
		Twitter:            d.Twitter,
		Telegram:           d.Telegram,
		Status:             d.Status.String(),
		AssetID:            d.AssetID,
		MetadataURL:        d.MetadataURL,
		ConfigKey:          d.ConfigKey,
		LaunchSignature:    d.LaunchSignature,
		CreatorBps:         d.CreatorBps,
		PrizePoolBps:       d.PrizePoolBps,
		ThresholdRaw:       d.ThresholdRaw,
		ThresholdUI:        s.gateUI(d.ThresholdRaw),
		InitialBuyLamports: d.InitialBuyLamports,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
		LaunchedAt:         d.LaunchedAt,
	}
}

func (s *Server) publicDropView(d *domain.Drop) PublicDropView {
	return PublicDropView{
		Slug:         d.Slug,
		Name:         d.Name,
		Symbol:       d.Symbol,
		Description:  d.Description,
		ImageURL:     d.ImageURL,
		Website:      d.Website,
		Twitter:      d.Twitter,
		Telegram:     d.Telegram,
		Status:       d.Status.String(),
		AssetID:      d.AssetID,
		ThresholdRaw: d.ThresholdRaw,
		ThresholdUI:  s.gateUI(d.ThresholdRaw),
	}
}

func pollView(p *domain.Poll) *PollView {
	if p == nil {
		return nil
	}
	return &PollView{
		ID:        p.ID,
		Question:  p.Question,
		Options:   p.Options,
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
		ClosedAt:  p.ClosedAt,
	}
}

func (s *Server) snapshotView(snap *ledger.Snapshot) SnapshotView {
	messages := snap.Messages
	if messages == nil {
		messages = []events.Message{}
	}
	return SnapshotView{
		Drop:       s.publicDropView(snap.Drop),
		Poll:       pollView(snap.Poll),
		VoteCounts: snap.VoteCounts,
		Messages:   messages,
	}
}

func claimView(c *domain.Claim) ClaimView {
	return ClaimView{
		ID:         c.ID,
		Wallet:     c.Wallet,
		Signatures: c.Signatures,
		CreatedAt:  c.CreatedAt,
	}
}
