// Package events defines the closed set of events fanned out to live
// subscribers of a drop, and their wire encoding.
package events

import (
	"encoding/json"
	"fmt"
)

// Type is the wire discriminator of an event.
type Type string

const (
	TypeConnected        Type = "CONNECTED"
	TypeMessage          Type = "MESSAGE"
	TypeVote             Type = "VOTE"
	TypePollCreated      Type = "POLL_CREATED"
	TypePollClosed       Type = "POLL_CLOSED"
	TypeThresholdUpdated Type = "THRESHOLD_UPDATED"
	TypeDropLaunched     Type = "DROP_LAUNCHED"
	TypeStatusChanged    Type = "STATUS_CHANGED"
	TypePong             Type = "PONG"
)

// Event is implemented only by the types in this package.
type Event interface {
	Type() Type
	sealed()
}

// Connected acknowledges a new subscription.
type Connected struct {
	SessionKey string `json:"sessionKey"`
}

// Message is a sanitized viewer message.
type Message struct {
	ID            string `json:"id"`
	WalletDisplay string `json:"walletDisplay"`
	Text          string `json:"text"`
	CreatedAt     int64  `json:"createdAt"` // unix ms
}

// Vote carries the recomputed tally after a vote.
type Vote struct {
	PollID      string `json:"pollId"`
	OptionIndex int    `json:"optionIndex"`
	VoteCounts  []int  `json:"voteCounts"`
}

// PollCreated announces a newly active poll.
type PollCreated struct {
	PollID   string   `json:"pollId"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// PollClosed announces that a poll stopped accepting votes.
type PollClosed struct {
	PollID string `json:"pollId"`
}

// ThresholdUpdated announces a new minimum holding.
type ThresholdUpdated struct {
	ThresholdRaw string `json:"thresholdRaw"`
}

// DropLaunched announces the launch transaction.
type DropLaunched struct {
	AssetID         string `json:"assetId"`
	LaunchSignature string `json:"launchSignature"`
}

// StatusChanged announces a launch state transition.
type StatusChanged struct {
	Status string `json:"status"`
}

// Pong answers an inbound PING.
type Pong struct{}

func (Connected) Type() Type        { return TypeConnected }
func (Message) Type() Type          { return TypeMessage }
func (Vote) Type() Type             { return TypeVote }
func (PollCreated) Type() Type      { return TypePollCreated }
func (PollClosed) Type() Type       { return TypePollClosed }
func (ThresholdUpdated) Type() Type { return TypeThresholdUpdated }
func (DropLaunched) Type() Type     { return TypeDropLaunched }
func (StatusChanged) Type() Type    { return TypeStatusChanged }
func (Pong) Type() Type             { return TypePong }

func (Connected) sealed()        {}
func (Message) sealed()          {}
func (Vote) sealed()             {}
func (PollCreated) sealed()      {}
func (PollClosed) sealed()       {}
func (ThresholdUpdated) sealed() {}
func (DropLaunched) sealed()     {}
func (StatusChanged) sealed()    {}
func (Pong) sealed()             {}

// envelope is the JSON shape on the wire.
type envelope struct {
	Type Type `json:"type"`
	Data any  `json:"data"`
}

// Encode serializes an event as {"type": ..., "data": ...}.
func Encode(ev Event) ([]byte, error) {
	var data any
	switch e := ev.(type) {
	case Connected:
		data = e
	case Message:
		data = e
	case Vote:
		if e.VoteCounts == nil {
			e.VoteCounts = []int{}
		}
		data = e
	case PollCreated:
		if e.Options == nil {
			e.Options = []string{}
		}
		data = e
	case PollClosed:
		data = e
	case ThresholdUpdated:
		data = e
	case DropLaunched:
		data = e
	case StatusChanged:
		data = e
	case Pong:
		data = struct{}{}
	default:
		return nil, fmt.Errorf("encode event: unsupported type %T", ev)
	}
	return json.Marshal(envelope{Type: ev.Type(), Data: data})
}

// Inbound is a message received from a subscriber.
type Inbound struct {
	Type string `json:"type"`
}

// IsPing reports whether raw is a keepalive PING. Malformed input is not a ping.
func IsPing(raw []byte) bool {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return false
	}
	return in.Type == "PING"
}
