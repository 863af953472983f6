package domain

import (
	"encoding/json"
	"time"
)

// ActionKind tags a viewer interaction.
type ActionKind string

const (
	ActionKindMessage ActionKind = "MESSAGE"
	ActionKindVote    ActionKind = "VOTE"
)

// IsValid checks if the kind is a known value.
func (k ActionKind) IsValid() bool {
	return k == ActionKindMessage || k == ActionKindVote
}

// Action is an append-only record of a gated viewer interaction.
// Corresponds to actions table in PostgreSQL.
// For VOTE, (DropID, Wallet, poll id) is UNIQUE.
type Action struct {
	ID        string          // PRIMARY KEY, uuid
	DropID    string          // FK to drops
	Wallet    string          // acting wallet
	Kind      ActionKind      // MESSAGE | VOTE
	Payload   json.RawMessage // MessagePayload or VotePayload
	CreatedAt time.Time
}

// MessagePayload is the payload of a MESSAGE action.
type MessagePayload struct {
	Text string `json:"text"`
}

// VotePayload is the payload of a VOTE action.
type VotePayload struct {
	PollID      string `json:"pollId"`
	OptionIndex int    `json:"optionIndex"`
}

// NewMessageAction builds a MESSAGE action.
func NewMessageAction(id, dropID, wallet, text string, at time.Time) (*Action, error) {
	payload, err := json.Marshal(MessagePayload{Text: text})
	if err != nil {
		return nil, err
	}
	return &Action{ID: id, DropID: dropID, Wallet: wallet, Kind: ActionKindMessage, Payload: payload, CreatedAt: at}, nil
}

// NewVoteAction builds a VOTE action.
func NewVoteAction(id, dropID, wallet, pollID string, optionIndex int, at time.Time) (*Action, error) {
	payload, err := json.Marshal(VotePayload{PollID: pollID, OptionIndex: optionIndex})
	if err != nil {
		return nil, err
	}
	return &Action{ID: id, DropID: dropID, Wallet: wallet, Kind: ActionKindVote, Payload: payload, CreatedAt: at}, nil
}

// Message decodes the payload of a MESSAGE action.
func (a *Action) Message() (MessagePayload, error) {
	var p MessagePayload
	err := json.Unmarshal(a.Payload, &p)
	return p, err
}

// Vote decodes the payload of a VOTE action.
func (a *Action) Vote() (VotePayload, error) {
	var p VotePayload
	err := json.Unmarshal(a.Payload, &p)
	return p, err
}
