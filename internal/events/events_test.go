package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_Envelope(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{"connected", Connected{SessionKey: "abc-123"}, `{"type":"CONNECTED","data":{"sessionKey":"abc-123"}}`},
		{"vote", Vote{PollID: "p1", OptionIndex: 0, VoteCounts: []int{1, 0}}, `{"type":"VOTE","data":{"pollId":"p1","optionIndex":0,"voteCounts":[1,0]}}`},
		{"vote nil counts", Vote{PollID: "p1"}, `{"type":"VOTE","data":{"pollId":"p1","optionIndex":0,"voteCounts":[]}}`},
		{"pong", Pong{}, `{"type":"PONG","data":{}}`},
		{"launched", DropLaunched{AssetID: "Mint1", LaunchSignature: "sig"}, `{"type":"DROP_LAUNCHED","data":{"assetId":"Mint1","launchSignature":"sig"}}`},
		{"threshold", ThresholdUpdated{ThresholdRaw: "1000"}, `{"type":"THRESHOLD_UPDATED","data":{"thresholdRaw":"1000"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Encode(tt.ev)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))
		})
	}
}

func TestEncode_Message(t *testing.T) {
	raw, err := Encode(Message{ID: "a1", WalletDisplay: "AbCd…WxYz", Text: "gm", CreatedAt: 1700000000000})
	require.NoError(t, err)

	var decoded struct {
		Type Type           `json:"type"`
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, TypeMessage, decoded.Type)
	assert.Equal(t, "AbCd…WxYz", decoded.Data["walletDisplay"])
	assert.Equal(t, "gm", decoded.Data["text"])
}

func TestIsPing(t *testing.T) {
	assert.True(t, IsPing([]byte(`{"type":"PING"}`)))
	assert.False(t, IsPing([]byte(`{"type":"VOTE"}`)))
	assert.False(t, IsPing([]byte(`PING`)))
	assert.False(t, IsPing(nil))
}
