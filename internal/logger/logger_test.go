package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog/log"
)

func TestInit_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := initTo(&buf, "drop-live", false)

	l.Debug().Msg("hidden")
	log.Info().Str("drop_id", "d1").Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["service"] != "drop-live" || entry["drop_id"] != "d1" || entry["message"] != "hello" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("missing timestamp")
	}
}

func TestInit_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	l := initTo(&buf, "drop-live", true)

	l.Debug().Msg("visible")
	if !bytes.Contains(buf.Bytes(), []byte("visible")) {
		t.Errorf("debug message missing: %q", buf.String())
	}
}
