package launchpad

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mr-tron/base58"
)

var validTx = base58.Encode([]byte("unsigned-transaction"))

func writeEnvelope(w http.ResponseWriter, status int, success bool, response interface{}, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  success,
		"response": response,
		"error":    errMsg,
	})
}

func TestHTTPClient_CreateTokenInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token-launch/create-token-info" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "secret" {
			t.Errorf("missing api key header")
		}

		var req TokenInfoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Symbol != "PEPE" {
			t.Errorf("expected symbol PEPE, got %s", req.Symbol)
		}

		writeEnvelope(w, http.StatusOK, true, map[string]string{
			"tokenMint":     "MintAAA",
			"tokenMetadata": "https://ipfs.example/x",
		}, "")
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "secret")

	info, err := client.CreateTokenInfo(context.Background(), TokenInfoRequest{Name: "Pepe", Symbol: "PEPE"})
	if err != nil {
		t.Fatalf("CreateTokenInfo: %v", err)
	}
	if info.AssetID != "MintAAA" || info.MetadataURL != "https://ipfs.example/x" {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestHTTPClient_APIErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		writeEnvelope(w, http.StatusBadRequest, false, nil, "symbol already taken")
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "k", WithRetryDelay(time.Millisecond))

	_, err := client.CreateTokenInfo(context.Background(), TokenInfoRequest{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "symbol already taken" || apiErr.Status != http.StatusBadRequest {
		t.Errorf("unexpected error: %+v", apiErr)
	}
	if apiErr.UpstreamMessage() != "symbol already taken" {
		t.Errorf("unexpected upstream message: %q", apiErr.UpstreamMessage())
	}
	if attempts.Load() != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts.Load())
	}
}

func TestHTTPClient_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeEnvelope(w, http.StatusOK, true, validTx, "")
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "k", WithMaxRetries(3), WithRetryDelay(time.Millisecond))

	tx, err := client.CreateLaunchTransaction(context.Background(), LaunchRequest{AssetID: "MintAAA"})
	if err != nil {
		t.Fatalf("CreateLaunchTransaction: %v", err)
	}
	if tx != validTx {
		t.Errorf("unexpected tx %s", tx)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RejectsOversizedTransaction(t *testing.T) {
	huge := base58.Encode([]byte(strings.Repeat("x", MaxTransactionSize+1)))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, map[string]interface{}{
			"configKey":    "Cfg",
			"transactions": []string{validTx, huge},
		}, "")
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "k")

	_, err := client.CreateFeeShareConfig(context.Background(), "Payer", "MintAAA", []FeeClaimer{{Wallet: "A", Bps: 10000}})
	if !errors.Is(err, ErrInvalidTransaction) {
		t.Errorf("expected ErrInvalidTransaction, got %v", err)
	}
}

func TestHTTPClient_ClaimFlow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token-launch/claimable-positions":
			if r.URL.Query().Get("wallet") != "Creator" {
				t.Errorf("expected wallet query, got %s", r.URL.RawQuery)
			}
			writeEnvelope(w, http.StatusOK, true, []map[string]interface{}{
				{"baseMint": "MintAAA", "poolAddress": "Pool1", "totalClaimableLamportsUserShare": "5000"},
			}, "")
		case "/token-launch/claim-txs":
			writeEnvelope(w, http.StatusOK, true, []map[string]string{{"tx": validTx}, {"tx": validTx}}, "")
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "k")
	ctx := context.Background()

	positions, err := client.GetClaimablePositions(ctx, "Creator")
	if err != nil {
		t.Fatalf("GetClaimablePositions: %v", err)
	}
	if len(positions) != 1 || positions[0].AssetID != "MintAAA" || positions[0].ClaimableLamports != "5000" {
		t.Errorf("unexpected positions: %+v", positions)
	}

	txs, err := client.GetClaimTransactions(ctx, ClaimRequest{Wallet: "Creator", AssetID: "MintAAA"})
	if err != nil {
		t.Fatalf("GetClaimTransactions: %v", err)
	}
	if len(txs) != 2 {
		t.Errorf("expected 2 txs, got %d", len(txs))
	}
}

func TestValidateTransaction(t *testing.T) {
	tests := []struct {
		name string
		blob string
		ok   bool
	}{
		{"valid", validTx, true},
		{"empty", "", false},
		{"not base58", "0OIl", false},
		{"max size", base58.Encode(make([]byte, MaxTransactionSize)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransaction(tt.blob)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidTransaction) {
				t.Errorf("expected ErrInvalidTransaction, got %v", err)
			}
		})
	}
}
