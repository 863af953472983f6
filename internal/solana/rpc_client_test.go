package solana

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// tokenAccount builds one jsonParsed account entry.
func tokenAccount(pubkey, mint, amount string) map[string]interface{} {
	return map[string]interface{}{
		"pubkey": pubkey,
		"account": map[string]interface{}{
			"data": map[string]interface{}{
				"parsed": map[string]interface{}{
					"info": map[string]interface{}{
						"mint":  mint,
						"owner": "owner",
						"tokenAmount": map[string]interface{}{
							"amount":   amount,
							"decimals": 9,
						},
					},
				},
			},
		},
	}
}

func TestHTTPClient_GetHolderBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.Method != "getTokenAccountsByOwner" {
			t.Errorf("expected method getTokenAccountsByOwner, got %s", req.Method)
		}
		if len(req.Params) != 3 {
			t.Fatalf("expected 3 params, got %d", len(req.Params))
		}
		filter, _ := req.Params[1].(map[string]interface{})
		if filter["mint"] != "MintAAA" {
			t.Errorf("expected mint filter MintAAA, got %v", filter["mint"])
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": []interface{}{
					// Sum exceeds uint64.
					tokenAccount("acct1", "MintAAA", "18446744073709551615"),
					tokenAccount("acct2", "MintAAA", "10"),
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	balance, err := client.GetHolderBalance(context.Background(), "WalletXYZ", "MintAAA")
	if err != nil {
		t.Fatalf("GetHolderBalance: %v", err)
	}

	if balance.String() != "18446744073709551625" {
		t.Errorf("expected 18446744073709551625, got %s", balance.String())
	}
}

func TestHTTPClient_GetHolderBalance_NoAccounts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]interface{}{"value": []interface{}{}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	balance, err := client.GetHolderBalance(context.Background(), "WalletXYZ", "MintAAA")
	if err != nil {
		t.Fatalf("GetHolderBalance: %v", err)
	}
	if balance.Sign() != 0 {
		t.Errorf("expected zero balance, got %s", balance.String())
	}
}

func TestHTTPClient_GetHolderBalance_BadAmount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": []interface{}{tokenAccount("acct1", "MintAAA", "1.5")},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	if _, err := client.GetHolderBalance(context.Background(), "WalletXYZ", "MintAAA"); err == nil {
		t.Fatal("expected error for non-integer amount")
	}
}

func TestHTTPClient_Retry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := attempts.Add(1)
		if count < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  int64(999),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(10*time.Millisecond),
	)

	slot, err := client.GetSlot(context.Background())
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}

	if slot != 999 {
		t.Errorf("expected slot 999, got %d", slot)
	}

	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RPCError(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error": map[string]interface{}{
				"code":    -32602,
				"message": "Invalid param: could not find mint",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithRetryDelay(time.Millisecond))

	_, err := client.GetHolderBalance(context.Background(), "WalletXYZ", "MintAAA")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %T", err)
	}
	if rpcErr.Code != -32602 {
		t.Errorf("expected code -32602, got %d", rpcErr.Code)
	}
	if attempts.Load() != 1 {
		t.Errorf("RPC errors must not be retried, got %d attempts", attempts.Load())
	}
}

func TestHTTPClient_MaxRetriesExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(1),
		WithRetryDelay(time.Millisecond),
	)

	if _, err := client.GetSlot(context.Background()); err == nil {
		t.Fatal("expected error after retries")
	}
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := client.GetSlot(ctx)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
