package launchpad

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"drop-live/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 2
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements Client over the launch service REST API.
type HTTPClient struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new launch service client.
func NewHTTPClient(baseURL, apiKey string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiResponse is the envelope of every launch service response.
type apiResponse struct {
	Success  bool            `json:"success"`
	Response json.RawMessage `json:"response,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// APIError is a failure reported by the launch service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("launchpad error %d: %s", e.Status, e.Message)
}

// UpstreamMessage is the message reported by the launch service.
func (e *APIError) UpstreamMessage() string {
	return e.Message
}

// do performs a request with retries on transport errors, 429 and 5xx.
// 4xx and success=false are returned immediately.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, in, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		observability.RecordLaunchpadCall(op, time.Since(start).Seconds(), err)
	}()

	var body []byte
	if in != nil {
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("x-api-key", c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = &APIError{Status: resp.StatusCode, Message: errorMessage(respBody)}
			continue
		}

		var apiResp apiResponse
		if err := json.Unmarshal(respBody, &apiResp); err != nil {
			if resp.StatusCode != http.StatusOK {
				return &APIError{Status: resp.StatusCode, Message: string(respBody)}
			}
			return fmt.Errorf("unmarshal response: %w", err)
		}

		if resp.StatusCode != http.StatusOK || !apiResp.Success {
			msg := apiResp.Error
			if msg == "" {
				msg = http.StatusText(resp.StatusCode)
			}
			return &APIError{Status: resp.StatusCode, Message: msg}
		}

		if out != nil && apiResp.Response != nil {
			if err := json.Unmarshal(apiResp.Response, out); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// errorMessage extracts the error string of an envelope, or the raw body.
func errorMessage(body []byte) string {
	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err == nil && apiResp.Error != "" {
		return apiResp.Error
	}
	return strings.TrimSpace(string(body))
}

// CreateTokenInfo mints the asset identity and uploads metadata.
func (c *HTTPClient) CreateTokenInfo(ctx context.Context, req TokenInfoRequest) (*TokenInfo, error) {
	var info TokenInfo
	if err := c.do(ctx, "create_token_info", http.MethodPost, "/token-launch/create-token-info", req, &info); err != nil {
		return nil, err
	}
	if info.AssetID == "" || info.MetadataURL == "" {
		return nil, fmt.Errorf("create token info: incomplete response")
	}
	return &info, nil
}

// CreateFeeShareConfig prepares fee-share setup transactions.
func (c *HTTPClient) CreateFeeShareConfig(ctx context.Context, payer, assetID string, claimers []FeeClaimer) (*FeeShareConfig, error) {
	req := struct {
		Payer    string       `json:"payer"`
		BaseMint string       `json:"baseMint"`
		Claimers []FeeClaimer `json:"feeClaimers"`
	}{payer, assetID, claimers}

	var cfg FeeShareConfig
	if err := c.do(ctx, "create_fee_share_config", http.MethodPost, "/fee-share/config", req, &cfg); err != nil {
		return nil, err
	}
	if cfg.ConfigKey == "" {
		return nil, fmt.Errorf("create fee share config: missing config key")
	}
	if err := validateTransactions(cfg.Transactions); err != nil {
		return nil, fmt.Errorf("create fee share config: %w", err)
	}
	return &cfg, nil
}

// CreateLaunchTransaction returns the unsigned launch transaction.
func (c *HTTPClient) CreateLaunchTransaction(ctx context.Context, req LaunchRequest) (string, error) {
	var tx string
	if err := c.do(ctx, "create_launch_transaction", http.MethodPost, "/token-launch/create-launch-transaction", req, &tx); err != nil {
		return "", err
	}
	if err := ValidateTransaction(tx); err != nil {
		return "", fmt.Errorf("create launch transaction: %w", err)
	}
	return tx, nil
}

// GetClaimablePositions lists fee positions claimable by wallet.
func (c *HTTPClient) GetClaimablePositions(ctx context.Context, wallet string) ([]ClaimablePosition, error) {
	path := "/token-launch/claimable-positions?wallet=" + url.QueryEscape(wallet)

	var positions []ClaimablePosition
	if err := c.do(ctx, "get_claimable_positions", http.MethodGet, path, nil, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// GetClaimTransactions returns unsigned claim transactions.
func (c *HTTPClient) GetClaimTransactions(ctx context.Context, req ClaimRequest) ([]string, error) {
	var wrapped []struct {
		Tx string `json:"tx"`
	}
	if err := c.do(ctx, "get_claim_transactions", http.MethodPost, "/token-launch/claim-txs", req, &wrapped); err != nil {
		return nil, err
	}

	txs := make([]string, 0, len(wrapped))
	for _, w := range wrapped {
		txs = append(txs, w.Tx)
	}
	if err := validateTransactions(txs); err != nil {
		return nil, fmt.Errorf("get claim transactions: %w", err)
	}
	return txs, nil
}
