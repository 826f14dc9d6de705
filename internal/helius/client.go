// Package helius provides clients for the Helius enhanced transaction API:
// per-address history over HTTP and a streaming source over WebSocket.
package helius

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"smart-wallet-tracker/internal/domain"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://api.helius.xyz"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 2 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// ErrMalformedResponse indicates the API returned a syntactically valid but
// wrong-shaped body (e.g. an error object where an array was expected).
var ErrMalformedResponse = errors.New("malformed helius response")

// Client calls the enhanced transaction REST endpoints.
type Client struct {
	apiKey      string
	baseURL     string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL (tests).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets the initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// NewClient creates a Helius API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
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

// RecentTransactions fetches the address's recent enhanced transaction
// history, newest first. A non-array body is a malformed-payload error, not
// an empty result: Helius returns an error object with a 200 status in some
// failure modes.
func (c *Client) RecentTransactions(ctx context.Context, address string) ([]domain.TransactionEvent, error) {
	u := fmt.Sprintf("%s/v0/addresses/%s/transactions?api-key=%s",
		c.baseURL, url.PathEscape(address), url.QueryEscape(c.apiKey))

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var events []domain.TransactionEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, truncate(body, 200))
	}
	return events, nil
}

// TokenMetadata is the subset of mint metadata the tracker uses.
type TokenMetadata struct {
	Mint      string `json:"account"`
	Symbol    string `json:"symbol,omitempty"`
	Name      string `json:"name,omitempty"`
	Decimals  int    `json:"decimals,omitempty"`
	CreatedAt int64  `json:"createdAt,omitempty"` // unix seconds, 0 if unknown
}

// tokenMetadataRequest is the POST body for the metadata endpoint.
type tokenMetadataRequest struct {
	MintAccounts []string `json:"mintAccounts"`
}

// GetTokenMetadata fetches metadata for the given mints. Results preserve
// request order where the API knows the mint; unknown mints are simply
// absent.
func (c *Client) GetTokenMetadata(ctx context.Context, mints []string) ([]TokenMetadata, error) {
	if len(mints) == 0 {
		return nil, nil
	}

	u := fmt.Sprintf("%s/v0/tokens/metadata?api-key=%s", c.baseURL, url.QueryEscape(c.apiKey))
	reqBody, err := json.Marshal(tokenMetadataRequest{MintAccounts: mints})
	if err != nil {
		return nil, fmt.Errorf("marshal metadata request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, u, reqBody)
	if err != nil {
		return nil, err
	}

	var meta []TokenMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, truncate(body, 200))
	}
	return meta, nil
}

// Metadata resolves a single mint's metadata. An unknown mint yields the
// zero value, not an error.
func (c *Client) Metadata(ctx context.Context, mint string) (TokenMetadata, error) {
	meta, err := c.GetTokenMetadata(ctx, []string{mint})
	if err != nil {
		return TokenMetadata{}, err
	}
	for _, m := range meta {
		if m.Mint == mint {
			return m, nil
		}
	}
	return TokenMetadata{}, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, nil)
}

// do performs an HTTP call with retries and exponential backoff.
func (c *Client) do(ctx context.Context, method, url string, reqBody []byte) ([]byte, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		var bodyReader io.Reader
		if reqBody != nil {
			bodyReader = bytes.NewReader(reqBody)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if reqBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(respBody, 200))
			continue
		}

		return respBody, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
