// Package coinbasepro implements account history ingestion for Coinbase Pro
// style REST APIs. All queries are read only GETs; responses are JSON arrays
// paginated through the cb-after response header.
package coinbasepro

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"folio-api/pkg/exchange"
)

const (
	productionBaseURL = "https://api.pro.coinbase.com"
	sandboxBaseURL    = "https://api-public.sandbox.pro.coinbase.com"

	defaultHTTPTimeout = 30 * time.Second
	defaultRetryLimit  = 5

	// paginationLimit is both the default and the maximum page size.
	paginationLimit = 100
)

// location tags errors and log lines emitted by this package.
const location = "coinbasepro"

// Client coordinates signed GET requests against Coinbase Pro endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retryLimit int
	clock      func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error

	credsMu sync.RWMutex
	creds   exchange.Credentials
}

// ClientOption customises the Coinbase Pro client.
type ClientOption func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithBaseURL points the client at a different API host, such as the sandbox.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithRetryLimit sets the retry budget consumed while the remote rate limits.
func WithRetryLimit(limit int) ClientOption {
	return func(c *Client) {
		if limit > 0 {
			c.retryLimit = limit
		}
	}
}

// WithClock overrides the time source (primarily for testing).
func WithClock(clock func() time.Time) ClientOption {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithSleep overrides the backoff sleeper (primarily for testing).
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ClientOption {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewClient constructs a Coinbase Pro client for the given credentials.
func NewClient(creds exchange.Credentials, opts ...ClientOption) *Client {
	client := &Client{
		baseURL: productionBaseURL,
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
		retryLimit: defaultRetryLimit,
		clock:      time.Now,
		sleep:      sleepWithContext,
		creds:      creds,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if client.clock == nil {
		client.clock = time.Now
	}
	if client.sleep == nil {
		client.sleep = sleepWithContext
	}
	if client.retryLimit <= 0 {
		client.retryLimit = defaultRetryLimit
	}
	return client
}

// UpdateCredentials swaps the key material used for signing and reports
// whether anything changed.
func (c *Client) UpdateCredentials(update exchange.CredentialsUpdate) bool {
	c.credsMu.Lock()
	defer c.credsMu.Unlock()

	next, changed := update.Apply(c.creds)
	c.creds = next
	return changed
}

func (c *Client) credentials() exchange.Credentials {
	c.credsMu.RLock()
	defer c.credsMu.RUnlock()
	return c.creds
}

// queryList performs one GET against an endpoint and returns the entries of
// the JSON array response plus the cb-after pagination cursor, if any.
//
// While the remote answers with 429 the call backs off and retries, sleeping
// longer the fewer retries remain. The signature is computed once and reused
// across retry attempts.
func (c *Client) queryList(ctx context.Context, endpoint string, query url.Values) ([]json.RawMessage, string, error) {
	requestPath := "/" + endpoint
	if len(query) > 0 {
		requestPath += "?" + query.Encode()
	}
	fullURL := c.baseURL + requestPath

	headers := http.Header{}
	headers.Set("Content-Type", "Application/JSON")
	if endpointNeedsAuth(endpoint) {
		timestamp := strconv.FormatInt(c.clock().Unix(), 10)
		signed, err := signHeaders(c.credentials(), timestamp, http.MethodGet, requestPath, "")
		if err != nil {
			return nil, "", err
		}
		for key, values := range signed {
			headers[key] = values
		}
	}

	var (
		status int
		body   []byte
		header http.Header
	)
	retriesLeft := c.retryLimit
	for retriesLeft > 0 {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, "", &exchange.RemoteError{
				Location: location,
				Message:  fmt.Sprintf("build GET query at %s: %v", fullURL, err),
			}
		}
		for key, values := range headers {
			req.Header[key] = values
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			return nil, "", &exchange.RemoteError{
				Location: location,
				Message:  fmt.Sprintf("GET query at %s connection error: %v", fullURL, err),
			}
		}
		body, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, "", &exchange.RemoteError{
				Location: location,
				Message:  fmt.Sprintf("read GET response at %s: %v", fullURL, err),
			}
		}
		status = resp.StatusCode
		header = resp.Header

		if status == http.StatusTooManyRequests {
			backoff := time.Duration(float64(c.retryLimit) / float64(retriesLeft) * float64(time.Second))
			if err := c.sleep(ctx, backoff); err != nil {
				return nil, "", err
			}
			retriesLeft--
			continue
		}
		break
	}

	return interpretResponse(endpoint, fullURL, status, body, header)
}

// interpretResponse maps a raw HTTP reply to entries, cursor or a typed error.
func interpretResponse(endpoint, fullURL string, status int, body []byte, header http.Header) ([]json.RawMessage, string, error) {
	if status == http.StatusBadRequest {
		var remote struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &remote); err == nil && remote.Message == "invalid signature" {
			return nil, "", &exchange.PermissionError{
				Location: location,
				Message:  fmt.Sprintf("while doing GET at %s endpoint the API secret created an invalid signature", endpoint),
			}
		}
		// Fall through to the generic remote error below.
	} else if status == http.StatusForbidden {
		return nil, "", &exchange.PermissionError{
			Location: location,
			Message:  fmt.Sprintf("API key does not have permission for %s", endpoint),
		}
	}

	if status != http.StatusOK {
		return nil, "", &exchange.RemoteError{
			Location: location,
			Status:   status,
			Message:  fmt.Sprintf("GET query at %s responded with text: %s", fullURL, body),
		}
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, "", &exchange.RemoteError{
			Location: location,
			Status:   status,
			Message:  fmt.Sprintf("GET query at %s returned invalid JSON response: %s", fullURL, body),
		}
	}
	return entries, header.Get("cb-after"), nil
}

// endpointNeedsAuth reports whether requests to the endpoint are signed.
// Product catalog endpoints are public.
func endpointNeedsAuth(endpoint string) bool {
	return !strings.Contains(endpoint, "products")
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
