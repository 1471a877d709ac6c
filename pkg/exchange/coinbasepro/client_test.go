package coinbasepro

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio-api/pkg/exchange"
)

func fixedClock(unix int64) func() time.Time {
	return func() time.Time { return time.Unix(unix, 0).UTC() }
}

// noSleep records requested backoffs instead of sleeping.
func noSleep(recorded *[]time.Duration) func(ctx context.Context, d time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*recorded = append(*recorded, d)
		return nil
	}
}

func TestQueryListSignedRequest(t *testing.T) {
	var gotHeaders http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(testCreds,
		WithBaseURL(server.URL),
		WithClock(fixedClock(1577836800)),
	)

	entries, cursor, err := client.queryList(context.Background(), "accounts", nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, cursor)

	assert.Equal(t, "Application/JSON", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "test-key", gotHeaders.Get("CB-ACCESS-KEY"))
	assert.Equal(t, "1577836800", gotHeaders.Get("CB-ACCESS-TIMESTAMP"))
	assert.Equal(t, "test-passphrase", gotHeaders.Get("CB-ACCESS-PASSPHRASE"))
	// Reference signature for 1577836800GET/accounts with the test secret.
	assert.Equal(t, "/4/cjTlu5fMj4azo8Dx6VhuJBnps1Gfl2kMTn1LXCHU=", gotHeaders.Get("CB-ACCESS-SIGN"))
}

func TestQueryListProductsUnsigned(t *testing.T) {
	var gotHeaders http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[{"id":"BTC-USD"}]`))
	}))
	defer server.Close()

	client := NewClient(testCreds, WithBaseURL(server.URL))

	entries, _, err := client.queryList(context.Background(), "products", nil)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	assert.Empty(t, gotHeaders.Get("CB-ACCESS-KEY"), "catalog queries must not be signed")
	assert.Empty(t, gotHeaders.Get("CB-ACCESS-SIGN"))
	assert.Equal(t, "Application/JSON", gotHeaders.Get("Content-Type"))
}

func TestQueryListInvalidSecretSendsNothing(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	creds := testCreds
	creds.APISecret = "%%%not-base64%%%"
	client := NewClient(creds, WithBaseURL(server.URL))

	_, _, err := client.queryList(context.Background(), "accounts", nil)
	require.Error(t, err)
	assert.True(t, exchange.IsRemoteError(err))
	assert.Contains(t, err.Error(), "API secret is invalid")
	assert.Equal(t, int64(0), requests.Load(), "no request should reach the remote")
}

func TestQueryListRateLimitRetry(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("cb-after", "cursor-1")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[{"id":"a"}]`))
	}))
	defer server.Close()

	var sleeps []time.Duration
	client := NewClient(testCreds,
		WithBaseURL(server.URL),
		WithRetryLimit(4),
		WithSleep(noSleep(&sleeps)),
	)

	entries, cursor, err := client.queryList(context.Background(), "accounts", nil)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "cursor-1", cursor)
	assert.Equal(t, int64(3), requests.Load())

	// Backoff grows as the budget runs down: limit/remaining seconds.
	require.Len(t, sleeps, 2)
	assert.Equal(t, time.Second, sleeps[0])
	assert.Equal(t, 4*time.Second/3, sleeps[1])
}

func TestQueryListRateLimitExhaustion(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	var sleeps []time.Duration
	client := NewClient(testCreds,
		WithBaseURL(server.URL),
		WithRetryLimit(2),
		WithSleep(noSleep(&sleeps)),
	)

	_, _, err := client.queryList(context.Background(), "accounts", nil)
	require.Error(t, err)

	var remoteErr *exchange.RemoteError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, http.StatusTooManyRequests, remoteErr.Status)
	assert.Equal(t, int64(2), requests.Load(), "budget of 2 allows exactly 2 attempts")
	assert.Len(t, sleeps, 2)
}

func TestQueryListErrorMapping(t *testing.T) {
	tests := map[string]struct {
		status     int
		body       string
		permission bool
		contains   string
	}{
		"invalid signature": {
			status:     http.StatusBadRequest,
			body:       `{"message":"invalid signature"}`,
			permission: true,
			contains:   "invalid signature",
		},
		"other bad request": {
			status:   http.StatusBadRequest,
			body:     `{"message":"Invalid Passphrase"}`,
			contains: "Invalid Passphrase",
		},
		"malformed bad request body": {
			status:   http.StatusBadRequest,
			body:     `<html>nope</html>`,
			contains: "responded with text",
		},
		"forbidden": {
			status:     http.StatusForbidden,
			body:       `{"message":"Forbidden"}`,
			permission: true,
			contains:   "does not have permission",
		},
		"server error": {
			status:   http.StatusInternalServerError,
			body:     `oops`,
			contains: "responded with text",
		},
		"success with non array": {
			status:   http.StatusOK,
			body:     `{"not":"an array"}`,
			contains: "invalid JSON response",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := NewClient(testCreds, WithBaseURL(server.URL))
			_, _, err := client.queryList(context.Background(), "accounts", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.contains)
			if tc.permission {
				assert.True(t, exchange.IsPermissionError(err), "expected a permission error, got %v", err)
			} else {
				assert.True(t, exchange.IsRemoteError(err), "expected a remote error, got %v", err)
			}
		})
	}
}

func TestQueryListQueryString(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(testCreds, WithBaseURL(server.URL))
	_, _, err := client.queryList(context.Background(), "transfers", url.Values{
		"type":  {"withdraw"},
		"limit": {"100"},
	})
	require.NoError(t, err)
	assert.Equal(t, "/transfers?limit=100&type=withdraw", gotPath, "query keys are encoded in sorted order")
}

func TestUpdateCredentials(t *testing.T) {
	var gotPassphrase string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPassphrase = r.Header.Get("CB-ACCESS-PASSPHRASE")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(testCreds, WithBaseURL(server.URL))

	next := "rotated-passphrase"
	changed := client.UpdateCredentials(exchange.CredentialsUpdate{Passphrase: &next})
	assert.True(t, changed)
	changed = client.UpdateCredentials(exchange.CredentialsUpdate{Passphrase: &next})
	assert.False(t, changed, "identical value should not count as a change")

	_, _, err := client.queryList(context.Background(), "accounts", nil)
	require.NoError(t, err)
	assert.Equal(t, "rotated-passphrase", gotPassphrase, "subsequent requests must sign with the new material")
}
