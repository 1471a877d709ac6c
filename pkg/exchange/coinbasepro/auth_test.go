package coinbasepro

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"folio-api/pkg/exchange"
)

// Reference vectors generated with an independent HMAC-SHA256
// implementation. The raw key material is the byte string
// "the quick brown fox jumps over the lazy dog".
const testAPISecret = "dGhlIHF1aWNrIGJyb3duIGZveCBqdW1wcyBvdmVyIHRoZSBsYXp5IGRvZw=="

var testCreds = exchange.Credentials{
	APIKey:     "test-key",
	APISecret:  testAPISecret,
	Passphrase: "test-passphrase",
}

func TestSignHeaders(t *testing.T) {
	tests := map[string]struct {
		timestamp string
		path      string
		expected  string
	}{
		"plain endpoint": {
			timestamp: "1577836800",
			path:      "/accounts",
			expected:  "/4/cjTlu5fMj4azo8Dx6VhuJBnps1Gfl2kMTn1LXCHU=",
		},
		"query string included": {
			timestamp: "1577836800",
			path:      "/transfers?limit=100&type=withdraw",
			expected:  "Wg22ZMG2OTTvwiqwPGrenwr1uqoS0Bfsq8U+E6GxlZ0=",
		},
		"different timestamp": {
			timestamp: "1600000000",
			path:      "/orders?limit=100&status=done",
			expected:  "iwyJul4dNQq8Fgf516w7vjwclua3+8IAcoaVETC9tG4=",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			headers, err := signHeaders(testCreds, tc.timestamp, "GET", tc.path, "")
			require.NoError(t, err)
			require.Equal(t, tc.expected, headers.Get("CB-ACCESS-SIGN"))
			require.Equal(t, "test-key", headers.Get("CB-ACCESS-KEY"))
			require.Equal(t, tc.timestamp, headers.Get("CB-ACCESS-TIMESTAMP"))
			require.Equal(t, "test-passphrase", headers.Get("CB-ACCESS-PASSPHRASE"))
		})
	}
}

func TestSignHeadersBodyChangesSignature(t *testing.T) {
	withBody, err := signHeaders(testCreds, "1577836800", "POST", "/orders", `{"size":"1"}`)
	require.NoError(t, err)
	withoutBody, err := signHeaders(testCreds, "1577836800", "POST", "/orders", "")
	require.NoError(t, err)
	require.NotEqual(t, withoutBody.Get("CB-ACCESS-SIGN"), withBody.Get("CB-ACCESS-SIGN"))
}

func TestSignHeadersInvalidSecret(t *testing.T) {
	creds := testCreds
	creds.APISecret = "%%%not-base64%%%"

	_, err := signHeaders(creds, "1577836800", "GET", "/accounts", "")
	require.Error(t, err)

	var remoteErr *exchange.RemoteError
	require.True(t, errors.As(err, &remoteErr))
	require.Contains(t, remoteErr.Message, "API secret is invalid")
}

func TestSignHeadersNeverLeaksSecret(t *testing.T) {
	headers, err := signHeaders(testCreds, "1577836800", "GET", "/accounts", "")
	require.NoError(t, err)
	for _, values := range headers {
		for _, value := range values {
			require.NotEqual(t, testAPISecret, value)
		}
	}
	// The decoded key must not appear either.
	raw, err := base64.StdEncoding.DecodeString(testAPISecret)
	require.NoError(t, err)
	for _, values := range headers {
		for _, value := range values {
			require.NotEqual(t, string(raw), value)
		}
	}
}
