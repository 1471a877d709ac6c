package coinbasepro

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"

	"folio-api/pkg/exchange"
)

// Request signing follows the CB-ACCESS scheme: the key material is the
// base64-decoded API secret, the signed message is the concatenation of the
// unix-second timestamp, the HTTP method, the request path including the
// encoded query string, and the request body. The signature travels base64
// encoded next to key, timestamp and passphrase headers.

// signHeaders computes the authentication headers for one request. The
// returned error is a RemoteError when the configured secret is not valid
// base64; no request should be sent in that case.
func signHeaders(creds exchange.Credentials, timestamp, method, requestPath, body string) (http.Header, error) {
	key, err := base64.StdEncoding.DecodeString(creds.APISecret)
	if err != nil {
		return nil, &exchange.RemoteError{
			Location: location,
			Message:  "provided API secret is invalid",
		}
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(timestamp + method + requestPath + body))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	headers := http.Header{}
	headers.Set("CB-ACCESS-KEY", creds.APIKey)
	headers.Set("CB-ACCESS-SIGN", signature)
	headers.Set("CB-ACCESS-TIMESTAMP", timestamp)
	headers.Set("CB-ACCESS-PASSPHRASE", creds.Passphrase)
	return headers, nil
}
