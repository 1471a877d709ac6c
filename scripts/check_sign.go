package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"folio-api/pkg/exchange"
)

const (
	productionURL = "https://api.pro.coinbase.com"
	sandboxURL    = "https://api-public.sandbox.pro.coinbase.com"
)

// sign reproduces the request signature: base64(HMAC-SHA256(secret,
// timestamp + METHOD + path + body)).
func sign(secret []byte, timestamp, method, path, body string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp + method + path + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func probe(baseURL, apiKey, passphrase string, secret []byte) {
	path := "/accounts"
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	if err != nil {
		fmt.Printf("build request: %v\n", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("CB-ACCESS-KEY", apiKey)
	req.Header.Set("CB-ACCESS-SIGN", sign(secret, timestamp, http.MethodGet, path, ""))
	req.Header.Set("CB-ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("CB-ACCESS-PASSPHRASE", passphrase)

	c := &http.Client{Timeout: 10 * time.Second}
	resp, err := c.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	fmt.Printf("Status: %s\n", resp.Status)
	switch resp.StatusCode {
	case http.StatusOK:
		fmt.Println("Credentials accepted.")
	case http.StatusUnauthorized:
		fmt.Printf("Rejected: %s\n", string(body))
		fmt.Println("Check the API key, secret and passphrase, and that the key is for this environment.")
	default:
		fmt.Printf("Response: %s\n", string(body))
	}
}

func main() {
	// Ensure default exchange config (and .env) is loaded before reading env vars.
	_ = exchange.MustLoad()

	apiKey := os.Getenv("COINBASEPRO_API_KEY")
	rawSecret := os.Getenv("COINBASEPRO_API_SECRET")
	passphrase := os.Getenv("COINBASEPRO_PASSPHRASE")
	if apiKey == "" || rawSecret == "" || passphrase == "" {
		fmt.Println("COINBASEPRO_API_KEY / COINBASEPRO_API_SECRET / COINBASEPRO_PASSPHRASE not set in env/.env")
		os.Exit(1)
	}

	secret, err := base64.StdEncoding.DecodeString(rawSecret)
	if err != nil {
		fmt.Printf("api secret is not valid base64: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Printf("API Key: %s...\n", apiKey[:min(4, len(apiKey))])
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println()

	fmt.Println("--- SANDBOX ---")
	probe(sandboxURL, apiKey, passphrase, secret)

	fmt.Println("\n--- PRODUCTION ---")
	probe(productionURL, apiKey, passphrase, secret)
}
