package coinbasepro

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Wire payload fragments. Only the fields the ingestion path consumes are
// declared; numeric values arrive as strings and are parsed into decimals.

// accountEntry is one element of the accounts response.
type accountEntry struct {
	ID       string `json:"id"`
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
}

// productEntry is one element of the products catalog response.
type productEntry struct {
	ID string `json:"id"`
}

// orderEntry is one element of the orders response.
type orderEntry struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
}

// fillEntry is one element of the fills response. The trade id is numeric
// on the wire.
type fillEntry struct {
	TradeID   json.Number `json:"trade_id"`
	ProductID string      `json:"product_id"`
	OrderID   string      `json:"order_id"`
	CreatedAt string      `json:"created_at"`
	Side      string      `json:"side"`
	Size      string      `json:"size"`
	Price     string      `json:"price"`
	Fee       string      `json:"fee"`
}

// transferDetails carries the optional on-chain fields of a transfer.
type transferDetails struct {
	CryptoAddress         string `json:"crypto_address"`
	CryptoTransactionHash string `json:"crypto_transaction_hash"`
	SentToAddress         string `json:"sent_to_address"`
	Fee                   string `json:"fee"`
}

// transferEntry is one element of the transfers response. CompletedAt stays
// empty while the transfer is still pending.
type transferEntry struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	CreatedAt   string          `json:"created_at"`
	CompletedAt string          `json:"completed_at"`
	AccountID   string          `json:"account_id"`
	Amount      string          `json:"amount"`
	Details     transferDetails `json:"details"`
}

// parseTimestamp deserializes the iso8601 variants the exchange emits. A
// bare +00 zone suffix and a space date separator both occur in the wild.
func parseTimestamp(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	if strings.HasSuffix(raw, "+00") {
		raw = strings.TrimSuffix(raw, "+00") + "+00:00"
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999Z07:00",
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, fmt.Errorf("unrecognized timestamp %q", raw)
}

// parseDecimal deserializes a wire decimal string.
func parseDecimal(field, raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q", field, raw)
	}
	return value, nil
}

// parseOptionalFee treats an absent fee as zero.
func parseOptionalFee(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	return parseDecimal("fee", raw)
}
