package exchange

// Normalized portfolio domain types shared across exchange implementations.
// These are the values handed to the accounting side of the application and
// stay exchange-agnostic; wire payloads live with each concrete client.

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"folio-api/pkg/asset"
)

// Credentials holds the API key material for an exchange account. The
// secret is base64-encoded symmetric key material and must never be logged.
type Credentials struct {
	APIKey     string
	APISecret  string
	Passphrase string
}

// String implements fmt.Stringer with the secret material redacted.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{APIKey:%s APISecret:<redacted> Passphrase:<redacted>}", maskKey(c.APIKey))
}

// GoString mirrors String so %#v output stays redacted as well.
func (c Credentials) GoString() string {
	return c.String()
}

func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:2] + "****" + key[len(key)-2:]
}

// CredentialsUpdate carries a partial credentials change. Nil fields keep
// the current value.
type CredentialsUpdate struct {
	APIKey     *string
	APISecret  *string
	Passphrase *string
}

// Apply returns the credentials with the update folded in and reports
// whether anything changed.
func (u CredentialsUpdate) Apply(current Credentials) (Credentials, bool) {
	changed := false
	next := current
	if u.APIKey != nil && *u.APIKey != current.APIKey {
		next.APIKey = *u.APIKey
		changed = true
	}
	if u.APISecret != nil && *u.APISecret != current.APISecret {
		next.APISecret = *u.APISecret
		changed = true
	}
	if u.Passphrase != nil && *u.Passphrase != current.Passphrase {
		next.Passphrase = *u.Passphrase
		changed = true
	}
	return next, changed
}

// TradeSide represents trade direction.
type TradeSide string

const (
	// TradeSideBuy marks a buy of the base asset.
	TradeSideBuy TradeSide = "buy"
	// TradeSideSell marks a sell of the base asset.
	TradeSideSell TradeSide = "sell"
)

// ParseTradeSide deserializes a remote side string.
func ParseTradeSide(s string) (TradeSide, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return TradeSideBuy, nil
	case "sell":
		return TradeSideSell, nil
	default:
		return "", fmt.Errorf("exchange: unknown trade side %q", s)
	}
}

// Trade is a normalized record of one executed fill.
type Trade struct {
	Timestamp  int64
	Location   string
	BaseAsset  asset.Asset
	QuoteAsset asset.Asset
	Side       TradeSide
	Amount     decimal.Decimal
	Rate       decimal.Decimal
	Fee        decimal.Decimal
	FeeAsset   asset.Asset
	// Link is the stable dedup key, fill id + "_" + order id for fills.
	Link  string
	Notes string
}

// Balance pairs an asset amount with its priced USD value.
type Balance struct {
	Amount   decimal.Decimal
	USDValue decimal.Decimal
}

// Add returns the element-wise sum of two balances.
func (b Balance) Add(other Balance) Balance {
	return Balance{
		Amount:   b.Amount.Add(other.Amount),
		USDValue: b.USDValue.Add(other.USDValue),
	}
}

// Balances maps resolved assets to accumulated balances. Remote accounts
// denominated in the same asset sum together.
type Balances map[asset.Asset]Balance

// Accumulate folds one balance into the map.
func (b Balances) Accumulate(a asset.Asset, balance Balance) {
	b[a] = b[a].Add(balance)
}

// MovementCategory distinguishes deposits from withdrawals.
type MovementCategory string

const (
	// MovementDeposit marks funds entering the exchange account.
	MovementDeposit MovementCategory = "deposit"
	// MovementWithdrawal marks funds leaving the exchange account.
	MovementWithdrawal MovementCategory = "withdrawal"
)

// ParseMovementCategory deserializes a remote movement type string.
func ParseMovementCategory(s string) (MovementCategory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deposit":
		return MovementDeposit, nil
	case "withdraw", "withdrawal":
		return MovementWithdrawal, nil
	default:
		return "", fmt.Errorf("exchange: unknown movement category %q", s)
	}
}

// AssetMovement is a normalized deposit or withdrawal record.
type AssetMovement struct {
	Location  string
	Category  MovementCategory
	Timestamp int64
	Asset     asset.Asset
	Amount    decimal.Decimal
	Fee       decimal.Decimal
	FeeAsset  asset.Asset
	// Address and TransactionID are optional on-chain details. Transaction
	// ids of EVM assets carry the 0x prefix.
	Address       string
	TransactionID string
	// Link is the remote entry id, stable across repeat queries.
	Link string
}
