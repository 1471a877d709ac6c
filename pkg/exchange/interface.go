package exchange

import (
	"context"

	"folio-api/pkg/asset"
	"folio-api/pkg/messages"
	"folio-api/pkg/pricing"
)

// Provider ingests one exchange account into normalized portfolio records.
type Provider interface {
	// Name returns the location tag carried by every record this
	// provider emits.
	Name() string

	// FirstConnection runs the one-time bootstrap, such as loading the
	// tradable product catalog. Safe to call repeatedly.
	FirstConnection(ctx context.Context) error

	// ValidateAPIKey probes the account with the configured credentials
	// and returns a user-facing explanation when they are rejected.
	ValidateAPIKey(ctx context.Context) (bool, string)

	// Account history.
	QueryBalances(ctx context.Context) (Balances, error)
	QueryTradeHistory(ctx context.Context, start, end int64) ([]Trade, error)
	QueryAssetMovements(ctx context.Context, start, end int64) ([]AssetMovement, error)

	// UpdateCredentials swaps the key material in place and reports
	// whether anything changed.
	UpdateCredentials(update CredentialsUpdate) bool
}

// Deps bundles the collaborators injected into every provider. Per-record
// problems are routed to Messages so one bad entry never aborts a query.
type Deps struct {
	Assets   asset.Resolver
	Prices   pricing.Oracle
	Messages messages.Sink
}
