// Package sim provides an in-memory exchange used for development and tests.
// It serves seeded history through the normal Provider interface so the sync
// pipeline can run without remote credentials.
package sim

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"folio-api/pkg/asset"
	"folio-api/pkg/exchange"
)

// Provider is a canned exchange implementation that keeps balances, trades
// and movements in memory.
type Provider struct {
	mu sync.Mutex

	name      string
	connected bool
	creds     exchange.Credentials

	balances  exchange.Balances
	trades    []exchange.Trade
	movements []exchange.AssetMovement
}

// New constructs an empty simulator named after its config entry.
func New(name string) *Provider {
	if name == "" {
		name = "sim"
	}
	return &Provider{
		name:     name,
		balances: make(exchange.Balances),
	}
}

// Name implements exchange.Provider.
func (p *Provider) Name() string { return p.name }

// FirstConnection marks the provider connected. There is no catalog to load.
func (p *Provider) FirstConnection(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = true
	return nil
}

// Connected reports whether FirstConnection has run.
func (p *Provider) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// ValidateAPIKey always accepts; the simulator has no remote account.
func (p *Provider) ValidateAPIKey(ctx context.Context) (bool, string) {
	return true, ""
}

// QueryBalances returns a copy of the seeded balances.
func (p *Provider) QueryBalances(ctx context.Context) (exchange.Balances, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(exchange.Balances, len(p.balances))
	for a, balance := range p.balances {
		out[a] = balance
	}
	return out, nil
}

// QueryTradeHistory returns seeded trades inside the inclusive window,
// ordered by timestamp.
func (p *Provider) QueryTradeHistory(ctx context.Context, start, end int64) ([]exchange.Trade, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []exchange.Trade
	for _, trade := range p.trades {
		if trade.Timestamp < start || trade.Timestamp > end {
			continue
		}
		out = append(out, trade)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

// QueryAssetMovements returns seeded movements inside the inclusive window,
// ordered by timestamp.
func (p *Provider) QueryAssetMovements(ctx context.Context, start, end int64) ([]exchange.AssetMovement, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []exchange.AssetMovement
	for _, movement := range p.movements {
		if movement.Timestamp < start || movement.Timestamp > end {
			continue
		}
		out = append(out, movement)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

// UpdateCredentials implements exchange.Provider.
func (p *Provider) UpdateCredentials(update exchange.CredentialsUpdate) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	next, changed := update.Apply(p.creds)
	p.creds = next
	return changed
}

// SeedBalance adds to the balance held for an asset.
func (p *Provider) SeedBalance(a asset.Asset, amount, usdValue decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances.Accumulate(a, exchange.Balance{Amount: amount, USDValue: usdValue})
}

// SeedTrade appends a trade to the canned history. The Location field is
// overwritten with the provider name.
func (p *Provider) SeedTrade(trade exchange.Trade) {
	p.mu.Lock()
	defer p.mu.Unlock()
	trade.Location = p.name
	p.trades = append(p.trades, trade)
}

// SeedMovement appends a movement to the canned history. The Location field
// is overwritten with the provider name.
func (p *Provider) SeedMovement(movement exchange.AssetMovement) {
	p.mu.Lock()
	defer p.mu.Unlock()
	movement.Location = p.name
	p.movements = append(p.movements, movement)
}

// Registry hook for exchange.Config.
func init() {
	exchange.RegisterProvider("sim", func(name string, cfg *exchange.ProviderConfig, deps exchange.Deps) (exchange.Provider, error) {
		return New(name), nil
	})
}
