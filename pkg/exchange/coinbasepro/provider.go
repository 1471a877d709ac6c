package coinbasepro

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/zeromicro/go-zero/core/logx"

	"folio-api/pkg/asset"
	"folio-api/pkg/exchange"
)

// Provider wraps Client to satisfy the exchange.Provider interface. Two
// memoized lookups back the history queries: the tradable product catalog
// and the account id to asset mapping. Both start unloaded and are fetched
// exactly once.
type Provider struct {
	name   string
	client *Client
	deps   exchange.Deps

	productsMu     sync.Mutex
	productsLoaded bool
	products       map[string]struct{}

	accountsMu     sync.Mutex
	accountsLoaded bool
	accountAssets  map[string]asset.Asset
}

// NewProvider constructs a Coinbase Pro exchange provider.
func NewProvider(name string, deps exchange.Deps, client *Client) (*Provider, error) {
	if client == nil {
		return nil, fmt.Errorf("coinbasepro: client is required")
	}
	if deps.Assets == nil {
		return nil, fmt.Errorf("coinbasepro: asset resolver is required")
	}
	if deps.Prices == nil {
		return nil, fmt.Errorf("coinbasepro: price oracle is required")
	}
	if deps.Messages == nil {
		return nil, fmt.Errorf("coinbasepro: message sink is required")
	}
	if name == "" {
		name = location
	}
	return &Provider{name: name, client: client, deps: deps}, nil
}

func init() {
	exchange.RegisterProvider("coinbasepro", func(name string, cfg *exchange.ProviderConfig, deps exchange.Deps) (exchange.Provider, error) {
		opts := []ClientOption{}
		if cfg.Timeout > 0 {
			opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
		}
		if cfg.QueryRetryLimit > 0 {
			opts = append(opts, WithRetryLimit(cfg.QueryRetryLimit))
		}
		switch {
		case cfg.BaseURL != "":
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		case cfg.Sandbox:
			opts = append(opts, WithBaseURL(sandboxBaseURL))
		}
		client := NewClient(cfg.Credentials(), opts...)
		return NewProvider(name, deps, client)
	})
}

// Name implements exchange.Provider.
func (p *Provider) Name() string { return p.name }

// FirstConnection loads the tradable product catalog. Repeat calls are
// no-ops once the catalog has been fetched.
func (p *Provider) FirstConnection(ctx context.Context) error {
	p.productsMu.Lock()
	defer p.productsMu.Unlock()

	if p.productsLoaded {
		return nil
	}

	entries, _, err := p.client.queryList(ctx, "products", nil)
	if err != nil {
		return err
	}
	products := make(map[string]struct{}, len(entries))
	for _, raw := range entries {
		var product productEntry
		if err := json.Unmarshal(raw, &product); err != nil || product.ID == "" {
			continue
		}
		products[product.ID] = struct{}{}
	}
	p.products = products
	p.productsLoaded = true
	return nil
}

// ValidateAPIKey checks that the configured credentials can read accounts.
// The returned message is user actionable when validation fails.
func (p *Provider) ValidateAPIKey(ctx context.Context) (bool, string) {
	_, _, err := p.client.queryList(ctx, "accounts", nil)
	if err == nil {
		return true, ""
	}

	var permErr *exchange.PermissionError
	if errors.As(err, &permErr) {
		return false, `Provided API key needs to have "View" permission activated. ` +
			`Please log into your Coinbase Pro account and create a key with the required permissions.`
	}
	if strings.Contains(err.Error(), "Invalid Passphrase") {
		return false, "The passphrase for the given API key does not match."
	}
	return false, err.Error()
}

// UpdateCredentials swaps the key material used for request signing.
func (p *Provider) UpdateCredentials(update exchange.CredentialsUpdate) bool {
	return p.client.UpdateCredentials(update)
}

// accountCurrencyMap returns the account id to asset mapping, fetching it on
// first use. Accounts whose currency cannot be resolved are reported to the
// message sink and left out.
func (p *Provider) accountCurrencyMap(ctx context.Context) (map[string]asset.Asset, error) {
	p.accountsMu.Lock()
	defer p.accountsMu.Unlock()

	if p.accountsLoaded {
		return p.accountAssets, nil
	}

	entries, _, err := p.client.queryList(ctx, "accounts", nil)
	if err != nil {
		return nil, err
	}

	accountAssets := make(map[string]asset.Asset, len(entries))
	for _, raw := range entries {
		var account accountEntry
		if err := json.Unmarshal(raw, &account); err != nil || account.ID == "" || account.Currency == "" {
			p.deps.Messages.AddWarning("Found coinbasepro account entry with missing fields. Ignoring it.")
			continue
		}
		resolved, err := p.deps.Assets.FromExchangeSymbol(ctx, account.Currency)
		if err != nil {
			switch {
			case errors.Is(err, asset.ErrUnsupportedAsset):
				p.deps.Messages.AddWarning(fmt.Sprintf(
					"Found coinbasepro account with unsupported asset %s. Ignoring it.", account.Currency))
			case errors.Is(err, asset.ErrUnknownAsset):
				p.deps.Messages.AddWarning(fmt.Sprintf(
					"Found coinbasepro account with unknown asset %s. Ignoring it.", account.Currency))
			default:
				logx.WithContext(ctx).Errorf("coinbasepro: resolve account currency=%s err=%v", account.Currency, err)
			}
			continue
		}
		accountAssets[account.ID] = resolved
	}

	p.accountAssets = accountAssets
	p.accountsLoaded = true
	return p.accountAssets, nil
}
