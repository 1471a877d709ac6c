package coinbasepro

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio-api/pkg/asset"
	"folio-api/pkg/exchange"
	"folio-api/pkg/messages"
	"folio-api/pkg/pricing"
)

var (
	btcAsset  = asset.Asset{Identifier: "BTC", Name: "Bitcoin", Symbol: "BTC", Type: asset.TypeOwnChain}
	ethAsset  = asset.Asset{Identifier: "ETH", Name: "Ethereum", Symbol: "ETH", Type: asset.TypeOwnChain, EvmChain: "ethereum"}
	linkAsset = asset.Asset{Identifier: "eip155:1/erc20:0x514910771AF9Ca656af840dff83E8264EcF986CA", Name: "Chainlink", Symbol: "LINK", Type: asset.TypeEvmToken, EvmChain: "ethereum", EvmAddress: "0x514910771AF9Ca656af840dff83E8264EcF986CA"}
	usdAsset  = asset.Asset{Identifier: "USD", Name: "United States Dollar", Symbol: "USD", Type: asset.TypeFiat}
	nopAsset  = asset.Asset{Identifier: "NOP", Name: "No Price", Symbol: "NOP", Type: asset.TypeOwnChain}
)

// newTestProvider wires a provider against the given handler with a static
// resolver, static prices and a fresh message sink.
func newTestProvider(t *testing.T, handler http.Handler) (*Provider, *messages.Aggregator) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	sink := messages.NewAggregator()
	resolver := asset.NewStaticResolver(
		[]asset.Asset{btcAsset, ethAsset, linkAsset, usdAsset, nopAsset},
		[]string{"XXX"},
	)
	oracle := pricing.NewStatic(map[string]decimal.Decimal{
		"BTC":                decimal.NewFromInt(50000),
		"ETH":                decimal.NewFromInt(3000),
		linkAsset.Identifier: decimal.NewFromInt(20),
		"USD":                decimal.NewFromInt(1),
	})

	client := NewClient(testCreds, WithBaseURL(server.URL))
	provider, err := NewProvider("coinbasepro", exchange.Deps{
		Assets:   resolver,
		Prices:   oracle,
		Messages: sink,
	}, client)
	require.NoError(t, err)
	return provider, sink
}

func TestNewProviderValidatesDeps(t *testing.T) {
	client := NewClient(testCreds)
	sink := messages.NewAggregator()
	resolver := asset.NewStaticResolver(nil, nil)
	oracle := pricing.NewStatic(nil)

	_, err := NewProvider("x", exchange.Deps{Prices: oracle, Messages: sink}, client)
	assert.ErrorContains(t, err, "asset resolver")

	_, err = NewProvider("x", exchange.Deps{Assets: resolver, Messages: sink}, client)
	assert.ErrorContains(t, err, "price oracle")

	_, err = NewProvider("x", exchange.Deps{Assets: resolver, Prices: oracle}, client)
	assert.ErrorContains(t, err, "message sink")

	_, err = NewProvider("x", exchange.Deps{Assets: resolver, Prices: oracle, Messages: sink}, nil)
	assert.ErrorContains(t, err, "client")
}

func TestProviderRegistryInit(t *testing.T) {
	deps := exchange.Deps{
		Assets:   asset.NewStaticResolver(nil, nil),
		Prices:   pricing.NewStatic(nil),
		Messages: messages.NewAggregator(),
	}
	provider, err := exchange.GetProvider("coinbasepro", &exchange.ProviderConfig{
		APIKey:     "key",
		APISecret:  testAPISecret,
		Passphrase: "pass",
	}, deps)
	require.NoError(t, err)
	assert.Equal(t, "inline", provider.Name())
}

func TestFirstConnectionLoadsCatalogOnce(t *testing.T) {
	var catalogQueries atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		catalogQueries.Add(1)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[{"id":"BTC-USD"},{"id":"ETH-USD"},{"id":""}]`))
	})

	provider, _ := newTestProvider(t, mux)
	ctx := context.Background()

	require.NoError(t, provider.FirstConnection(ctx))
	require.NoError(t, provider.FirstConnection(ctx))
	assert.Equal(t, int64(1), catalogQueries.Load(), "catalog must be fetched exactly once")

	assert.True(t, provider.knownProduct("BTC-USD"))
	assert.True(t, provider.knownProduct("ETH-USD"))
	assert.False(t, provider.knownProduct("DOGE-USD"))
	assert.False(t, provider.knownProduct(""), "entries without id are dropped")
}

func TestFirstConnectionFailureStaysUnloaded(t *testing.T) {
	var catalogQueries atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		if catalogQueries.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[{"id":"BTC-USD"}]`))
	})

	provider, _ := newTestProvider(t, mux)
	ctx := context.Background()

	require.Error(t, provider.FirstConnection(ctx), "first attempt fails")
	require.NoError(t, provider.FirstConnection(ctx), "retry succeeds")
	assert.True(t, provider.knownProduct("BTC-USD"))
	assert.Equal(t, int64(2), catalogQueries.Load())
}

func TestValidateAPIKey(t *testing.T) {
	tests := map[string]struct {
		status   int
		body     string
		ok       bool
		contains string
	}{
		"valid key": {
			status: http.StatusOK,
			body:   `[]`,
			ok:     true,
		},
		"missing view permission": {
			status:   http.StatusForbidden,
			body:     `{"message":"Forbidden"}`,
			contains: `"View" permission`,
		},
		"wrong passphrase": {
			status:   http.StatusBadRequest,
			body:     `{"message":"Invalid Passphrase"}`,
			contains: "passphrase for the given API key does not match",
		},
		"other remote failure": {
			status:   http.StatusInternalServerError,
			body:     `upstream exploded`,
			contains: "upstream exploded",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})

			provider, _ := newTestProvider(t, mux)
			ok, msg := provider.ValidateAPIKey(context.Background())
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Empty(t, msg)
			} else {
				assert.Contains(t, msg, tc.contains)
			}
		})
	}
}

func TestAccountCurrencyMapMemoized(t *testing.T) {
	var accountQueries atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
		accountQueries.Add(1)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[
			{"id":"a-btc","currency":"BTC","balance":"0"},
			{"id":"a-zzz","currency":"ZZZ","balance":"0"},
			{"id":"a-xxx","currency":"XXX","balance":"0"},
			{"id":"","currency":"ETH","balance":"0"}
		]`))
	})

	provider, sink := newTestProvider(t, mux)
	ctx := context.Background()

	first, err := provider.accountCurrencyMap(ctx)
	require.NoError(t, err)
	second, err := provider.accountCurrencyMap(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), accountQueries.Load(), "account map is fetched exactly once")
	assert.Len(t, first, 1)
	assert.Equal(t, btcAsset, first["a-btc"])
	assert.Len(t, second, 1)

	warnings := sink.ConsumeWarnings()
	require.Len(t, warnings, 3)
	assert.Contains(t, warnings[0], "unknown asset ZZZ")
	assert.Contains(t, warnings[1], "unsupported asset XXX")
	assert.Contains(t, warnings[2], "missing fields")
}
