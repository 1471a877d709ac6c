package coinbasepro

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio-api/pkg/exchange"
)

func TestQueryTradeHistory(t *testing.T) {
	const (
		windowStart = int64(1577836800) // 2020-01-01T00:00:00Z
		windowEnd   = int64(1577923200) // 2020-01-02T00:00:00Z
	)

	var mu sync.Mutex
	fillQueries := make(map[string]int)

	mux := http.NewServeMux()
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[{"id":"BTC-USD"},{"id":"BTCUSD"},{"id":"ZZZ-USD"}]`))
	})
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "done", r.URL.Query().Get("status"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[
			{"id":"o1","product_id":"BTC-USD"},
			{"id":"o2","product_id":"BTC-USD"},
			{"id":"o3","product_id":"DOGE-USD"},
			{"id":"o4","product_id":"BTCUSD"},
			{"id":"o5","product_id":"ZZZ-USD"},
			{"id":"o6"}
		]`))
	})
	mux.HandleFunc("/fills", func(w http.ResponseWriter, r *http.Request) {
		productID := r.URL.Query().Get("product_id")
		mu.Lock()
		fillQueries[productID]++
		mu.Unlock()

		w.WriteHeader(http.StatusOK)
		if productID != "BTC-USD" {
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[
			{"trade_id":74,"product_id":"BTC-USD","order_id":"o1","created_at":"2020-01-01T12:00:00Z",
			 "side":"buy","size":"0.02","price":"5000.5","fee":"0.01"},
			{"trade_id":75,"product_id":"BTC-USD","order_id":"o1","created_at":"2020-01-03T00:00:00Z",
			 "side":"buy","size":"1","price":"5000"},
			{"trade_id":76,"product_id":"BTC-USD","created_at":"2020-01-01T12:00:00Z",
			 "side":"buy","size":"1","price":"5000"}
		]`))
	})

	provider, sink := newTestProvider(t, mux)

	trades, err := provider.QueryTradeHistory(context.Background(), windowStart, windowEnd)
	require.NoError(t, err)

	require.Len(t, trades, 1)
	trade := trades[0]
	assert.Equal(t, int64(1577880000), trade.Timestamp)
	assert.Equal(t, "coinbasepro", trade.Location)
	assert.Equal(t, btcAsset, trade.BaseAsset)
	assert.Equal(t, usdAsset, trade.QuoteAsset)
	assert.Equal(t, exchange.TradeSideBuy, trade.Side)
	assert.True(t, trade.Amount.Equal(decimal.RequireFromString("0.02")), "got amount %s", trade.Amount)
	assert.True(t, trade.Rate.Equal(decimal.RequireFromString("5000.5")), "got rate %s", trade.Rate)
	assert.True(t, trade.Fee.Equal(decimal.RequireFromString("0.01")))
	assert.Equal(t, usdAsset, trade.FeeAsset, "the fee currency is the quote asset")
	assert.Equal(t, "74_o1", trade.Link)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, fillQueries["BTC-USD"], "one fills query per traded product")
	assert.Zero(t, fillQueries["DOGE-USD"], "delisted products are not queried")

	warnings := sink.ConsumeWarnings()
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "unprocessable coinbasepro pair BTCUSD")
	assert.Contains(t, warnings[1], "pair ZZZ-USD with unknown asset")

	errs := sink.ConsumeErrors()
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "Failed to deserialize a coinbasepro trade")
	assert.Contains(t, errs[1], "lacks a product_id")
}
