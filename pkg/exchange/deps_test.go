package exchange_test

import (
	"github.com/shopspring/decimal"

	"folio-api/pkg/asset"
	"folio-api/pkg/exchange"
	"folio-api/pkg/messages"
	"folio-api/pkg/pricing"
)

// testDeps wires minimal in-memory collaborators for provider construction.
func testDeps() exchange.Deps {
	resolver := asset.NewStaticResolver([]asset.Asset{
		{Identifier: "BTC", Name: "Bitcoin", Symbol: "BTC", Type: asset.TypeOwnChain},
		{Identifier: "ETH", Name: "Ethereum", Symbol: "ETH", Type: asset.TypeOwnChain, EvmChain: "ethereum"},
		{Identifier: "USD", Name: "United States Dollar", Symbol: "USD", Type: asset.TypeFiat},
	}, nil)
	oracle := pricing.NewStatic(map[string]decimal.Decimal{
		"BTC": decimal.NewFromInt(20000),
		"ETH": decimal.NewFromInt(1500),
		"USD": decimal.NewFromInt(1),
	})
	return exchange.Deps{
		Assets:   resolver,
		Prices:   oracle,
		Messages: messages.NewAggregator(),
	}
}
