// Package pricing resolves USD prices for portfolio assets. Oracles are
// composable; the usual deployment stacks a cache over a database store
// over one or more remote or static sources.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/logx"

	"folio-api/pkg/asset"
)

// ErrNoPrice indicates the oracle has no usable quote for the asset.
var ErrNoPrice = errors.New("pricing: no price found")

// Oracle resolves the current USD price of an asset.
type Oracle interface {
	USDPrice(ctx context.Context, a asset.Asset) (decimal.Decimal, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, a asset.Asset) (decimal.Decimal, error)

// USDPrice implements Oracle.
func (f OracleFunc) USDPrice(ctx context.Context, a asset.Asset) (decimal.Decimal, error) {
	return f(ctx, a)
}

// Static serves fixed quotes keyed by asset identifier. Useful for fiat
// pegs, tests and air-gapped deployments.
type Static struct {
	prices map[string]decimal.Decimal
}

// NewStatic builds a static oracle from identifier to price.
func NewStatic(prices map[string]decimal.Decimal) *Static {
	cloned := make(map[string]decimal.Decimal, len(prices))
	for id, price := range prices {
		cloned[id] = price
	}
	return &Static{prices: cloned}
}

// USDPrice implements Oracle.
func (s *Static) USDPrice(_ context.Context, a asset.Asset) (decimal.Decimal, error) {
	price, ok := s.prices[a.Identifier]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNoPrice, a.Identifier)
	}
	return price, nil
}

// Chain tries each oracle in order and returns the first quote. A failing
// oracle is logged and skipped so a degraded source never hides the next one.
type Chain []Oracle

// USDPrice implements Oracle.
func (c Chain) USDPrice(ctx context.Context, a asset.Asset) (decimal.Decimal, error) {
	var lastErr error
	for _, oracle := range c {
		price, err := oracle.USDPrice(ctx, a)
		if err == nil {
			return price, nil
		}
		if !errors.Is(err, ErrNoPrice) {
			logx.WithContext(ctx).Errorf("pricing: oracle failed asset=%s err=%v", a.Identifier, err)
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: %s", ErrNoPrice, a.Identifier)
	}
	return decimal.Zero, lastErr
}
