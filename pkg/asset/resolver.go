package asset

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownAsset indicates a symbol with no registry entry.
	ErrUnknownAsset = errors.New("asset: unknown asset")
	// ErrUnsupportedAsset indicates a symbol the application deliberately ignores.
	ErrUnsupportedAsset = errors.New("asset: unsupported asset")
)

// Resolver maps exchange-specific asset codes to registry assets.
type Resolver interface {
	// FromExchangeSymbol resolves a remote currency code. It fails with an
	// error wrapping ErrUnknownAsset or ErrUnsupportedAsset.
	FromExchangeSymbol(ctx context.Context, symbol string) (Asset, error)
}

// NormalizeSymbol canonicalises a remote currency code for lookups.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// StaticResolver resolves symbols from a fixed in-memory table.
type StaticResolver struct {
	bySymbol    map[string]Asset
	unsupported map[string]struct{}
}

// NewStaticResolver builds a resolver over the given assets. Symbols listed
// in unsupported resolve to ErrUnsupportedAsset even when an asset entry
// carries the same symbol.
func NewStaticResolver(assets []Asset, unsupported []string) *StaticResolver {
	r := &StaticResolver{
		bySymbol:    make(map[string]Asset, len(assets)),
		unsupported: make(map[string]struct{}, len(unsupported)),
	}
	for _, a := range assets {
		r.bySymbol[NormalizeSymbol(a.Symbol)] = a
	}
	for _, symbol := range unsupported {
		r.unsupported[NormalizeSymbol(symbol)] = struct{}{}
	}
	return r
}

// FromExchangeSymbol implements Resolver.
func (r *StaticResolver) FromExchangeSymbol(_ context.Context, symbol string) (Asset, error) {
	normalized := NormalizeSymbol(symbol)
	if normalized == "" {
		return Asset{}, fmt.Errorf("%w: empty symbol", ErrUnknownAsset)
	}
	if _, ok := r.unsupported[normalized]; ok {
		return Asset{}, fmt.Errorf("%w: %q", ErrUnsupportedAsset, symbol)
	}
	a, ok := r.bySymbol[normalized]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %q", ErrUnknownAsset, symbol)
	}
	return a, nil
}
