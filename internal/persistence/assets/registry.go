// Package assetpersist backs the asset registry with Postgres: exchange
// symbol resolution, asset upserts and the keyword search used by the API.
package assetpersist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"
	gocache "github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	cachekeys "folio-api/internal/cache"
	"folio-api/pkg/asset"
)

// Service implements asset.Resolver on top of the assets tables.
type Service struct {
	conn           sqlx.SqlConn
	cache          gocache.Cache
	ttl            cachekeys.TTLSet
	treatEth2AsEth bool
}

// Config enumerates dependencies for the asset registry service.
type Config struct {
	SQLConn        sqlx.SqlConn
	Cache          gocache.Cache
	TTL            cachekeys.TTLSet
	TreatEth2AsEth bool
}

// NewService wires the registry. Returns nil when the connection is missing.
func NewService(cfg Config) *Service {
	if cfg.SQLConn == nil {
		return nil
	}
	return &Service{
		conn:           cfg.SQLConn,
		cache:          cfg.Cache,
		ttl:            cfg.TTL,
		treatEth2AsEth: cfg.TreatEth2AsEth,
	}
}

type assetRow struct {
	Identifier     string         `db:"identifier"`
	Name           string         `db:"name"`
	Symbol         string         `db:"symbol"`
	Type           string         `db:"asset_type"`
	EvmChain       sql.NullString `db:"evm_chain"`
	EvmAddress     sql.NullString `db:"evm_address"`
	CollectionName sql.NullString `db:"collection_name"`
}

func (r assetRow) toAsset() asset.Asset {
	return asset.Asset{
		Identifier:     r.Identifier,
		Name:           r.Name,
		Symbol:         r.Symbol,
		Type:           asset.Type(r.Type),
		EvmChain:       r.EvmChain.String,
		EvmAddress:     r.EvmAddress.String,
		CollectionName: r.CollectionName.String,
	}
}

// FromExchangeSymbol implements asset.Resolver. Symbols listed in the
// unsupported_symbols table resolve to asset.ErrUnsupportedAsset; symbols
// with no assets row resolve to asset.ErrUnknownAsset.
func (s *Service) FromExchangeSymbol(ctx context.Context, symbol string) (asset.Asset, error) {
	normalized := asset.NormalizeSymbol(symbol)
	if normalized == "" {
		return asset.Asset{}, fmt.Errorf("%w: empty symbol", asset.ErrUnknownAsset)
	}

	if s.cache != nil {
		var cached asset.Asset
		key := cachekeys.AssetBySymbolKey(normalized)
		if err := s.cache.GetCtx(ctx, key, &cached); err == nil && cached.Identifier != "" {
			return cached, nil
		}
	}

	var unsupported int
	if err := s.conn.QueryRowCtx(ctx, &unsupported,
		`SELECT COUNT(*) FROM unsupported_symbols WHERE symbol = $1`, normalized); err != nil {
		return asset.Asset{}, fmt.Errorf("assetpersist: query unsupported symbols: %w", err)
	}
	if unsupported > 0 {
		return asset.Asset{}, fmt.Errorf("%w: %q", asset.ErrUnsupportedAsset, symbol)
	}

	var row assetRow
	err := s.conn.QueryRowCtx(ctx, &row, `
SELECT identifier, name, symbol, asset_type, evm_chain, evm_address, collection_name
FROM assets WHERE UPPER(symbol) = $1`, normalized)
	switch {
	case err == nil:
	case errors.Is(err, sqlx.ErrNotFound):
		return asset.Asset{}, fmt.Errorf("%w: %q", asset.ErrUnknownAsset, symbol)
	default:
		return asset.Asset{}, fmt.Errorf("assetpersist: query asset by symbol: %w", err)
	}

	resolved := row.toAsset()
	s.cacheSymbol(ctx, normalized, resolved)
	return resolved, nil
}

// AssetByIdentifier fetches one asset. Returns asset.ErrUnknownAsset when
// the identifier is not registered.
func (s *Service) AssetByIdentifier(ctx context.Context, identifier string) (asset.Asset, error) {
	var row assetRow
	err := s.conn.QueryRowCtx(ctx, &row, `
SELECT identifier, name, symbol, asset_type, evm_chain, evm_address, collection_name
FROM assets WHERE identifier = $1`, identifier)
	switch {
	case err == nil:
		return row.toAsset(), nil
	case errors.Is(err, sqlx.ErrNotFound):
		return asset.Asset{}, fmt.Errorf("%w: %q", asset.ErrUnknownAsset, identifier)
	default:
		return asset.Asset{}, fmt.Errorf("assetpersist: query asset by identifier: %w", err)
	}
}

// UpsertAsset registers or refreshes one asset.
func (s *Service) UpsertAsset(ctx context.Context, a asset.Asset) error {
	const stmt = `
INSERT INTO assets (identifier, name, symbol, asset_type, evm_chain, evm_address, collection_name, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
ON CONFLICT (identifier) DO UPDATE SET
    name = EXCLUDED.name,
    symbol = EXCLUDED.symbol,
    asset_type = EXCLUDED.asset_type,
    evm_chain = EXCLUDED.evm_chain,
    evm_address = EXCLUDED.evm_address,
    collection_name = EXCLUDED.collection_name,
    updated_at = NOW();`
	if _, err := s.conn.ExecCtx(ctx, stmt,
		a.Identifier,
		a.Name,
		a.Symbol,
		string(a.Type),
		nullString(a.EvmChain),
		nullString(a.EvmAddress),
		nullString(a.CollectionName),
	); err != nil {
		return fmt.Errorf("assetpersist: upsert asset %s: %w", a.Identifier, err)
	}
	s.cacheSymbol(ctx, asset.NormalizeSymbol(a.Symbol), a)
	return nil
}

func (s *Service) cacheSymbol(ctx context.Context, normalized string, a asset.Asset) {
	if s.cache == nil || normalized == "" {
		return
	}
	key := cachekeys.AssetBySymbolKey(normalized)
	ttl := cachekeys.AssetBySymbolTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	if err := s.cache.SetWithExpireCtx(ctx, key, a, ttl); err != nil {
		logx.WithContext(ctx).Errorf("assetpersist: cache symbol key=%s err=%v", key, err)
	}
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
