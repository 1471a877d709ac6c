// Package pricepersist reads and writes the stored USD quotes backing the
// database price oracle.
package pricepersist

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"folio-api/pkg/asset"
	"folio-api/pkg/pricing"
)

// Service implements pricing.Oracle over the price_latest table.
type Service struct {
	conn sqlx.SqlConn
}

// NewService wires the database oracle. Returns nil when the connection is
// missing.
func NewService(conn sqlx.SqlConn) *Service {
	if conn == nil {
		return nil
	}
	return &Service{conn: conn}
}

// USDPrice implements pricing.Oracle. Assets with no stored quote fail with
// pricing.ErrNoPrice.
func (s *Service) USDPrice(ctx context.Context, a asset.Asset) (decimal.Decimal, error) {
	var raw string
	err := s.conn.QueryRowCtx(ctx, &raw,
		`SELECT price FROM price_latest WHERE identifier = $1`, a.Identifier)
	switch {
	case err == nil:
	case errors.Is(err, sqlx.ErrNotFound):
		return decimal.Zero, fmt.Errorf("%w: %s", pricing.ErrNoPrice, a.Identifier)
	default:
		return decimal.Zero, fmt.Errorf("pricepersist: query price: %w", err)
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("pricepersist: stored price for %s is invalid: %w", a.Identifier, err)
	}
	return price, nil
}

// SavePrice upserts the latest stored USD quote for an asset.
func (s *Service) SavePrice(ctx context.Context, identifier string, price decimal.Decimal, tsMs int64) error {
	const stmt = `
INSERT INTO price_latest (identifier, price, ts_ms, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (identifier) DO UPDATE SET
    price = EXCLUDED.price,
    ts_ms = EXCLUDED.ts_ms,
    updated_at = NOW();`
	if _, err := s.conn.ExecCtx(ctx, stmt, identifier, price.String(), tsMs); err != nil {
		return fmt.Errorf("pricepersist: save price %s: %w", identifier, err)
	}
	return nil
}
