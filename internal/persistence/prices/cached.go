package pricepersist

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/redis"

	cachekeys "folio-api/internal/cache"
	"folio-api/pkg/asset"
	"folio-api/pkg/pricing"
)

// cachedQuote is the msgpack payload stored per asset identifier.
type cachedQuote struct {
	Price string `msgpack:"p"`
	TsMs  int64  `msgpack:"t"`
}

// Cached decorates an oracle with a Redis cache. Cache failures degrade to
// the inner oracle and never fail the lookup.
type Cached struct {
	inner pricing.Oracle
	rds   *redis.Redis
	ttl   time.Duration
	clock func() time.Time
}

// NewCached wraps inner with a Redis quote cache. When rds is nil the inner
// oracle is returned unwrapped.
func NewCached(inner pricing.Oracle, rds *redis.Redis, ttl cachekeys.TTLSet) pricing.Oracle {
	if rds == nil {
		return inner
	}
	return &Cached{
		inner: inner,
		rds:   rds,
		ttl:   cachekeys.PriceTTL(ttl),
		clock: time.Now,
	}
}

// USDPrice implements pricing.Oracle.
func (c *Cached) USDPrice(ctx context.Context, a asset.Asset) (decimal.Decimal, error) {
	key := cachekeys.PriceLatestKey(a.Identifier)

	if raw, err := c.rds.GetCtx(ctx, key); err == nil && raw != "" {
		var quote cachedQuote
		if err := msgpack.Unmarshal([]byte(raw), &quote); err == nil {
			if price, err := decimal.NewFromString(quote.Price); err == nil {
				return price, nil
			}
		}
		logx.WithContext(ctx).Errorf("pricepersist: drop malformed cached quote key=%s", key)
	}

	price, err := c.inner.USDPrice(ctx, a)
	if err != nil {
		return decimal.Zero, err
	}

	if c.ttl > 0 {
		payload, err := msgpack.Marshal(cachedQuote{
			Price: price.String(),
			TsMs:  c.clock().UnixMilli(),
		})
		if err == nil {
			if err := c.rds.SetexCtx(ctx, key, string(payload), int(c.ttl.Seconds())); err != nil {
				logx.WithContext(ctx).Errorf("pricepersist: cache quote key=%s err=%v", key, err)
			}
		}
	}
	return price, nil
}
