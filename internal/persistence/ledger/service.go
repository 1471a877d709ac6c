// Package ledgerpersist stores the normalized records produced by the
// exchange ingestion clients: trades, asset movements and balance
// snapshots, plus the per-location sync ranges.
package ledgerpersist

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	cachekeys "folio-api/internal/cache"
	"folio-api/pkg/exchange"
)

// snapshotCache is the slice of the Redis client the snapshot cache needs.
type snapshotCache interface {
	GetCtx(ctx context.Context, key string) (string, error)
	SetexCtx(ctx context.Context, key, value string, seconds int) error
}

// Service persists normalized exchange output.
type Service struct {
	conn  sqlx.SqlConn
	cache snapshotCache
	ttl   cachekeys.TTLSet
	clock func() time.Time
}

// NewService wires the ledger store. Returns nil when the connection is
// missing.
func NewService(conn sqlx.SqlConn) *Service {
	if conn == nil {
		return nil
	}
	return &Service{conn: conn, clock: time.Now}
}

// WithSnapshotCache attaches a Redis-backed cache for latest-balances
// lookups. Snapshot writes refresh the cached entry.
func (s *Service) WithSnapshotCache(cache snapshotCache, ttl cachekeys.TTLSet) *Service {
	if s == nil || cache == nil {
		return s
	}
	s.cache = cache
	s.ttl = ttl
	return s
}

// TradeRecord is the stored form of a normalized trade. Assets are carried
// by identifier.
type TradeRecord struct {
	Timestamp  int64  `db:"timestamp" json:"timestamp"`
	Location   string `db:"location" json:"location"`
	BaseAsset  string `db:"base_asset" json:"base_asset"`
	QuoteAsset string `db:"quote_asset" json:"quote_asset"`
	Side       string `db:"side" json:"side"`
	Amount     string `db:"amount" json:"amount"`
	Rate       string `db:"rate" json:"rate"`
	Fee        string `db:"fee" json:"fee"`
	FeeAsset   string `db:"fee_asset" json:"fee_asset"`
	Link       string `db:"link" json:"link"`
	Notes      string `db:"notes" json:"notes,omitempty"`
}

// MovementRecord is the stored form of a normalized asset movement.
type MovementRecord struct {
	Timestamp     int64  `db:"timestamp" json:"timestamp"`
	Location      string `db:"location" json:"location"`
	Category      string `db:"category" json:"category"`
	Asset         string `db:"asset" json:"asset"`
	Amount        string `db:"amount" json:"amount"`
	Fee           string `db:"fee" json:"fee"`
	FeeAsset      string `db:"fee_asset" json:"fee_asset"`
	Address       string `db:"address" json:"address,omitempty"`
	TransactionID string `db:"transaction_id" json:"transaction_id,omitempty"`
	Link          string `db:"link" json:"link"`
}

// BalanceRecord is one asset row of a balances snapshot.
type BalanceRecord struct {
	Location   string `db:"location" json:"location"`
	Asset      string `db:"asset" json:"asset"`
	Amount     string `db:"amount" json:"amount"`
	USDValue   string `db:"usd_value" json:"usd_value"`
	SnapshotTs int64  `db:"snapshot_ts" json:"snapshot_ts"`
}

// AddTrades upserts trades keyed by (location, link). Re-ingesting the same
// fill is idempotent.
func (s *Service) AddTrades(ctx context.Context, location string, trades []exchange.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	const stmt = `
INSERT INTO exchange_trades (
    location, link, timestamp, base_asset, quote_asset, side, amount, rate, fee, fee_asset, notes
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (location, link) DO NOTHING;`

	return s.conn.TransactCtx(ctx, func(ctx context.Context, session sqlx.Session) error {
		for _, trade := range trades {
			if _, err := session.ExecCtx(ctx, stmt,
				location,
				trade.Link,
				trade.Timestamp,
				trade.BaseAsset.Identifier,
				trade.QuoteAsset.Identifier,
				string(trade.Side),
				trade.Amount.String(),
				trade.Rate.String(),
				trade.Fee.String(),
				trade.FeeAsset.Identifier,
				trade.Notes,
			); err != nil {
				return fmt.Errorf("ledgerpersist: insert trade %s: %w", trade.Link, err)
			}
		}
		return nil
	})
}

// AddMovements upserts movements keyed by (location, link, category).
func (s *Service) AddMovements(ctx context.Context, location string, movements []exchange.AssetMovement) error {
	if len(movements) == 0 {
		return nil
	}
	const stmt = `
INSERT INTO exchange_movements (
    location, link, category, timestamp, asset, amount, fee, fee_asset, address, transaction_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (location, link, category) DO NOTHING;`

	return s.conn.TransactCtx(ctx, func(ctx context.Context, session sqlx.Session) error {
		for _, movement := range movements {
			if _, err := session.ExecCtx(ctx, stmt,
				location,
				movement.Link,
				string(movement.Category),
				movement.Timestamp,
				movement.Asset.Identifier,
				movement.Amount.String(),
				movement.Fee.String(),
				movement.FeeAsset.Identifier,
				movement.Address,
				movement.TransactionID,
			); err != nil {
				return fmt.Errorf("ledgerpersist: insert movement %s: %w", movement.Link, err)
			}
		}
		return nil
	})
}

// SaveBalancesSnapshot stores one timestamped row per asset for the
// location's current balances.
func (s *Service) SaveBalancesSnapshot(ctx context.Context, location string, balances exchange.Balances) error {
	if len(balances) == 0 {
		return nil
	}
	const stmt = `
INSERT INTO balance_snapshots (location, asset, amount, usd_value, snapshot_ts)
VALUES ($1, $2, $3, $4, $5);`

	snapshotTs := s.clock().Unix()
	records := make([]BalanceRecord, 0, len(balances))
	for a, balance := range balances {
		records = append(records, BalanceRecord{
			Location:   location,
			Asset:      a.Identifier,
			Amount:     balance.Amount.String(),
			USDValue:   balance.USDValue.String(),
			SnapshotTs: snapshotTs,
		})
	}
	// Match the read order of LatestBalances.
	sort.Slice(records, func(i, j int) bool { return records[i].Asset < records[j].Asset })

	err := s.conn.TransactCtx(ctx, func(ctx context.Context, session sqlx.Session) error {
		for _, record := range records {
			if _, err := session.ExecCtx(ctx, stmt,
				record.Location,
				record.Asset,
				record.Amount,
				record.USDValue,
				record.SnapshotTs,
			); err != nil {
				return fmt.Errorf("ledgerpersist: insert balance %s/%s: %w", location, record.Asset, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.cacheSnapshot(ctx, location, records)
	return nil
}

// TradesIn returns trades in the inclusive window, newest first. Empty
// location matches all locations.
func (s *Service) TradesIn(ctx context.Context, location string, from, to int64) ([]TradeRecord, error) {
	query := `
SELECT timestamp, location, base_asset, quote_asset, side, amount, rate, fee, fee_asset, link, notes
FROM exchange_trades
WHERE timestamp >= $1 AND timestamp <= $2`
	bindings := []any{from, to}
	if location != "" {
		query += ` AND location = $3`
		bindings = append(bindings, location)
	}
	query += ` ORDER BY timestamp DESC`

	var rows []TradeRecord
	if err := s.conn.QueryRowsCtx(ctx, &rows, query, bindings...); err != nil {
		return nil, fmt.Errorf("ledgerpersist: query trades: %w", err)
	}
	return rows, nil
}

// MovementsIn returns movements in the inclusive window, newest first.
func (s *Service) MovementsIn(ctx context.Context, location string, from, to int64) ([]MovementRecord, error) {
	query := `
SELECT timestamp, location, category, asset, amount, fee, fee_asset, address, transaction_id, link
FROM exchange_movements
WHERE timestamp >= $1 AND timestamp <= $2`
	bindings := []any{from, to}
	if location != "" {
		query += ` AND location = $3`
		bindings = append(bindings, location)
	}
	query += ` ORDER BY timestamp DESC`

	var rows []MovementRecord
	if err := s.conn.QueryRowsCtx(ctx, &rows, query, bindings...); err != nil {
		return nil, fmt.Errorf("ledgerpersist: query movements: %w", err)
	}
	return rows, nil
}

// LatestBalances returns the most recent balances snapshot for the location.
// An empty result means no snapshot has been taken yet.
func (s *Service) LatestBalances(ctx context.Context, location string) ([]BalanceRecord, error) {
	if s.cache != nil {
		key := cachekeys.BalancesSnapshotKey(location)
		if raw, err := s.cache.GetCtx(ctx, key); err == nil && raw != "" {
			var cached []BalanceRecord
			if err := msgpack.Unmarshal([]byte(raw), &cached); err == nil {
				return cached, nil
			}
			logx.WithContext(ctx).Errorf("ledgerpersist: drop malformed cached snapshot key=%s", key)
		}
	}

	const query = `
SELECT location, asset, amount, usd_value, snapshot_ts
FROM balance_snapshots
WHERE location = $1 AND snapshot_ts = (
    SELECT MAX(snapshot_ts) FROM balance_snapshots WHERE location = $1
)
ORDER BY asset ASC`

	var rows []BalanceRecord
	if err := s.conn.QueryRowsCtx(ctx, &rows, query, location); err != nil {
		return nil, fmt.Errorf("ledgerpersist: query balances: %w", err)
	}
	s.cacheSnapshot(ctx, location, rows)
	return rows, nil
}

// cacheSnapshot stores the records under the location's snapshot key. Cache
// failures are logged and do not fail the caller.
func (s *Service) cacheSnapshot(ctx context.Context, location string, records []BalanceRecord) {
	if s.cache == nil || len(records) == 0 {
		return
	}
	ttl := cachekeys.BalancesSnapshotTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	payload, err := msgpack.Marshal(records)
	if err != nil {
		return
	}
	key := cachekeys.BalancesSnapshotKey(location)
	if err := s.cache.SetexCtx(ctx, key, string(payload), int(ttl.Seconds())); err != nil {
		logx.WithContext(ctx).Errorf("ledgerpersist: cache snapshot key=%s err=%v", key, err)
	}
}
