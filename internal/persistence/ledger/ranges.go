package ledgerpersist

import (
	"context"
	"errors"
	"fmt"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

// RangeName builds the used-query-range key for a location and record kind,
// e.g. "coinbasepro_trades".
func RangeName(location, kind string) string {
	return fmt.Sprintf("%s_%s", location, kind)
}

// QueryRange is the persisted [Start, End] window of already ingested
// history for one range name.
type QueryRange struct {
	Start int64 `db:"start_ts"`
	End   int64 `db:"end_ts"`
}

// GetQueryRange returns the stored range and whether one exists.
func (s *Service) GetQueryRange(ctx context.Context, name string) (QueryRange, bool, error) {
	var r QueryRange
	err := s.conn.QueryRowCtx(ctx, &r,
		`SELECT start_ts, end_ts FROM used_query_ranges WHERE name = $1`, name)
	switch {
	case err == nil:
		return r, true, nil
	case errors.Is(err, sqlx.ErrNotFound):
		return QueryRange{}, false, nil
	default:
		return QueryRange{}, false, fmt.Errorf("ledgerpersist: query range %s: %w", name, err)
	}
}

// SetQueryRange records the ingested window for a range name.
func (s *Service) SetQueryRange(ctx context.Context, name string, r QueryRange) error {
	const stmt = `
INSERT INTO used_query_ranges (name, start_ts, end_ts)
VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE SET
    start_ts = EXCLUDED.start_ts,
    end_ts = EXCLUDED.end_ts;`
	if _, err := s.conn.ExecCtx(ctx, stmt, name, r.Start, r.End); err != nil {
		return fmt.Errorf("ledgerpersist: set range %s: %w", name, err)
	}
	return nil
}
