package logic

import (
	"context"
	"fmt"
	"sort"

	"github.com/zeromicro/go-zero/core/logx"

	"folio-api/internal/svc"
	"folio-api/internal/types"
)

type ExchangeBalancesLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewExchangeBalancesLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ExchangeBalancesLogic {
	return &ExchangeBalancesLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// ExchangeBalances queries the exchange live when a provider is configured
// for the location, persisting a snapshot on the way out. Without a provider
// it serves the last stored snapshot.
func (l *ExchangeBalancesLogic) ExchangeBalances(req *types.ExchangeBalancesRequest) (*types.ExchangeBalancesResponse, error) {
	provider, ok := l.svcCtx.ExchangeProviders[req.Location]
	if ok {
		if err := provider.FirstConnection(l.ctx); err != nil {
			return nil, fmt.Errorf("connect %s: %w", req.Location, err)
		}
		balances, err := provider.QueryBalances(l.ctx)
		if err != nil {
			return nil, fmt.Errorf("query %s balances: %w", req.Location, err)
		}

		if l.svcCtx.Ledger != nil {
			if err := l.svcCtx.Ledger.SaveBalancesSnapshot(l.ctx, req.Location, balances); err != nil {
				l.Errorf("exchangebalances: snapshot location=%s err=%v", req.Location, err)
			}
		}

		entries := make([]types.BalanceEntry, 0, len(balances))
		for a, balance := range balances {
			entries = append(entries, types.BalanceEntry{
				Asset:    a.Identifier,
				Amount:   balance.Amount.String(),
				USDValue: balance.USDValue.String(),
			})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Asset < entries[j].Asset })
		return &types.ExchangeBalancesResponse{
			Location: req.Location,
			Balances: entries,
			Live:     true,
		}, nil
	}

	if l.svcCtx.Ledger == nil {
		return nil, fmt.Errorf("unknown exchange location %q", req.Location)
	}
	records, err := l.svcCtx.Ledger.LatestBalances(l.ctx, req.Location)
	if err != nil {
		l.Errorf("exchangebalances: location=%s err=%v", req.Location, err)
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("unknown exchange location %q", req.Location)
	}

	entries := make([]types.BalanceEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, types.BalanceEntry{
			Asset:    record.Asset,
			Amount:   record.Amount,
			USDValue: record.USDValue,
		})
	}
	return &types.ExchangeBalancesResponse{
		Location:   req.Location,
		Balances:   entries,
		Live:       false,
		SnapshotTs: records[0].SnapshotTs,
	}, nil
}
