package logic

import (
	"context"
	"errors"
	"math"

	"github.com/zeromicro/go-zero/core/logx"

	ledgerpersist "folio-api/internal/persistence/ledger"
	"folio-api/internal/svc"
	"folio-api/internal/types"
)

type ExchangeTradesLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewExchangeTradesLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ExchangeTradesLogic {
	return &ExchangeTradesLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// historyWindow normalizes an optional [from, to] request window. A zero
// "to" means now-ish, expressed as the max timestamp.
func historyWindow(from, to int64) (int64, int64, error) {
	if to == 0 {
		to = math.MaxInt64
	}
	if from < 0 || to < from {
		return 0, 0, errors.New("invalid time window")
	}
	return from, to, nil
}

func (l *ExchangeTradesLogic) ExchangeTrades(req *types.ExchangeHistoryRequest) (*types.ExchangeTradesResponse, error) {
	if l.svcCtx.Ledger == nil {
		return nil, errors.New("ledger store is not configured")
	}
	from, to, err := historyWindow(req.From, req.To)
	if err != nil {
		return nil, err
	}

	entries, err := l.svcCtx.Ledger.TradesIn(l.ctx, req.Location, from, to)
	if err != nil {
		l.Errorf("exchangetrades: location=%s err=%v", req.Location, err)
		return nil, err
	}
	if entries == nil {
		entries = []ledgerpersist.TradeRecord{}
	}
	return &types.ExchangeTradesResponse{Entries: entries}, nil
}
