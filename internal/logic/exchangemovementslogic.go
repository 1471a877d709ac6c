package logic

import (
	"context"
	"errors"

	"github.com/zeromicro/go-zero/core/logx"

	ledgerpersist "folio-api/internal/persistence/ledger"
	"folio-api/internal/svc"
	"folio-api/internal/types"
)

type ExchangeMovementsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewExchangeMovementsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ExchangeMovementsLogic {
	return &ExchangeMovementsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *ExchangeMovementsLogic) ExchangeMovements(req *types.ExchangeHistoryRequest) (*types.ExchangeMovementsResponse, error) {
	if l.svcCtx.Ledger == nil {
		return nil, errors.New("ledger store is not configured")
	}
	from, to, err := historyWindow(req.From, req.To)
	if err != nil {
		return nil, err
	}

	entries, err := l.svcCtx.Ledger.MovementsIn(l.ctx, req.Location, from, to)
	if err != nil {
		l.Errorf("exchangemovements: location=%s err=%v", req.Location, err)
		return nil, err
	}
	if entries == nil {
		entries = []ledgerpersist.MovementRecord{}
	}
	return &types.ExchangeMovementsResponse{Entries: entries}, nil
}
