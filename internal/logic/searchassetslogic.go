package logic

import (
	"context"
	"errors"

	"github.com/zeromicro/go-zero/core/logx"

	assetpersist "folio-api/internal/persistence/assets"
	"folio-api/internal/svc"
	"folio-api/internal/types"
	"folio-api/pkg/asset"
)

// defaultSearchLimit caps a search when the request does not set one.
const defaultSearchLimit = 25

type SearchAssetsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewSearchAssetsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SearchAssetsLogic {
	return &SearchAssetsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *SearchAssetsLogic) SearchAssets(req *types.SearchAssetsRequest) (*types.SearchAssetsResponse, error) {
	if l.svcCtx.Assets == nil {
		return nil, errors.New("asset registry is not configured")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	results, err := l.svcCtx.Assets.Search(l.ctx, assetpersist.SearchQuery{
		Keyword:    req.Keyword,
		EvmChain:   req.EvmChain,
		SearchNfts: req.SearchNfts,
		Limit:      limit,
	})
	if err != nil {
		l.Errorf("searchassets: keyword=%q err=%v", req.Keyword, err)
		return nil, err
	}
	if results == nil {
		results = []asset.Asset{}
	}
	return &types.SearchAssetsResponse{Assets: results}, nil
}
