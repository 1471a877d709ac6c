package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"folio-api/internal/svc"
	"folio-api/internal/types"
)

type MessagesLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewMessagesLogic(ctx context.Context, svcCtx *svc.ServiceContext) *MessagesLogic {
	return &MessagesLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Messages drains the warnings and errors accumulated since the last call.
func (l *MessagesLogic) Messages() (*types.MessagesResponse, error) {
	warnings := l.svcCtx.Messages.ConsumeWarnings()
	errs := l.svcCtx.Messages.ConsumeErrors()
	if warnings == nil {
		warnings = []string{}
	}
	if errs == nil {
		errs = []string{}
	}
	return &types.MessagesResponse{Warnings: warnings, Errors: errs}, nil
}
