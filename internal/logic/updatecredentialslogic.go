package logic

import (
	"context"
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"

	"folio-api/internal/svc"
	"folio-api/internal/types"
	"folio-api/pkg/exchange"
)

type UpdateCredentialsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewUpdateCredentialsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *UpdateCredentialsLogic {
	return &UpdateCredentialsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// UpdateCredentials swaps the provider's key material and validates the new
// keys against the remote. Empty request fields keep the current value.
func (l *UpdateCredentialsLogic) UpdateCredentials(req *types.UpdateCredentialsRequest) (*types.UpdateCredentialsResponse, error) {
	provider, ok := l.svcCtx.ExchangeProviders[req.Location]
	if !ok {
		return nil, fmt.Errorf("unknown exchange location %q", req.Location)
	}

	update := exchange.CredentialsUpdate{}
	if req.APIKey != "" {
		update.APIKey = &req.APIKey
	}
	if req.APISecret != "" {
		update.APISecret = &req.APISecret
	}
	if req.Passphrase != "" {
		update.Passphrase = &req.Passphrase
	}

	changed := provider.UpdateCredentials(update)
	valid, message := provider.ValidateAPIKey(l.ctx)
	if !valid {
		l.Infof("updatecredentials: location=%s rejected", req.Location)
	}
	return &types.UpdateCredentialsResponse{
		Changed: changed,
		Valid:   valid,
		Message: message,
	}, nil
}
