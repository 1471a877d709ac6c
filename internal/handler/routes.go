package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest"

	"folio-api/internal/svc"
)

func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodPost,
				Path:    "/assets/search",
				Handler: SearchAssetsHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/exchanges/:location/trades",
				Handler: ExchangeTradesHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/exchanges/:location/movements",
				Handler: ExchangeMovementsHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/exchanges/:location/balances",
				Handler: ExchangeBalancesHandler(serverCtx),
			},
			{
				Method:  http.MethodPut,
				Path:    "/exchanges/:location/credentials",
				Handler: UpdateCredentialsHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/chain/transactions",
				Handler: ChainTransactionsHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/chain/receipts/:hash",
				Handler: ChainReceiptHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/messages",
				Handler: MessagesHandler(serverCtx),
			},
		},
		rest.WithPrefix("/api/v1"),
	)
}
