package logic

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zeromicro/go-zero/core/logx"

	evmpersist "folio-api/internal/persistence/evm"
	"folio-api/internal/svc"
	"folio-api/internal/types"
)

type ChainTransactionsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewChainTransactionsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ChainTransactionsLogic {
	return &ChainTransactionsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func parseAddressList(raw string) ([]common.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	addresses := make([]common.Address, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if !common.IsHexAddress(part) {
			return nil, fmt.Errorf("invalid address %q", part)
		}
		addresses = append(addresses, common.HexToAddress(part))
	}
	return addresses, nil
}

func bigToString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func (l *ChainTransactionsLogic) ChainTransactions(req *types.ChainTransactionsRequest) (*types.ChainTransactionsResponse, error) {
	if l.svcCtx.EvmStore == nil {
		return nil, errors.New("chain store is not configured")
	}

	addresses, err := parseAddressList(req.Addresses)
	if err != nil {
		return nil, err
	}
	if req.From < 0 || (req.To != 0 && req.To < req.From) {
		return nil, errors.New("invalid time window")
	}

	filter := &evmpersist.TransactionsFilter{
		Addresses: addresses,
		FromTs:    req.From,
		ToTs:      req.To,
		Limit:     req.Limit,
		Offset:    req.Offset,
	}

	premium := l.svcCtx.Config.Premium
	txs, total, err := l.svcCtx.EvmStore.TransactionsAndLimitInfo(l.ctx, filter, premium)
	if err != nil {
		l.Errorf("chaintransactions: err=%v", err)
		return nil, err
	}

	entries := make([]types.ChainTransaction, 0, len(txs))
	for _, tx := range txs {
		entry := types.ChainTransaction{
			TxHash:      tx.TxHash.Hex(),
			Timestamp:   tx.Timestamp,
			BlockNumber: tx.BlockNumber,
			FromAddress: tx.FromAddress.Hex(),
			Value:       bigToString(tx.Value),
			Gas:         tx.Gas,
			GasPrice:    bigToString(tx.GasPrice),
			GasUsed:     tx.GasUsed,
			Nonce:       tx.Nonce,
		}
		if tx.ToAddress != nil {
			entry.ToAddress = tx.ToAddress.Hex()
		}
		entries = append(entries, entry)
	}

	limit := -1
	if !premium {
		limit = evmpersist.FreeTransactionLimit
	}
	return &types.ChainTransactionsResponse{
		Entries: entries,
		Total:   total,
		Limit:   limit,
	}, nil
}
