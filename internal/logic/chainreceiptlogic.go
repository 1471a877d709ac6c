package logic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zeromicro/go-zero/core/logx"

	"folio-api/internal/svc"
	"folio-api/internal/types"
)

type ChainReceiptLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewChainReceiptLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ChainReceiptLogic {
	return &ChainReceiptLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func parseTxHash(raw string) (common.Hash, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "0x") || len(raw) != 2+2*common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid transaction hash %q", raw)
	}
	return common.HexToHash(raw), nil
}

func (l *ChainReceiptLogic) ChainReceipt(req *types.ChainReceiptRequest) (*types.ChainReceiptResponse, error) {
	if l.svcCtx.EvmStore == nil {
		return nil, errors.New("chain store is not configured")
	}
	txHash, err := parseTxHash(req.TxHash)
	if err != nil {
		return nil, err
	}

	receipt, err := l.svcCtx.EvmStore.GetReceipt(l.ctx, txHash)
	if err != nil {
		l.Errorf("chainreceipt: hash=%s err=%v", txHash.Hex(), err)
		return nil, err
	}
	if receipt == nil {
		return nil, fmt.Errorf("no receipt stored for %s", txHash.Hex())
	}

	resp := &types.ChainReceiptResponse{
		TxHash: receipt.TxHash.Hex(),
		Status: receipt.Status,
		Type:   receipt.Type,
		Logs:   make([]types.ReceiptLogEntry, 0, len(receipt.Logs)),
	}
	if receipt.ContractAddress != nil {
		resp.ContractAddress = receipt.ContractAddress.Hex()
	}
	for _, log := range receipt.Logs {
		topics := make([]string, 0, len(log.Topics))
		for _, topic := range log.Topics {
			topics = append(topics, topic.Hex())
		}
		resp.Logs = append(resp.Logs, types.ReceiptLogEntry{
			LogIndex: log.LogIndex,
			Address:  log.Address.Hex(),
			Data:     "0x" + common.Bytes2Hex(log.Data),
			Topics:   topics,
			Removed:  log.Removed,
		})
	}
	return resp, nil
}
