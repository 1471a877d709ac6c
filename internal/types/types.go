package types

import (
	ledgerpersist "folio-api/internal/persistence/ledger"
	"folio-api/pkg/asset"
)

type SearchAssetsRequest struct {
	Keyword    string `json:"keyword"`
	EvmChain   string `json:"evm_chain,optional"`
	SearchNfts bool   `json:"search_nfts,optional"`
	Limit      int    `json:"limit,optional"`
}

type SearchAssetsResponse struct {
	Assets []asset.Asset `json:"assets"`
}

type ExchangeHistoryRequest struct {
	Location string `path:"location"`
	From     int64  `form:"from,optional"`
	To       int64  `form:"to,optional"`
}

type ExchangeTradesResponse struct {
	Entries []ledgerpersist.TradeRecord `json:"entries"`
}

type ExchangeMovementsResponse struct {
	Entries []ledgerpersist.MovementRecord `json:"entries"`
}

type ExchangeBalancesRequest struct {
	Location string `path:"location"`
}

type BalanceEntry struct {
	Asset    string `json:"asset"`
	Amount   string `json:"amount"`
	USDValue string `json:"usd_value"`
}

type ExchangeBalancesResponse struct {
	Location string         `json:"location"`
	Balances []BalanceEntry `json:"balances"`
	// Live is false when the response was served from the last stored
	// snapshot instead of the exchange.
	Live       bool  `json:"live"`
	SnapshotTs int64 `json:"snapshot_ts,omitempty"`
}

type UpdateCredentialsRequest struct {
	Location   string `path:"location"`
	APIKey     string `json:"api_key,optional"`
	APISecret  string `json:"api_secret,optional"`
	Passphrase string `json:"passphrase,optional"`
}

type UpdateCredentialsResponse struct {
	Changed bool   `json:"changed"`
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

type ChainTransactionsRequest struct {
	// Addresses is a comma separated list of 0x addresses.
	Addresses string `form:"addresses,optional"`
	From      int64  `form:"from,optional"`
	To        int64  `form:"to,optional"`
	Limit     int    `form:"limit,optional"`
	Offset    int    `form:"offset,optional"`
}

type ChainTransaction struct {
	TxHash      string `json:"tx_hash"`
	Timestamp   int64  `json:"timestamp"`
	BlockNumber int64  `json:"block_number"`
	FromAddress string `json:"from_address"`
	ToAddress   string `json:"to_address,omitempty"`
	Value       string `json:"value"`
	Gas         uint64 `json:"gas"`
	GasPrice    string `json:"gas_price"`
	GasUsed     uint64 `json:"gas_used"`
	Nonce       uint64 `json:"nonce"`
}

type ChainTransactionsResponse struct {
	Entries []ChainTransaction `json:"entries"`
	// Total counts matching rows before pagination, capped by the free
	// tier limit for non-premium accounts.
	Total int `json:"entries_found"`
	// Limit is the free tier cap, -1 for premium accounts.
	Limit int `json:"entries_limit"`
}

type ChainReceiptRequest struct {
	TxHash string `path:"hash"`
}

type ReceiptLogEntry struct {
	LogIndex uint     `json:"log_index"`
	Address  string   `json:"address"`
	Data     string   `json:"data"`
	Topics   []string `json:"topics"`
	Removed  bool     `json:"removed"`
}

type ChainReceiptResponse struct {
	TxHash          string            `json:"tx_hash"`
	Status          bool              `json:"status"`
	Type            uint8             `json:"type"`
	ContractAddress string            `json:"contract_address,omitempty"`
	Logs            []ReceiptLogEntry `json:"logs"`
}

type MessagesResponse struct {
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
}
