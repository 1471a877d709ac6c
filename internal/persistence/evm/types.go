package evmpersist

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Transaction is one confirmed EVM transaction as stored in Postgres.
// Value and GasPrice are persisted as decimal strings so they survive
// amounts beyond 64 bits.
type Transaction struct {
	TxHash      common.Hash
	Timestamp   int64
	BlockNumber int64
	FromAddress common.Address
	// ToAddress is nil for contract deployments.
	ToAddress *common.Address
	Value     *big.Int
	Gas       uint64
	GasPrice  *big.Int
	GasUsed   uint64
	InputData []byte
	Nonce     uint64
}

// InternalTransaction is a value transfer executed inside a parent
// transaction's trace.
type InternalTransaction struct {
	ParentTxHash common.Hash
	TraceID      int64
	Timestamp    int64
	BlockNumber  int64
	FromAddress  common.Address
	ToAddress    *common.Address
	Value        *big.Int
}

// Receipt is the stored form of a transaction receipt with its logs.
type Receipt struct {
	TxHash common.Hash
	// ContractAddress is set for contract deployments only.
	ContractAddress *common.Address
	Status          bool
	Type            uint8
	Logs            []ReceiptLog
}

// ReceiptLog is one event log emitted by a transaction, topics in order.
type ReceiptLog struct {
	LogIndex uint
	Data     []byte
	Address  common.Address
	Removed  bool
	Topics   []common.Hash
}
