// Package evmpersist stores EVM transactions, internal transactions and
// receipts in Postgres. Reads tolerate per-row corruption: a row that fails
// to deserialize is reported to the message sink and skipped.
package evmpersist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/lib/pq"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"folio-api/pkg/messages"
)

const (
	// FreeTransactionLimit caps how many of the most recent transactions
	// non-premium reads may see.
	FreeTransactionLimit = 250

	// decodedMarker is the evm_tx_mappings value recorded once a receipt's
	// events have been decoded.
	decodedMarker = "decoded"

	uniqueViolation = "23505"
)

// ErrReceiptExists signals an attempt to insert a receipt twice.
var ErrReceiptExists = errors.New("evmpersist: receipt already exists")

// Store persists EVM chain data.
type Store struct {
	conn sqlx.SqlConn
	sink messages.Sink
}

// NewStore wires an EVM store. Returns nil when the connection is missing.
func NewStore(conn sqlx.SqlConn, sink messages.Sink) *Store {
	if conn == nil {
		return nil
	}
	return &Store{conn: conn, sink: sink}
}

// AddTransactions inserts transactions, ignoring ones already stored. When
// relevantAddress is given each transaction is also mapped to that address
// so per-address deletion can later tell shared transactions apart.
func (s *Store) AddTransactions(ctx context.Context, txs []Transaction, relevantAddress *common.Address) error {
	if len(txs) == 0 {
		return nil
	}
	const insertTx = `
INSERT INTO evm_transactions (
    tx_hash, timestamp, block_number, from_address, to_address,
    value, gas, gas_price, gas_used, input_data, nonce
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (tx_hash) DO NOTHING;`
	const insertMapping = `
INSERT INTO evm_address_mappings (address, tx_hash)
VALUES ($1, $2)
ON CONFLICT (address, tx_hash) DO NOTHING;`

	return s.conn.TransactCtx(ctx, func(ctx context.Context, session sqlx.Session) error {
		for _, tx := range txs {
			var toAddress sql.NullString
			if tx.ToAddress != nil {
				toAddress = sql.NullString{String: tx.ToAddress.Hex(), Valid: true}
			}
			if _, err := session.ExecCtx(ctx, insertTx,
				tx.TxHash.Bytes(),
				tx.Timestamp,
				tx.BlockNumber,
				tx.FromAddress.Hex(),
				toAddress,
				bigString(tx.Value),
				int64(tx.Gas),
				bigString(tx.GasPrice),
				int64(tx.GasUsed),
				tx.InputData,
				int64(tx.Nonce),
			); err != nil {
				return fmt.Errorf("evmpersist: insert transaction %s: %w", tx.TxHash, err)
			}
			if relevantAddress != nil {
				if _, err := session.ExecCtx(ctx, insertMapping, relevantAddress.Hex(), tx.TxHash.Bytes()); err != nil {
					return fmt.Errorf("evmpersist: map transaction %s to %s: %w", tx.TxHash, relevantAddress.Hex(), err)
				}
			}
		}
		return nil
	})
}

// AddInternalTransactions inserts trace-level transfers, ignoring duplicates.
func (s *Store) AddInternalTransactions(ctx context.Context, txs []InternalTransaction, relevantAddress *common.Address) error {
	if len(txs) == 0 {
		return nil
	}
	const insertTx = `
INSERT INTO evm_internal_transactions (
    parent_tx_hash, trace_id, timestamp, block_number, from_address, to_address, value
) VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (parent_tx_hash, trace_id) DO NOTHING;`
	const insertMapping = `
INSERT INTO evm_address_mappings (address, tx_hash)
VALUES ($1, $2)
ON CONFLICT (address, tx_hash) DO NOTHING;`

	return s.conn.TransactCtx(ctx, func(ctx context.Context, session sqlx.Session) error {
		for _, tx := range txs {
			var toAddress sql.NullString
			if tx.ToAddress != nil {
				toAddress = sql.NullString{String: tx.ToAddress.Hex(), Valid: true}
			}
			if _, err := session.ExecCtx(ctx, insertTx,
				tx.ParentTxHash.Bytes(),
				tx.TraceID,
				tx.Timestamp,
				tx.BlockNumber,
				tx.FromAddress.Hex(),
				toAddress,
				bigString(tx.Value),
			); err != nil {
				return fmt.Errorf("evmpersist: insert internal transaction %s/%d: %w", tx.ParentTxHash, tx.TraceID, err)
			}
			if relevantAddress != nil {
				if _, err := session.ExecCtx(ctx, insertMapping, relevantAddress.Hex(), tx.ParentTxHash.Bytes()); err != nil {
					return fmt.Errorf("evmpersist: map internal transaction %s to %s: %w", tx.ParentTxHash, relevantAddress.Hex(), err)
				}
			}
		}
		return nil
	})
}

type internalTxRow struct {
	ParentTxHash []byte         `db:"parent_tx_hash"`
	TraceID      int64          `db:"trace_id"`
	Timestamp    int64          `db:"timestamp"`
	BlockNumber  int64          `db:"block_number"`
	FromAddress  string         `db:"from_address"`
	ToAddress    sql.NullString `db:"to_address"`
	Value        string         `db:"value"`
}

// InternalTransactionsByParent returns all trace transfers under a parent
// transaction hash.
func (s *Store) InternalTransactionsByParent(ctx context.Context, parentHash common.Hash) ([]InternalTransaction, error) {
	const query = `
SELECT parent_tx_hash, trace_id, timestamp, block_number, from_address, to_address, value
FROM evm_internal_transactions
WHERE parent_tx_hash = $1
ORDER BY trace_id ASC`

	var rows []internalTxRow
	if err := s.conn.QueryRowsCtx(ctx, &rows, query, parentHash.Bytes()); err != nil {
		return nil, fmt.Errorf("evmpersist: query internal transactions: %w", err)
	}

	txs := make([]InternalTransaction, 0, len(rows))
	for _, row := range rows {
		value, ok := new(big.Int).SetString(row.Value, 10)
		if !ok {
			s.addError(fmt.Sprintf(
				"Error deserializing internal transaction %d of %#x from the DB. Skipping it.",
				row.TraceID, row.ParentTxHash))
			continue
		}
		txs = append(txs, InternalTransaction{
			ParentTxHash: common.BytesToHash(row.ParentTxHash),
			TraceID:      row.TraceID,
			Timestamp:    row.Timestamp,
			BlockNumber:  row.BlockNumber,
			FromAddress:  common.HexToAddress(row.FromAddress),
			ToAddress:    optionalAddress(row.ToAddress),
			Value:        value,
		})
	}
	return txs, nil
}

type transactionRow struct {
	TxHash      []byte         `db:"tx_hash"`
	Timestamp   int64          `db:"timestamp"`
	BlockNumber int64          `db:"block_number"`
	FromAddress string         `db:"from_address"`
	ToAddress   sql.NullString `db:"to_address"`
	Value       string         `db:"value"`
	Gas         int64          `db:"gas"`
	GasPrice    string         `db:"gas_price"`
	GasUsed     int64          `db:"gas_used"`
	InputData   []byte         `db:"input_data"`
	Nonce       int64          `db:"nonce"`
}

const transactionColumns = `tx_hash, timestamp, block_number, from_address, to_address, value, gas, gas_price, gas_used, input_data, nonce`

// Transactions returns transactions matching the filter, newest first.
// Without the premium flag the filter only sees the FreeTransactionLimit
// most recent transactions.
func (s *Store) Transactions(ctx context.Context, filter *TransactionsFilter, hasPremium bool) ([]Transaction, error) {
	var query string
	var args []any
	if hasPremium {
		where, bindings := filter.whereClause(1)
		query = `SELECT ` + transactionColumns + ` FROM evm_transactions ` + where
		args = bindings
	} else {
		// The free tier filters over a window of the most recent
		// transactions only; its LIMIT takes placeholder $1.
		where, bindings := filter.whereClause(2)
		query = `SELECT ` + transactionColumns + ` FROM (SELECT * FROM evm_transactions ORDER BY timestamp DESC LIMIT $1) AS recent ` + where
		args = append([]any{FreeTransactionLimit}, bindings...)
	}
	pagination, pageBindings := filter.paginationClause(len(args) + 1)
	query += pagination
	args = append(args, pageBindings...)

	var rows []transactionRow
	if err := s.conn.QueryRowsCtx(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("evmpersist: query transactions: %w", err)
	}

	txs := make([]Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := row.deserialize()
		if err != nil {
			s.addError(fmt.Sprintf(
				"Error deserializing EVM transaction from the DB. Skipping it. Error was: %v", err))
			continue
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// TransactionsAndLimitInfo is Transactions plus the total number of matches
// ignoring pagination, for API paging info.
func (s *Store) TransactionsAndLimitInfo(ctx context.Context, filter *TransactionsFilter, hasPremium bool) ([]Transaction, int, error) {
	txs, err := s.Transactions(ctx, filter, hasPremium)
	if err != nil {
		return nil, 0, err
	}

	var query string
	var args []any
	if hasPremium {
		where, bindings := filter.whereClause(1)
		query = `SELECT COUNT(*) FROM evm_transactions ` + where
		args = bindings
	} else {
		where, bindings := filter.whereClause(2)
		query = `SELECT COUNT(*) FROM (SELECT * FROM evm_transactions ORDER BY timestamp DESC LIMIT $1) AS recent ` + where
		args = append([]any{FreeTransactionLimit}, bindings...)
	}
	var total int
	if err := s.conn.QueryRowCtx(ctx, &total, query, args...); err != nil {
		return nil, 0, fmt.Errorf("evmpersist: count transactions: %w", err)
	}
	return txs, total, nil
}

func (r transactionRow) deserialize() (Transaction, error) {
	value, ok := new(big.Int).SetString(r.Value, 10)
	if !ok {
		return Transaction{}, fmt.Errorf("invalid value %q", r.Value)
	}
	gasPrice, ok := new(big.Int).SetString(r.GasPrice, 10)
	if !ok {
		return Transaction{}, fmt.Errorf("invalid gas price %q", r.GasPrice)
	}
	return Transaction{
		TxHash:      common.BytesToHash(r.TxHash),
		Timestamp:   r.Timestamp,
		BlockNumber: r.BlockNumber,
		FromAddress: common.HexToAddress(r.FromAddress),
		ToAddress:   optionalAddress(r.ToAddress),
		Value:       value,
		Gas:         uint64(r.Gas),
		GasPrice:    gasPrice,
		GasUsed:     uint64(r.GasUsed),
		InputData:   r.InputData,
		Nonce:       uint64(r.Nonce),
	}, nil
}

// HashesMissingReceipts returns distinct hashes of stored transactions that
// have no receipt yet. A nil filter considers all transactions.
func (s *Store) HashesMissingReceipts(ctx context.Context, filter *TransactionsFilter, limit int) ([]common.Hash, error) {
	query := `SELECT DISTINCT tx_hash FROM evm_transactions `
	where, bindings := filter.whereClause(1)
	if where != "" {
		query += where + ` AND `
	} else {
		query += `WHERE `
	}
	query += `tx_hash NOT IN (SELECT tx_hash FROM evm_receipts)`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(bindings)+1)
		bindings = append(bindings, limit)
	}
	return s.queryHashes(ctx, query, bindings...)
}

// HashesNotDecoded returns hashes whose receipt is stored but whose events
// have not been decoded yet.
func (s *Store) HashesNotDecoded(ctx context.Context, limit int) ([]common.Hash, error) {
	query := `
SELECT r.tx_hash FROM evm_receipts AS r
LEFT OUTER JOIN evm_tx_mappings AS m ON r.tx_hash = m.tx_hash AND m.value = $1
WHERE m.tx_hash IS NULL`
	bindings := []any{decodedMarker}
	if limit > 0 {
		query += ` LIMIT $2`
		bindings = append(bindings, limit)
	}
	return s.queryHashes(ctx, query, bindings...)
}

// MarkDecoded records that the receipt's events have been decoded.
func (s *Store) MarkDecoded(ctx context.Context, txHash common.Hash) error {
	const stmt = `
INSERT INTO evm_tx_mappings (tx_hash, value)
VALUES ($1, $2)
ON CONFLICT (tx_hash, value) DO NOTHING;`
	if _, err := s.conn.ExecCtx(ctx, stmt, txHash.Bytes(), decodedMarker); err != nil {
		return fmt.Errorf("evmpersist: mark decoded %s: %w", txHash, err)
	}
	return nil
}

func (s *Store) queryHashes(ctx context.Context, query string, args ...any) ([]common.Hash, error) {
	var raw [][]byte
	if err := s.conn.QueryRowsCtx(ctx, &raw, query, args...); err != nil {
		return nil, fmt.Errorf("evmpersist: query hashes: %w", err)
	}
	hashes := make([]common.Hash, 0, len(raw))
	for _, entry := range raw {
		if len(entry) != common.HashLength {
			logx.WithContext(ctx).Errorf("evmpersist: skip malformed tx hash %#x from the DB", entry)
			continue
		}
		hashes = append(hashes, common.BytesToHash(entry))
	}
	return hashes, nil
}

// AddReceipt stores a receipt as returned by the chain, with its logs and
// each log's topics in order. The transaction must already be stored.
// Inserting the same receipt twice surfaces ErrReceiptExists.
func (s *Store) AddReceipt(ctx context.Context, receipt *ethtypes.Receipt) error {
	if receipt == nil {
		return errors.New("evmpersist: nil receipt")
	}
	const insertReceipt = `
INSERT INTO evm_receipts (tx_hash, contract_address, status, type)
VALUES ($1, $2, $3, $4);`
	const insertLog = `
INSERT INTO evm_receipt_logs (tx_hash, log_index, data, address, removed)
VALUES ($1, $2, $3, $4, $5);`
	const insertTopic = `
INSERT INTO evm_receipt_log_topics (tx_hash, log_index, topic, topic_index)
VALUES ($1, $2, $3, $4);`

	var contractAddress sql.NullString
	if receipt.ContractAddress != (common.Address{}) {
		contractAddress = sql.NullString{String: receipt.ContractAddress.Hex(), Valid: true}
	}

	err := s.conn.TransactCtx(ctx, func(ctx context.Context, session sqlx.Session) error {
		if _, err := session.ExecCtx(ctx, insertReceipt,
			receipt.TxHash.Bytes(),
			contractAddress,
			receipt.Status == ethtypes.ReceiptStatusSuccessful,
			int16(receipt.Type),
		); err != nil {
			return err
		}
		for _, entry := range receipt.Logs {
			if _, err := session.ExecCtx(ctx, insertLog,
				receipt.TxHash.Bytes(),
				int64(entry.Index),
				entry.Data,
				entry.Address.Hex(),
				entry.Removed,
			); err != nil {
				return err
			}
			for idx, topic := range entry.Topics {
				if _, err := session.ExecCtx(ctx, insertTopic,
					receipt.TxHash.Bytes(),
					int64(entry.Index),
					topic.Bytes(),
					idx,
				); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrReceiptExists, receipt.TxHash)
		}
		return fmt.Errorf("evmpersist: insert receipt %s: %w", receipt.TxHash, err)
	}
	return nil
}

type receiptRow struct {
	TxHash          []byte         `db:"tx_hash"`
	ContractAddress sql.NullString `db:"contract_address"`
	Status          bool           `db:"status"`
	Type            int16          `db:"type"`
}

type receiptLogRow struct {
	LogIndex int64  `db:"log_index"`
	Data     []byte `db:"data"`
	Address  string `db:"address"`
	Removed  bool   `db:"removed"`
}

// GetReceipt reassembles a stored receipt with its logs, topics ordered by
// topic index. Returns nil without error when no receipt is stored.
func (s *Store) GetReceipt(ctx context.Context, txHash common.Hash) (*Receipt, error) {
	var row receiptRow
	err := s.conn.QueryRowCtx(ctx, &row,
		`SELECT tx_hash, contract_address, status, type FROM evm_receipts WHERE tx_hash = $1`,
		txHash.Bytes())
	switch {
	case err == nil:
	case errors.Is(err, sqlx.ErrNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("evmpersist: query receipt: %w", err)
	}

	receipt := &Receipt{
		TxHash:          txHash,
		ContractAddress: optionalAddress(row.ContractAddress),
		Status:          row.Status,
		Type:            uint8(row.Type),
	}

	var logRows []receiptLogRow
	if err := s.conn.QueryRowsCtx(ctx, &logRows,
		`SELECT log_index, data, address, removed FROM evm_receipt_logs WHERE tx_hash = $1 ORDER BY log_index ASC`,
		txHash.Bytes()); err != nil {
		return nil, fmt.Errorf("evmpersist: query receipt logs: %w", err)
	}

	for _, logRow := range logRows {
		entry := ReceiptLog{
			LogIndex: uint(logRow.LogIndex),
			Data:     logRow.Data,
			Address:  common.HexToAddress(logRow.Address),
			Removed:  logRow.Removed,
		}
		var topics [][]byte
		if err := s.conn.QueryRowsCtx(ctx, &topics,
			`SELECT topic FROM evm_receipt_log_topics WHERE tx_hash = $1 AND log_index = $2 ORDER BY topic_index ASC`,
			txHash.Bytes(), logRow.LogIndex); err != nil {
			return nil, fmt.Errorf("evmpersist: query receipt log topics: %w", err)
		}
		for _, topic := range topics {
			entry.Topics = append(entry.Topics, common.BytesToHash(topic))
		}
		receipt.Logs = append(receipt.Logs, entry)
	}
	return receipt, nil
}

// Purge deletes all EVM transaction data and the matching used query ranges.
// Receipts, logs, topics and mappings go with the transactions via cascade.
func (s *Store) Purge(ctx context.Context) error {
	return s.conn.TransactCtx(ctx, func(ctx context.Context, session sqlx.Session) error {
		if _, err := session.ExecCtx(ctx,
			`DELETE FROM used_query_ranges WHERE name LIKE $1 ESCAPE $2`,
			`evmtxs\_%`, `\`); err != nil {
			return fmt.Errorf("evmpersist: purge query ranges: %w", err)
		}
		if _, err := session.ExecCtx(ctx, `DELETE FROM evm_transactions`); err != nil {
			return fmt.Errorf("evmpersist: purge transactions: %w", err)
		}
		return nil
	})
}

// DeleteForAddress removes the address's query range and every transaction
// touched only by this address. Transactions shared with other tracked
// addresses stay. Decoded markers of removed transactions are cleared so
// re-added transactions decode again.
func (s *Store) DeleteForAddress(ctx context.Context, address common.Address) error {
	return s.conn.TransactCtx(ctx, func(ctx context.Context, session sqlx.Session) error {
		if _, err := session.ExecCtx(ctx,
			`DELETE FROM used_query_ranges WHERE name = $1`,
			fmt.Sprintf("evmtxs_%s", address.Hex())); err != nil {
			return fmt.Errorf("evmpersist: delete query range: %w", err)
		}

		var hashes [][]byte
		if err := session.QueryRowsCtx(ctx, &hashes, `
SELECT tx_hash FROM evm_address_mappings WHERE address = $1 AND tx_hash NOT IN (
    SELECT tx_hash FROM evm_address_mappings WHERE address != $1
)`, address.Hex()); err != nil {
			return fmt.Errorf("evmpersist: collect exclusive hashes: %w", err)
		}

		for _, hash := range hashes {
			if _, err := session.ExecCtx(ctx, `DELETE FROM evm_transactions WHERE tx_hash = $1`, hash); err != nil {
				return fmt.Errorf("evmpersist: delete transaction %#x: %w", hash, err)
			}
			if _, err := session.ExecCtx(ctx,
				`DELETE FROM evm_tx_mappings WHERE tx_hash = $1 AND value = $2`,
				hash, decodedMarker); err != nil {
				return fmt.Errorf("evmpersist: delete decode marker %#x: %w", hash, err)
			}
		}

		// Drop the now dangling mappings for this address.
		if _, err := session.ExecCtx(ctx,
			`DELETE FROM evm_address_mappings WHERE address = $1`, address.Hex()); err != nil {
			return fmt.Errorf("evmpersist: delete address mappings: %w", err)
		}
		return nil
	})
}

func (s *Store) addError(msg string) {
	if s.sink == nil {
		return
	}
	s.sink.AddError(msg)
}

func optionalAddress(value sql.NullString) *common.Address {
	if !value.Valid || value.String == "" {
		return nil
	}
	address := common.HexToAddress(value.String)
	return &address
}

func bigString(value *big.Int) string {
	if value == nil {
		return "0"
	}
	return value.String()
}
