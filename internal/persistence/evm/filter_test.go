package evmpersist

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestWhereClause(t *testing.T) {
	addr1 := common.HexToAddress("0x1111111111111111111111111111111111111111")
	addr2 := common.HexToAddress("0x2222222222222222222222222222222222222222")

	tests := map[string]struct {
		filter       *TransactionsFilter
		firstArg     int
		wantClause   string
		wantBindings []any
	}{
		"nil filter": {
			filter:     nil,
			firstArg:   1,
			wantClause: "",
		},
		"empty filter": {
			filter:     &TransactionsFilter{},
			firstArg:   1,
			wantClause: "",
		},
		"single address": {
			filter:       &TransactionsFilter{Addresses: []common.Address{addr1}},
			firstArg:     1,
			wantClause:   "WHERE ((from_address = $1 OR to_address = $1))",
			wantBindings: []any{addr1.Hex()},
		},
		"two addresses with window": {
			filter: &TransactionsFilter{
				Addresses: []common.Address{addr1, addr2},
				FromTs:    100,
				ToTs:      200,
			},
			firstArg: 1,
			wantClause: "WHERE ((from_address = $1 OR to_address = $1) OR " +
				"(from_address = $2 OR to_address = $2)) AND timestamp >= $3 AND timestamp <= $4",
			wantBindings: []any{addr1.Hex(), addr2.Hex(), int64(100), int64(200)},
		},
		"offset numbering for the free tier subquery": {
			filter:       &TransactionsFilter{FromTs: 100},
			firstArg:     2,
			wantClause:   "WHERE timestamp >= $2",
			wantBindings: []any{int64(100)},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			clause, bindings := tc.filter.whereClause(tc.firstArg)
			require.Equal(t, tc.wantClause, clause)
			require.Equal(t, tc.wantBindings, bindings)
		})
	}
}

func TestPaginationClause(t *testing.T) {
	clause, bindings := (&TransactionsFilter{Limit: 10, Offset: 20}).paginationClause(3)
	require.Equal(t, " ORDER BY timestamp DESC LIMIT $3 OFFSET $4", clause)
	require.Equal(t, []any{10, 20}, bindings)

	clause, bindings = (&TransactionsFilter{}).paginationClause(1)
	require.Equal(t, " ORDER BY timestamp DESC", clause)
	require.Empty(t, bindings)

	clause, bindings = (*TransactionsFilter)(nil).paginationClause(1)
	require.Equal(t, " ORDER BY timestamp DESC", clause)
	require.Empty(t, bindings)
}

func TestTransactionRowDeserialize(t *testing.T) {
	hash := common.HexToHash("0xabc1")
	row := transactionRow{
		TxHash:      hash.Bytes(),
		Timestamp:   1600000000,
		BlockNumber: 12345,
		FromAddress: "0x1111111111111111111111111111111111111111",
		Value:       "31415926535897932384626433832795",
		Gas:         21000,
		GasPrice:    "20000000000",
		GasUsed:     21000,
		Nonce:       7,
	}

	tx, err := row.deserialize()
	require.NoError(t, err)
	require.Equal(t, hash, tx.TxHash)
	require.Nil(t, tx.ToAddress)
	require.Equal(t, "31415926535897932384626433832795", tx.Value.String())
	require.Equal(t, uint64(21000), tx.Gas)
	require.Equal(t, uint64(7), tx.Nonce)

	row.Value = "not-a-number"
	_, err = row.deserialize()
	require.Error(t, err)
}
