package evmpersist

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// TransactionsFilter narrows transaction reads. The zero value matches
// everything. Timestamp bounds are inclusive on both ends.
type TransactionsFilter struct {
	// Addresses matches transactions whose sender OR recipient is any of
	// the given addresses.
	Addresses []common.Address
	// FromTs / ToTs bound the transaction timestamp. Zero means unbounded.
	FromTs int64
	ToTs   int64

	Limit  int
	Offset int
}

// whereClause renders the filter's WHERE part with $N placeholders starting
// at firstArg. An empty filter renders an empty string.
func (f *TransactionsFilter) whereClause(firstArg int) (string, []any) {
	if f == nil {
		return "", nil
	}

	var (
		conditions []string
		bindings   []any
	)
	arg := firstArg

	if len(f.Addresses) > 0 {
		parts := make([]string, 0, len(f.Addresses))
		for _, address := range f.Addresses {
			parts = append(parts, fmt.Sprintf("(from_address = $%d OR to_address = $%d)", arg, arg))
			bindings = append(bindings, address.Hex())
			arg++
		}
		conditions = append(conditions, "("+strings.Join(parts, " OR ")+")")
	}
	if f.FromTs > 0 {
		conditions = append(conditions, fmt.Sprintf("timestamp >= $%d", arg))
		bindings = append(bindings, f.FromTs)
		arg++
	}
	if f.ToTs > 0 {
		conditions = append(conditions, fmt.Sprintf("timestamp <= $%d", arg))
		bindings = append(bindings, f.ToTs)
		arg++
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), bindings
}

// paginationClause renders ORDER BY / LIMIT / OFFSET continuing the
// placeholder numbering after the WHERE bindings.
func (f *TransactionsFilter) paginationClause(nextArg int) (string, []any) {
	clause := " ORDER BY timestamp DESC"
	var bindings []any
	if f == nil {
		return clause, nil
	}
	if f.Limit > 0 {
		clause += fmt.Sprintf(" LIMIT $%d", nextArg)
		bindings = append(bindings, f.Limit)
		nextArg++
	}
	if f.Offset > 0 {
		clause += fmt.Sprintf(" OFFSET $%d", nextArg)
		bindings = append(bindings, f.Offset)
	}
	return clause, bindings
}
