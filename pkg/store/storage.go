package store

import (
	"errors"

	"github.com/aleksaelezovic/hexastore/pkg/triple"
)

var (
	ErrNotFound       = errors.New("key not found")
	ErrTransactionRO  = errors.New("transaction is read-only")
	ErrIteratorClosed = errors.New("iterator closed")

	// Returned (wrapped) by the corresponding TripleStore operations
	ErrOpen   = errors.New("open failed")
	ErrWrite  = errors.New("write failed")
	ErrRead   = errors.New("read failed")
	ErrDecode = errors.New("decode failed")
)

// Storage is the interface for the underlying key-value store
type Storage interface {
	// Begin starts a new transaction
	Begin(writable bool) (Transaction, error)

	// Close closes the storage
	Close() error

	// Sync flushes writes to disk
	Sync() error
}

// Transaction represents a database transaction with snapshot isolation.
// All writes of a transaction become visible atomically on Commit.
type Transaction interface {
	// Get retrieves a value by key
	Get(table Table, key []byte) ([]byte, error)

	// Set stores a key-value pair
	Set(table Table, key, value []byte) error

	// Delete removes a key
	Delete(table Table, key []byte) error

	// Scan iterates over a key range [start, end)
	// If start is nil, begins from the first key
	// If end is nil, scans until the last key
	Scan(table Table, start, end []byte) (Iterator, error)

	// ScanPrefix iterates over every key starting with prefix
	ScanPrefix(table Table, prefix []byte) (Iterator, error)

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error
}

// Iterator iterates over key-value pairs
type Iterator interface {
	// Next advances to the next item
	Next() bool

	// Key returns the current key
	Key() []byte

	// Value returns the current value
	Value() ([]byte, error)

	// Close closes the iterator
	Close() error
}

// Table represents a namespace in the storage
type Table byte

const (
	// Store metadata: layout and codec name
	TableMeta Table = iota

	// One index per ordering, in triple.Hexagon order
	TableSPO
	TableSOP
	TablePOS
	TablePSO
	TableOSP
	TableOPS

	// Total number of tables
	TableCount
)

// OrderingTable returns the table holding the index for triple.Hexagon[i]
func OrderingTable(i int) Table {
	return TableSPO + Table(i)
}

func (t Table) String() string {
	switch {
	case t == TableMeta:
		return "meta"
	case t >= TableSPO && t < TableCount:
		return triple.Hexagon[t-TableSPO].Name()
	default:
		return "unknown"
	}
}

// TablePrefix returns a byte prefix for a table to namespace keys
func TablePrefix(table Table) []byte {
	return []byte{byte(table)}
}

// PrefixKey adds a table prefix to a key
func PrefixKey(table Table, key []byte) []byte {
	prefix := TablePrefix(table)
	result := make([]byte, len(prefix)+len(key))
	copy(result, prefix)
	copy(result[len(prefix):], key)
	return result
}
