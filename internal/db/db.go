package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Store is the main database facade.
type Store interface {
	Pinger
	TxRunner
	Introspector
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// KVStore provides simple keyed byte storage with expiry, used by the
// embedding cache.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SessionOptions are per-statement session settings applied with SET LOCAL,
// so they expire with the transaction and never leak into pooled connections.
type SessionOptions struct {
	// StatementTimeout aborts any statement running longer than this.
	// Zero means the server default.
	StatementTimeout time.Duration
	// ANNEfSearch sets the HNSW search breadth for ANN-ordered statements.
	// Zero leaves the index default in place.
	ANNEfSearch int
}

// TxRunner executes fn inside a read-only transaction with the given session
// options applied. The transaction is rolled back if fn returns an error.
type TxRunner interface {
	ReadOnly(ctx context.Context, opts SessionOptions, fn func(tx pgx.Tx) error) error
}

// TableColumn is one column row from schema introspection. UDTName carries
// the underlying type for extension types, where DataType is "USER-DEFINED".
type TableColumn struct {
	TableName  string
	ColumnName string
	DataType   string
	UDTName    string
}

// Introspector lists the tables and columns visible to the catalog.
type Introspector interface {
	// ListColumns returns the columns of the given table plus every table
	// whose name starts with prefix, in (table, ordinal) order.
	ListColumns(ctx context.Context, baseTable, prefix string) ([]TableColumn, error)
}
