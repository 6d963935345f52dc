// Package postgres implements db.Store over a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/paperdex/paperdex/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds connection parameters for a Postgres store.
type Config struct {
	DSN      string
	MaxConns int32
}

// Store implements db.Store via pgxpool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Postgres store. Every pooled connection registers the
// pgvector codec so vector columns scan natively.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close shuts down the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// ReadOnly runs fn in a read-only transaction with the session options
// applied via SET LOCAL, so they expire at transaction end.
func (s *Store) ReadOnly(ctx context.Context, opts db.SessionOptions, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return &db.Error{Op: db.OpBegin, Err: classify(err)}
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if opts.StatementTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL statement_timeout = %d", opts.StatementTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return &db.Error{Op: db.OpExec, Err: classify(err)}
		}
	}
	if opts.ANNEfSearch > 0 {
		stmt := fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", opts.ANNEfSearch)
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return &db.Error{Op: db.OpExec, Err: classify(err)}
		}
	}

	if err := fn(tx); err != nil {
		return classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return &db.Error{Op: db.OpCommit, Err: classify(err)}
	}
	return nil
}

// ListColumns introspects information_schema for the base table and every
// table matching the enrichment prefix.
func (s *Store) ListColumns(ctx context.Context, baseTable, prefix string) ([]db.TableColumn, error) {
	const q = `
SELECT table_name, column_name, data_type, udt_name
FROM information_schema.columns
WHERE table_schema = current_schema()
  AND (table_name = $1 OR table_name LIKE $2 || '%')
ORDER BY table_name, ordinal_position`

	rows, err := s.pool.Query(ctx, q, baseTable, prefix)
	if err != nil {
		return nil, &db.Error{Op: db.OpIntrospect, Err: classify(err)}
	}
	defer rows.Close()

	var out []db.TableColumn
	for rows.Next() {
		var c db.TableColumn
		if err := rows.Scan(&c.TableName, &c.ColumnName, &c.DataType, &c.UDTName); err != nil {
			return nil, &db.Error{Op: db.OpIntrospect, Err: err}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpIntrospect, Err: classify(err)}
	}
	return out, nil
}

// Get reads a KV entry, treating expired rows as absent.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `
SELECT value FROM paperdex_kv
WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`

	var value []byte
	if err := s.pool.QueryRow(ctx, q, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, &db.Error{Op: db.OpQuery, Err: classify(err)}
	}
	return value, nil
}

// SetWithTTL upserts a KV entry. ttl <= 0 stores without expiry.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	const q = `
INSERT INTO paperdex_kv (key, value, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`

	var expires *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expires = &t
	}
	if _, err := s.pool.Exec(ctx, q, key, value, expires); err != nil {
		return &db.Error{Op: db.OpExec, Err: classify(err)}
	}
	return nil
}

// classify maps driver errors onto the package sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 57014 query_canceled covers statement_timeout expiry.
		if pgErr.Code == "57014" {
			return fmt.Errorf("%w: %s", db.ErrTimeout, pgErr.Message)
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", db.ErrNotFound, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", db.ErrTimeout, err.Error())
	}
	return err
}
