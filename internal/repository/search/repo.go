// Package search executes compiled statements and normalizes rows into
// transport-ready records.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/paperdex/paperdex/internal/compiler"
	"github.com/paperdex/paperdex/internal/db"
	"github.com/paperdex/paperdex/internal/domain"
)

// store is the consumer interface for statement execution (ISP).
type store interface {
	ReadOnly(ctx context.Context, opts db.SessionOptions, fn func(tx pgx.Tx) error) error
}

// Repo implements usecase/search.Repository.
type Repo struct {
	store store
	opts  db.SessionOptions
}

// New creates a search repository. opts are applied per transaction via
// SET LOCAL (statement timeout, ANN search breadth).
func New(s store, opts db.SessionOptions) *Repo {
	return &Repo{store: s, opts: opts}
}

// Run executes a compiled statement (and its count estimate, when present)
// inside one read-only transaction and returns normalized records.
func (r *Repo) Run(ctx context.Context, q *compiler.Compiled) (*domain.SearchResult, error) {
	res := &domain.SearchResult{Warnings: q.Warnings}

	start := time.Now()
	err := r.store.ReadOnly(ctx, r.opts, func(tx pgx.Tx) error {
		records, err := queryRecords(ctx, tx, q)
		if err != nil {
			return err
		}
		res.Records = records

		if q.CountSQL != "" {
			var total int64
			if err := tx.QueryRow(ctx, q.CountSQL, q.CountArgs...).Scan(&total); err != nil {
				return fmt.Errorf("count: %w", err)
			}
			res.Total = &total
		}
		return nil
	})
	res.Took = time.Since(start)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func queryRecords(ctx context.Context, tx pgx.Tx, q *compiler.Compiled) ([]domain.Record, error) {
	rows, err := tx.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	records := make([]domain.Record, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(values) != len(q.Columns) {
			return nil, fmt.Errorf("row has %d values, statement projects %d", len(values), len(q.Columns))
		}

		rec := make(domain.Record, len(values))
		for i, col := range q.Columns {
			rec[col.Name] = normalizeValue(values[i])
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return records, nil
}

// normalizeValue converts driver types to the documented record shapes:
// vectors become []float32, points become [2]float64, numerics become
// float64. Everything else passes through as decoded.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case pgvector.Vector:
		return t.Slice()
	case pgtype.Point:
		if !t.Valid {
			return nil
		}
		return [2]float64{t.P.X, t.P.Y}
	case pgtype.Numeric:
		if !t.Valid {
			return nil
		}
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	default:
		return v
	}
}
