package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/citysmiles/dental-admin/internal/remote"
	"github.com/citysmiles/dental-admin/pkg/errors"
)

// Store reads and writes clinic tables as JSON rows. Write errors are
// returned as the driver reports them so their message reaches the user
// unchanged.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Select(ctx context.Context, table string, q remote.Query) (*remote.Result, error) {
	if err := remote.CheckQuery(table, q); err != nil {
		return nil, err
	}
	query, args := buildSelect(table, q)

	if q.CountOnly {
		var n int
		if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		return &remote.Result{Count: n}, nil
	}

	var raw [][]byte
	if err := s.db.SelectContext(ctx, &raw, query, args...); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	rows, err := decodeRows(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	return &remote.Result{Rows: rows, Count: len(rows)}, nil
}

func (s *Store) Insert(ctx context.Context, table string, rows ...remote.Row) ([]remote.Row, error) {
	if err := remote.CheckTable(table); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.BadRequest("nothing to insert", nil)
	}
	query, args, err := buildInsert(table, rows)
	if err != nil {
		return nil, err
	}

	var raw [][]byte
	if err := s.db.SelectContext(ctx, &raw, query, args...); err != nil {
		return nil, err
	}
	return decodeRows(raw)
}

func (s *Store) Update(ctx context.Context, table, id string, patch remote.Row) error {
	if err := remote.CheckTable(table); err != nil {
		return err
	}
	query, args, err := buildUpdate(table, id, patch)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireOne(res, table, id)
}

func (s *Store) Delete(ctx context.Context, table, id string) error {
	if err := remote.CheckTable(table); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", pq.QuoteIdentifier(table)), id)
	if err != nil {
		return err
	}
	return requireOne(res, table, id)
}

func requireOne(res sql.Result, table, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return errors.NotFound(fmt.Sprintf("%s row %s", table, id), nil)
	}
	return nil
}

func decodeRows(raw [][]byte) ([]remote.Row, error) {
	rows := make([]remote.Row, 0, len(raw))
	for _, b := range raw {
		var r remote.Row
		if err := json.Unmarshal(b, &r); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		rows = append(rows, r)
	}
	return rows, nil
}
