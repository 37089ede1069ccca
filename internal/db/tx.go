package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Transactor is a [Querier] that can also run a group of queries inside a
// single transaction.
type Transactor interface {
	Querier
	ExecTx(ctx context.Context, fn func(Querier) error) error
}

// Store couples the generated queries with the connection they run on.
type Store struct {
	*Queries
	conn *sql.DB
}

var _ Transactor = (*Store)(nil)

func NewStore(conn *sql.DB) *Store {
	return &Store{
		Queries: New(conn),
		conn:    conn,
	}
}

// ExecTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func (s *Store) ExecTx(ctx context.Context, fn func(Querier) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(s.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
