// Package postgres implements stormdag.Store on PostgreSQL via pgx.
package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/stormdag"
)

// PGStore implements stormdag.Store using PostgreSQL via pgx.
type PGStore struct {
	db *pgxpool.Pool
}

// New creates a new PGStore backed by the given pgx connection pool.
func New(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// asDuplicate maps a unique violation on the node or edge table to its
// sentinel. Any other error yields nil.
func asDuplicate(err error, id string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	if pgErr.TableName == "network_edges" {
		return fmt.Errorf("%w: %s", stormdag.ErrDuplicateEdge, id)
	}
	return fmt.Errorf("%w: %s", stormdag.ErrDuplicateNode, id)
}

var _ stormdag.Store = (*PGStore)(nil)
