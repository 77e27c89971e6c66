package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements the database port and the tracestore recorder over a
// pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store on an existing pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}
