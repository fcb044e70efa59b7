package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/inventario-ti/internal/domain/repository"
)

var (
	_ repository.ProductRepository = (*Store)(nil)
	_ repository.EventStore        = (*Store)(nil)
	_ repository.CatalogTxRunner   = (*Store)(nil)
)

// Store agrupa catálogo, libro y transacciones sobre un mismo pool.
type Store struct {
	*ProductRepo
	*EventStore
	*TxRunner
	pool *pgxpool.Pool
}

// NewStore construye el store sobre el pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		ProductRepo: NewProductRepository(pool),
		EventStore:  NewEventStore(pool),
		TxRunner:    NewTxRunner(pool),
		pool:        pool,
	}
}

// Ping verifica la conexión (health check).
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
