// Package repository provides the PostgreSQL-backed reconciliation store
// and the read and write paths used by the metrics and ranking engines.
//
// # Interfaces
//
//   - Store: fill-only upserts, association links, citation edges and the
//     read accessors that drive enrichment sweeps.
//   - Transactor: runs a unit of Store work inside one transaction.
//   - MetricsStore: point-in-time snapshot reads and chunked metric writes.
//   - CorpusReader: the joined per-paper rows the ranking engine scores.
//
// # Error Handling
//
// A record without an identity key fails with *domain.IdentityError
// (errors.Is domain.ErrNoIdentity) and nothing is written. Any database
// failure is wrapped in *domain.StorageError (errors.Is domain.ErrStorage)
// carrying the PostgreSQL SQLSTATE when one is available. Callers decide
// whether to skip the record or abort.
//
// # Transactions
//
// Implementations are built over DBTX so the same code runs against the
// pool or inside a transaction started by database.DB.WithTransaction.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helixir/bibliometrics-service/internal/database"
	"github.com/helixir/bibliometrics-service/internal/domain"
)

// DBTX is the database interface supporting both pool and transaction contexts.
type DBTX = database.DBTX

// TxRunner starts transactions. *database.DB satisfies it.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
	WithRepeatableReadTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Limits for list queries.
const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// clampLimit normalizes a list limit to [1, maxListLimit].
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// storageError wraps err with the failing operation and its SQLSTATE.
func storageError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return domain.NewStorageError(op, pgErr.Code, err)
	}
	return domain.NewStorageError(op, "", err)
}
