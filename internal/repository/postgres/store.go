// Package postgres implements repository.Store on pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/septivank/rent-manager/internal/repository"
)

// Store opens pgx transactions on a pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithinTx begins a transaction, hands it to fn and commits when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Accounts() repository.AccountRepository { return accounts{t.tx} }
func (t *pgTx) Readings() repository.ReadingRepository { return readings{t.tx} }
func (t *pgTx) Rates() repository.RateRepository { return rates{t.tx} }
func (t *pgTx) Payments() repository.PaymentRepository { return payments{t.tx} }
func (t *pgTx) Periods() repository.BillingPeriodRepository { return periods{t.tx} }
func (t *pgTx) Maintenance() repository.MaintenanceRepository { return maintenance{t.tx} }
func (t *pgTx) ResetCodes() repository.ResetCodeRepository { return resetCodes{t.tx} }

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
	}
	return false
}

// Ensure interface compliance.
var _ repository.Store = (*Store)(nil)
