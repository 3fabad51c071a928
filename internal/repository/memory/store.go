// Package memory is an in-process repository.Store used by tests and local
// development. Transactions are serialised and roll back by discarding a
// working copy of the whole state.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/repository"
)

type state struct {
	seq         int64
	accounts    map[int64]domain.Account
	readings    []domain.Reading
	rates       []domain.RateRecord
	payments    map[int64]domain.Payment
	periods     []domain.BillingPeriod
	maintenance map[int64]domain.MaintenanceRequest
	resetCodes  []domain.ResetCode
}

func newState() *state {
	return &state{
		accounts:    make(map[int64]domain.Account),
		payments:    make(map[int64]domain.Payment),
		maintenance: make(map[int64]domain.MaintenanceRequest),
	}
}

func (s *state) clone() *state {
	return &state{
		seq:         s.seq,
		accounts:    maps.Clone(s.accounts),
		readings:    slices.Clone(s.readings),
		rates:       slices.Clone(s.rates),
		payments:    maps.Clone(s.payments),
		periods:     slices.Clone(s.periods),
		maintenance: maps.Clone(s.maintenance),
		resetCodes:  slices.Clone(s.resetCodes),
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// Store is a repository.Store backed by process memory.
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

// New constructs an empty Store.
func New() *Store {
	return &Store{state: newState(), now: time.Now}
}

// WithinTx serialises fn against every other transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.state.clone()
	if err := fn(ctx, &tx{st: work, now: s.now}); err != nil {
		return err
	}
	s.state = work
	return nil
}

type tx struct {
	st  *state
	now func() time.Time
}

func (t *tx) Accounts() repository.AccountRepository { return accounts{t} }
func (t *tx) Readings() repository.ReadingRepository { return readings{t} }
func (t *tx) Rates() repository.RateRepository { return rates{t} }
func (t *tx) Payments() repository.PaymentRepository { return payments{t} }
func (t *tx) Periods() repository.BillingPeriodRepository { return periods{t} }
func (t *tx) Maintenance() repository.MaintenanceRepository { return maintenance{t} }
func (t *tx) ResetCodes() repository.ResetCodeRepository { return resetCodes{t} }

// Ensure interface compliance.
var _ repository.Store = (*Store)(nil)
