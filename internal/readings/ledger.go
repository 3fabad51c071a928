// Package readings is the append-only meter reading ledger.
package readings

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/septivank/rent-manager/internal/billing"
	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/repository"
)

// Submission is a reading as entered by a tenant, the ingest queue or an owner seeding a tenant.
type Submission struct {
	Meter     domain.MeterType
	Value     float64
	Timestamp time.Time
	ImagePath string
	// Processed marks owner-entered readings.
	Processed bool
}

// Ledger appends readings and answers ordering queries over them.
type Ledger struct {
	now func() time.Time
}

// NewLedger creates a new Ledger
func NewLedger() *Ledger {
	return &Ledger{now: time.Now}
}

// Submit appends a reading for tenant. Decreases against earlier readings are
// accepted; only malformed values are rejected.
func (l *Ledger) Submit(ctx context.Context, tx repository.Tx, tenant domain.Tenant, s Submission) (domain.Reading, error) {
	fields := domain.FieldErrors{}
	if _, ok := domain.ParseMeterType(string(s.Meter)); !ok {
		fields.Add("meter_type", "must be electricity or water")
	}
	if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		fields.Add("reading_value", "must be a number")
	} else if s.Value < 0 {
		fields.Add("reading_value", "must not be negative")
	}
	if err := fields.Err(); err != nil {
		return domain.Reading{}, err
	}

	ts := s.Timestamp
	if ts.IsZero() {
		ts = l.now()
	}

	return tx.Readings().Append(ctx, domain.Reading{
		TenantID:  tenant.ID,
		MeterType: s.Meter,
		Value:     s.Value,
		Timestamp: ts.UTC().Truncate(time.Microsecond),
		ImagePath: s.ImagePath,
		Processed: s.Processed,
	})
}

// Latest returns the newest reading, or nil when the meter has none.
func (l *Ledger) Latest(ctx context.Context, tx repository.Tx, tenantID int64, meter domain.MeterType) (*domain.Reading, error) {
	return optional(tx.Readings().Latest(ctx, tenantID, meter))
}

// PreviousBefore returns the newest reading strictly older than ts, or nil.
func (l *Ledger) PreviousBefore(ctx context.Context, tx repository.Tx, tenantID int64, meter domain.MeterType, ts time.Time) (*domain.Reading, error) {
	return optional(tx.Readings().PreviousBefore(ctx, tenantID, meter, ts))
}

// Pair returns the latest reading and the one before it as a billing.Usage
// without a rate.
func (l *Ledger) Pair(ctx context.Context, tx repository.Tx, tenantID int64, meter domain.MeterType) (billing.Usage, error) {
	latest, err := l.Latest(ctx, tx, tenantID, meter)
	if err != nil || latest == nil {
		return billing.Usage{}, err
	}
	previous, err := l.PreviousBefore(ctx, tx, tenantID, meter, latest.Timestamp)
	if err != nil {
		return billing.Usage{}, err
	}
	return billing.Usage{Latest: latest, Previous: previous}, nil
}

// RecentDeltas returns up to n consumption deltas between consecutive readings,
// newest first. Used as the anomaly baseline.
func (l *Ledger) RecentDeltas(ctx context.Context, tx repository.Tx, tenantID int64, meter domain.MeterType, n int) ([]float64, error) {
	history, err := tx.Readings().ListByTenant(ctx, tenantID, meter, n+1)
	if err != nil {
		return nil, err
	}
	deltas := make([]float64, 0, len(history))
	for i := 0; i+1 < len(history); i++ {
		deltas = append(deltas, history[i].Value-history[i+1].Value)
	}
	return deltas, nil
}

func optional(r domain.Reading, err error) (*domain.Reading, error) {
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
