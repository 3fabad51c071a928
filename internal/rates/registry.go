// Package rates keeps each owner's per-meter rate timeline.
package rates

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/repository"
)

// Registry resolves the current rate as the record with the greatest
// effective_from, regardless of whether that instant has passed yet.
type Registry struct {
	now func() time.Time
}

// NewRegistry creates a new Registry
func NewRegistry() *Registry {
	return &Registry{now: time.Now}
}

// SetRate appends a rate record. A zero effectiveFrom means now.
func (r *Registry) SetRate(ctx context.Context, tx repository.Tx, owner domain.Owner, meter domain.MeterType, ratePerUnit float64, effectiveFrom time.Time) (domain.RateRecord, error) {
	fields := domain.FieldErrors{}
	if _, ok := domain.ParseMeterType(string(meter)); !ok {
		fields.Add("rate_type", "must be electricity or water")
	}
	if math.IsNaN(ratePerUnit) || math.IsInf(ratePerUnit, 0) || ratePerUnit <= 0 {
		fields.Add("rate_per_unit", "must be greater than zero")
	}
	if err := fields.Err(); err != nil {
		return domain.RateRecord{}, err
	}

	if effectiveFrom.IsZero() {
		effectiveFrom = r.now()
	}

	return tx.Rates().Append(ctx, domain.RateRecord{
		OwnerID:       owner.ID,
		MeterType:     meter,
		RatePerUnit:   ratePerUnit,
		EffectiveFrom: effectiveFrom.UTC().Truncate(time.Microsecond),
	})
}

// Current returns the owner's current record for meter, or repository.ErrRateNotFound.
func (r *Registry) Current(ctx context.Context, tx repository.Tx, ownerID int64, meter domain.MeterType) (domain.RateRecord, error) {
	return tx.Rates().Current(ctx, ownerID, meter)
}

// BillingRate is the rate applied to meter when billing. Water falls back to
// the electricity rate when the owner never set a water rate. A nil rate means
// the meter is not billed.
func (r *Registry) BillingRate(ctx context.Context, tx repository.Tx, ownerID int64, meter domain.MeterType) (*float64, error) {
	rec, err := r.Current(ctx, tx, ownerID, meter)
	if errors.Is(err, domain.ErrNotFound) && meter == domain.MeterWater {
		rec, err = r.Current(ctx, tx, ownerID, domain.MeterElectricity)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v := rec.RatePerUnit
	return &v, nil
}
