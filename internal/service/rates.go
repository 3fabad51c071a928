package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/repository"
)

// SetRate records a new per-unit rate for one of owner's meters. A zero
// effectiveFrom means now.
func (s *Service) SetRate(ctx context.Context, owner domain.Owner, meter string, rate float64, effectiveFrom time.Time) (domain.RateRecord, error) {
	var rec domain.RateRecord
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		rec, err = s.rates.SetRate(ctx, tx, owner, domain.MeterType(strings.ToLower(strings.TrimSpace(meter))), rate, effectiveFrom)
		return err
	})
	if err != nil {
		return domain.RateRecord{}, err
	}

	s.log(ctx).Info("rate set",
		zap.Int64("owner_id", owner.ID),
		zap.String("meter_type", string(rec.MeterType)),
		zap.Float64("rate_per_unit", rec.RatePerUnit),
		zap.Time("effective_from", rec.EffectiveFrom),
	)
	return rec, nil
}

// CurrentRate returns owner's current rate for meter, or a NotFound error when none was ever set.
func (s *Service) CurrentRate(ctx context.Context, owner domain.Owner, meter string) (domain.RateRecord, error) {
	m, ok := domain.ParseMeterType(meter)
	if !ok {
		return domain.RateRecord{}, domain.Invalid("rate_type", "must be electricity or water")
	}
	var rec domain.RateRecord
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		rec, err = s.rates.Current(ctx, tx, owner.ID, m)
		return err
	})
	return rec, err
}

// RateHistory lists owner's rates for meter, newest effective first.
func (s *Service) RateHistory(ctx context.Context, owner domain.Owner, meter string) ([]domain.RateRecord, error) {
	m, ok := domain.ParseMeterType(meter)
	if !ok {
		return nil, domain.Invalid("rate_type", "must be electricity or water")
	}
	var out []domain.RateRecord
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = tx.Rates().History(ctx, owner.ID, m)
		if errors.Is(err, domain.ErrNotFound) {
			out, err = nil, nil
		}
		return err
	})
	return out, err
}
