package rates_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/rates"
	"github.com/septivank/rent-manager/internal/repository"
	"github.com/septivank/rent-manager/internal/repository/memory"
)

func newOwner(t *testing.T, store *memory.Store) domain.Owner {
	t.Helper()
	var owner domain.Owner
	require.NoError(t, store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		owner, err = tx.Accounts().CreateOwner(ctx, domain.Owner{Name: "Owner", Email: "owner@example.com"})
		return err
	}))
	return owner
}

func TestCurrent_MaxEffectiveFromRegardlessOfInsertOrder(t *testing.T) {
	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.AddDate(0, 1, 0)
	t3 := t1.AddDate(0, 2, 0)

	orders := [][]time.Time{
		{t1, t2, t3},
		{t3, t2, t1},
		{t2, t3, t1},
	}

	for _, order := range orders {
		store := memory.New()
		owner := newOwner(t, store)
		registry := rates.NewRegistry()

		err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
			for _, at := range order {
				_, err := registry.SetRate(ctx, tx, owner, domain.MeterElectricity, float64(at.Month()), at)
				require.NoError(t, err)
			}
			current, err := registry.Current(ctx, tx, owner.ID, domain.MeterElectricity)
			require.NoError(t, err)
			require.True(t, current.EffectiveFrom.Equal(t3), "order %v", order)
			require.Equal(t, 3.0, current.RatePerUnit)
			return nil
		})
		require.NoError(t, err)
	}
}

func TestCurrent_TieResolvesToLatestInsert(t *testing.T) {
	store := memory.New()
	owner := newOwner(t, store)
	registry := rates.NewRegistry()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		_, _ = registry.SetRate(ctx, tx, owner, domain.MeterElectricity, 7, at)
		second, _ := registry.SetRate(ctx, tx, owner, domain.MeterElectricity, 9, at)

		current, err := registry.Current(ctx, tx, owner.ID, domain.MeterElectricity)
		require.NoError(t, err)
		require.Equal(t, second.ID, current.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestCurrent_NotSet(t *testing.T) {
	store := memory.New()
	owner := newOwner(t, store)

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		_, err := rates.NewRegistry().Current(ctx, tx, owner.ID, domain.MeterElectricity)
		return err
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Equal(t, "rate_not_set", domain.Code(err))
}

func TestSetRate_RejectsNonPositive(t *testing.T) {
	store := memory.New()
	owner := newOwner(t, store)

	for _, v := range []float64{0, -1} {
		err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
			_, err := rates.NewRegistry().SetRate(ctx, tx, owner, domain.MeterElectricity, v, time.Time{})
			return err
		})
		require.ErrorIs(t, err, domain.ErrValidation)
	}
}

func TestBillingRate_WaterFallsBackToElectricity(t *testing.T) {
	store := memory.New()
	owner := newOwner(t, store)
	registry := rates.NewRegistry()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		none, err := registry.BillingRate(ctx, tx, owner.ID, domain.MeterWater)
		require.NoError(t, err)
		require.Nil(t, none)

		_, err = registry.SetRate(ctx, tx, owner, domain.MeterElectricity, 8, time.Time{})
		require.NoError(t, err)

		water, err := registry.BillingRate(ctx, tx, owner.ID, domain.MeterWater)
		require.NoError(t, err)
		require.Equal(t, 8.0, *water)

		_, err = registry.SetRate(ctx, tx, owner, domain.MeterWater, 5, time.Time{})
		require.NoError(t, err)

		water, err = registry.BillingRate(ctx, tx, owner.ID, domain.MeterWater)
		require.NoError(t, err)
		require.Equal(t, 5.0, *water)
		return nil
	})
	require.NoError(t, err)
}
