package readings_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/readings"
	"github.com/septivank/rent-manager/internal/repository"
	"github.com/septivank/rent-manager/internal/repository/memory"
)

var day1 = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*memory.Store, domain.Tenant) {
	t.Helper()
	store := memory.New()
	var tenant domain.Tenant
	require.NoError(t, store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		owner, err := tx.Accounts().CreateOwner(ctx, domain.Owner{Name: "O", Email: "o@example.com"})
		if err != nil {
			return err
		}
		tenant, err = tx.Accounts().CreateTenant(ctx, domain.Tenant{OwnerID: owner.ID, TenantCode: "654321", Name: "T"})
		return err
	}))
	return store, tenant
}

func TestPair_SingleReadingHasNoPrevious(t *testing.T) {
	store, tenant := setup(t)
	ledger := readings.NewLedger()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		_, err := ledger.Submit(ctx, tx, tenant, readings.Submission{Meter: domain.MeterElectricity, Value: 100, Timestamp: day1})
		require.NoError(t, err)

		pair, err := ledger.Pair(ctx, tx, tenant.ID, domain.MeterElectricity)
		require.NoError(t, err)
		require.NotNil(t, pair.Latest)
		require.Nil(t, pair.Previous)

		_, ok := pair.Consumption()
		require.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestPair_EqualTimestampsBreakTiesById(t *testing.T) {
	store, tenant := setup(t)
	ledger := readings.NewLedger()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		a, _ := ledger.Submit(ctx, tx, tenant, readings.Submission{Meter: domain.MeterWater, Value: 500, Timestamp: day1})
		_, _ = ledger.Submit(ctx, tx, tenant, readings.Submission{Meter: domain.MeterWater, Value: 505, Timestamp: day1})
		c, _ := ledger.Submit(ctx, tx, tenant, readings.Submission{Meter: domain.MeterWater, Value: 540, Timestamp: day1.Add(24 * time.Hour)})

		pair, err := ledger.Pair(ctx, tx, tenant.ID, domain.MeterWater)
		require.NoError(t, err)
		require.Equal(t, c.ID, pair.Latest.ID)
		require.Equal(t, a.ID, pair.Previous.ID)

		delta, ok := pair.Consumption()
		require.True(t, ok)
		require.Equal(t, 40.0, delta)
		return nil
	})
	require.NoError(t, err)
}

func TestSubmit_AcceptsDecrease(t *testing.T) {
	store, tenant := setup(t)
	ledger := readings.NewLedger()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		_, err := ledger.Submit(ctx, tx, tenant, readings.Submission{Meter: domain.MeterElectricity, Value: 150, Timestamp: day1})
		require.NoError(t, err)
		_, err = ledger.Submit(ctx, tx, tenant, readings.Submission{Meter: domain.MeterElectricity, Value: 140, Timestamp: day1.Add(time.Hour)})
		require.NoError(t, err)

		pair, err := ledger.Pair(ctx, tx, tenant.ID, domain.MeterElectricity)
		require.NoError(t, err)
		delta, _ := pair.Consumption()
		require.Equal(t, -10.0, delta)
		return nil
	})
	require.NoError(t, err)
}

func TestSubmit_RejectsMalformed(t *testing.T) {
	store, tenant := setup(t)
	ledger := readings.NewLedger()

	cases := []readings.Submission{
		{Meter: "gas", Value: 1},
		{Meter: domain.MeterWater, Value: -1},
		{Meter: domain.MeterWater, Value: math.NaN()},
	}
	for _, c := range cases {
		err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
			_, err := ledger.Submit(ctx, tx, tenant, c)
			return err
		})
		require.ErrorIs(t, err, domain.ErrValidation, "submission %+v", c)
	}
}

func TestRecentDeltas(t *testing.T) {
	store, tenant := setup(t)
	ledger := readings.NewLedger()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		for i, v := range []float64{100, 110, 125, 130} {
			_, err := ledger.Submit(ctx, tx, tenant, readings.Submission{Meter: domain.MeterElectricity, Value: v, Timestamp: day1.Add(time.Duration(i) * time.Hour)})
			require.NoError(t, err)
		}

		deltas, err := ledger.RecentDeltas(ctx, tx, tenant.ID, domain.MeterElectricity, 2)
		require.NoError(t, err)
		require.Equal(t, []float64{5, 15}, deltas)
		return nil
	})
	require.NoError(t, err)
}
