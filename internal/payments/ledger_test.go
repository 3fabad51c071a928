package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/septivank/rent-manager/internal/billing"
	"github.com/septivank/rent-manager/internal/charge"
	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/repository"
	"github.com/septivank/rent-manager/internal/repository/memory"
)

type fakeProvider struct {
	requests []charge.Request
	err      error
}

func (f *fakeProvider) CreateIntent(_ context.Context, req charge.Request) (charge.Intent, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return charge.Intent{}, f.err
	}
	return charge.Intent{ID: "pi_123", ClientSecret: "pi_123_secret"}, nil
}

var fixedNow = time.Date(2025, 7, 4, 13, 5, 9, 0, time.UTC)

func newTestLedger(p charge.Provider) *Ledger {
	l := NewLedger(p, "inr", "RENT")
	l.now = func() time.Time { return fixedNow }
	return l
}

func withTenant(t *testing.T) (*memory.Store, domain.Tenant) {
	t.Helper()
	store := memory.New()
	var tenant domain.Tenant
	require.NoError(t, store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		owner, err := tx.Accounts().CreateOwner(ctx, domain.Owner{Name: "O", Email: "o@example.com"})
		if err != nil {
			return err
		}
		tenant, err = tx.Accounts().CreateTenant(ctx, domain.Tenant{OwnerID: owner.ID, TenantCode: "222222", Name: "T", RentAmount: 5000})
		return err
	}))
	return store, tenant
}

func TestReference(t *testing.T) {
	require.Equal(t, "RENT2025070413050942", Reference("RENT", fixedNow, 42))
}

func TestCreatePendingCharge_Manual(t *testing.T) {
	store, tenant := withTenant(t)
	provider := &fakeProvider{}
	ledger := newTestLedger(provider)
	period := &billing.Period{Start: fixedNow.Add(-48 * time.Hour), End: fixedNow.Add(-time.Hour)}

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		h, err := ledger.CreatePendingCharge(ctx, tx, tenant, billing.Breakdown{Rent: 5000, Electricity: 400, Total: 5400}, period, domain.MethodBankTransfer)
		require.NoError(t, err)
		require.Equal(t, domain.PaymentPending, h.Payment.Status)
		require.Equal(t, 5400.0, h.Payment.Amount)
		require.Equal(t, Reference("RENT", fixedNow, tenant.ID), h.Reference)
		require.Empty(t, h.ClientSecret)
		require.Empty(t, provider.requests)

		covering, err := ledger.Covering(ctx, tx, tenant.ID, *period)
		require.NoError(t, err)
		require.Equal(t, h.Payment.ID, covering.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestCardIntent_UsesMinorUnits(t *testing.T) {
	store, tenant := withTenant(t)
	provider := &fakeProvider{}
	ledger := newTestLedger(provider)

	var h Handle
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		h, err = ledger.CreatePendingCharge(ctx, tx, tenant, billing.Breakdown{Rent: 5000, Water: 12.34, Total: 5012.34}, nil, domain.MethodCard)
		return err
	})
	require.NoError(t, err)
	require.Empty(t, h.Payment.ExternalReference)
	require.Empty(t, provider.requests)

	intent, err := ledger.RequestIntent(context.Background(), h.Payment)
	require.NoError(t, err)
	require.Len(t, provider.requests, 1)
	require.Equal(t, int64(501234), provider.requests[0].AmountMinor)
	require.Equal(t, "inr", provider.requests[0].Currency)
	require.Equal(t, tenant.ID, provider.requests[0].TenantID)

	require.NoError(t, store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		p, err := ledger.AttachIntent(ctx, tx, h.Payment.ID, intent)
		require.NoError(t, err)
		require.Equal(t, "pi_123", p.ExternalReference)
		return nil
	}))
}

func TestCardIntent_ProviderFailureThenVoid(t *testing.T) {
	store, tenant := withTenant(t)
	ledger := newTestLedger(&fakeProvider{err: errors.New("card declined")})
	period := &billing.Period{Start: fixedNow.Add(-48 * time.Hour), End: fixedNow.Add(-time.Hour)}

	var h Handle
	require.NoError(t, store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		h, err = ledger.CreatePendingCharge(ctx, tx, tenant, billing.Breakdown{Total: 10}, period, domain.MethodCard)
		return err
	}))

	_, err := ledger.RequestIntent(context.Background(), h.Payment)
	require.ErrorIs(t, err, domain.ErrExternalProvider)

	require.NoError(t, store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		require.NoError(t, ledger.Void(ctx, tx, h.Payment.ID))

		history, err := ledger.History(ctx, tx, tenant.ID, 10)
		require.NoError(t, err)
		require.Empty(t, history)

		covering, err := ledger.Covering(ctx, tx, tenant.ID, *period)
		require.NoError(t, err)
		require.Nil(t, covering)

		_, err = ledger.CreatePendingCharge(ctx, tx, tenant, billing.Breakdown{Total: 10}, period, domain.MethodCash)
		require.NoError(t, err)
		return nil
	}))
}

func TestCreatePendingCharge_PeriodGuard(t *testing.T) {
	store, tenant := withTenant(t)
	ledger := newTestLedger(&fakeProvider{})
	period := &billing.Period{Start: fixedNow.Add(-48 * time.Hour), End: fixedNow.Add(-time.Hour)}

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		first, err := ledger.CreatePendingCharge(ctx, tx, tenant, billing.Breakdown{Total: 1}, period, domain.MethodCash)
		require.NoError(t, err)

		_, err = ledger.CreatePendingCharge(ctx, tx, tenant, billing.Breakdown{Total: 1}, period, domain.MethodCash)
		require.ErrorIs(t, err, ErrPeriodAlreadyCharged)

		_, err = ledger.MarkRejected(ctx, tx, first.Payment.ID)
		require.NoError(t, err)

		second, err := ledger.CreatePendingCharge(ctx, tx, tenant, billing.Breakdown{Total: 1}, period, domain.MethodCash)
		require.NoError(t, err)

		covering, err := ledger.Covering(ctx, tx, tenant.ID, *period)
		require.NoError(t, err)
		require.Equal(t, second.Payment.ID, covering.ID)
		return nil
	})
	require.NoError(t, err)
}

// A charge that slipped past the covering check, as a concurrent transaction
// would, must still be refused by the binding.
func TestCreatePendingCharge_BindRefusesActivePeriod(t *testing.T) {
	store, tenant := withTenant(t)
	ledger := newTestLedger(&fakeProvider{})
	period := &billing.Period{Start: fixedNow.Add(-48 * time.Hour), End: fixedNow.Add(-time.Hour)}

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		first, err := ledger.CreatePendingCharge(ctx, tx, tenant, billing.Breakdown{Total: 1}, period, domain.MethodCash)
		require.NoError(t, err)

		late, err := tx.Payments().Create(ctx, domain.Payment{
			TenantID: tenant.ID, Amount: 1, Timestamp: fixedNow, Method: domain.MethodCash, Status: domain.PaymentPending,
		})
		require.NoError(t, err)

		_, err = tx.Periods().Bind(ctx, domain.BillingPeriod{
			TenantID: tenant.ID, PeriodStart: period.Start, PeriodEnd: period.End, PaymentID: late.ID,
		})
		require.ErrorIs(t, err, repository.ErrPeriodTaken)

		covering, err := ledger.Covering(ctx, tx, tenant.ID, *period)
		require.NoError(t, err)
		require.Equal(t, first.Payment.ID, covering.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestTransition_TerminalStates(t *testing.T) {
	store, tenant := withTenant(t)
	ledger := newTestLedger(&fakeProvider{})

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		h, err := ledger.CreatePendingCharge(ctx, tx, tenant, billing.Breakdown{Total: 1}, nil, domain.MethodCash)
		require.NoError(t, err)

		done, err := ledger.MarkCompleted(ctx, tx, h.Payment.ID)
		require.NoError(t, err)
		require.Equal(t, domain.PaymentCompleted, done.Status)

		_, err = ledger.MarkCompleted(ctx, tx, h.Payment.ID)
		require.ErrorIs(t, err, domain.ErrState)

		_, err = ledger.MarkRejected(ctx, tx, h.Payment.ID)
		require.ErrorIs(t, err, domain.ErrState)

		_, err = ledger.Transition(ctx, tx, h.Payment.ID, "refund")
		require.ErrorIs(t, err, domain.ErrValidation)

		_, err = ledger.MarkCompleted(ctx, tx, 9999)
		require.ErrorIs(t, err, domain.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestCreatePendingCharge_InvalidMethod(t *testing.T) {
	store, tenant := withTenant(t)
	ledger := newTestLedger(&fakeProvider{})

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		_, err := ledger.CreatePendingCharge(ctx, tx, tenant, billing.Breakdown{}, nil, "cheque")
		return err
	})
	require.ErrorIs(t, err, domain.ErrValidation)
}
