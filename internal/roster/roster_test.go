package roster_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/repository"
	"github.com/septivank/rent-manager/internal/repository/memory"
	"github.com/septivank/rent-manager/internal/roster"
)

func TestRoster(t *testing.T) {
	store := memory.New()
	r := roster.New()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		alice, _ := tx.Accounts().CreateOwner(ctx, domain.Owner{Name: "Alice", Email: "alice@example.com"})
		bob, _ := tx.Accounts().CreateOwner(ctx, domain.Owner{Name: "Bob", Email: "bob@example.com"})

		size, err := r.Size(ctx, tx, alice.ID)
		require.NoError(t, err)
		require.Zero(t, size)

		var first domain.Tenant
		for i := range 3 {
			tn, err := tx.Accounts().CreateTenant(ctx, domain.Tenant{OwnerID: alice.ID, TenantCode: fmt.Sprintf("10000%d", i), Name: "T"})
			require.NoError(t, err)
			if i == 0 {
				first = tn
			}
		}

		size, err = r.Size(ctx, tx, alice.ID)
		require.NoError(t, err)
		require.Equal(t, 3, size)

		got, err := r.Tenant(ctx, tx, alice, first.ID)
		require.NoError(t, err)
		require.Equal(t, first.ID, got.ID)

		_, err = r.Tenant(ctx, tx, bob, first.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)

		_, err = r.Tenant(ctx, tx, alice, alice.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)

		owner, err := r.OwnerOf(ctx, tx, first)
		require.NoError(t, err)
		require.Equal(t, alice.ID, owner.ID)
		return nil
	})
	require.NoError(t, err)
}
