package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/septivank/rent-manager/internal/domain"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)

	owner := domain.Owner{ID: 1, PasswordHash: hash}
	require.True(t, CheckPassword(owner, "s3cret!"))
	require.False(t, CheckPassword(owner, "wrong"))
}

func TestTokenIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour, "rent-manager")

	token, exp, err := issuer.Issue(domain.Tenant{ID: 42})
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.AccountID)
	require.Equal(t, domain.RoleTenant, claims.Role)
}

func TestVerifyRejectsForeignAndExpiredTokens(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour, "rent-manager")
	token, _, err := issuer.Issue(domain.Owner{ID: 7})
	require.NoError(t, err)

	other := NewTokenIssuer("other-secret", time.Hour, "rent-manager")
	_, err = other.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)

	later := NewTokenIssuer("test-secret", time.Hour, "rent-manager")
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = later.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Verify("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
