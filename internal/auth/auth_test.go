package auth

import (
	"errors"
	"testing"
	"time"

	"tourdesk/internal/domain"
	"tourdesk/internal/models"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService(t *testing.T) {
	svc := NewTokenService("0123456789abcdef-secret", time.Hour)
	principal := domain.Principal{UserID: 7, Email: "anna@example.com", Role: models.RoleCustomer, CustomerID: 3}

	t.Run("RoundTrip", func(t *testing.T) {
		token, expires, err := svc.Issue(principal)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

		got, err := svc.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, principal, got)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		token, _, err := NewTokenService("another-secret-value", time.Hour).Issue(principal)
		require.NoError(t, err)

		_, err = svc.Verify(token)
		assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	})

	t.Run("Expired", func(t *testing.T) {
		expired := NewTokenService("0123456789abcdef-secret", time.Hour)
		expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _, err := expired.Issue(principal)
		require.NoError(t, err)

		_, err = svc.Verify(token)
		assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	})

	t.Run("UnsignedRejected", func(t *testing.T) {
		claims := Claims{UserID: 1, Role: models.RoleAdmin, RegisteredClaims: jwtlib.RegisteredClaims{Issuer: issuer}}
		token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, claims).SignedString(jwtlib.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.Verify(token)
		assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := svc.Verify("not-a-token")
		assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.NoError(t, CheckPassword("s3cret-pass", hash))
	assert.Error(t, CheckPassword("wrong", hash))
}
