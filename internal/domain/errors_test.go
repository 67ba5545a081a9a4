package domain

import (
	"errors"
	"fmt"
	"testing"

	"tourdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTaxonomy(t *testing.T) {
	t.Run("NotFoundMatchesSentinel", func(t *testing.T) {
		err := fmt.Errorf("load: %w", NewNotFound("Booking"))
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.Equal(t, "load: Booking not found.", err.Error())
	})

	t.Run("CapacityIsValidation", func(t *testing.T) {
		var err error = &CapacityError{Available: 0, Requested: 1}
		assert.Equal(t, "Not enough capacity. Only 0 slot(s) available.", err.Error())

		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, err.Error(), ve.Reason)

		var ce *CapacityError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, 1, ce.Requested)
	})

	t.Run("ValidationWithCause", func(t *testing.T) {
		err := &ValidationError{Reason: "Tour not found.", Cause: ErrNotFound}
		assert.True(t, IsValidation(err))
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("Forbidden", func(t *testing.T) {
		err := &ForbiddenError{Reason: "nope"}
		assert.True(t, errors.Is(err, ErrForbidden))
		assert.False(t, IsValidation(err))
	})

	t.Run("DuplicateAndUnauthorized", func(t *testing.T) {
		assert.True(t, errors.Is(&DuplicateError{Reason: "taken"}, ErrDuplicate))
		assert.True(t, errors.Is(&UnauthorizedError{Reason: "bad password"}, ErrUnauthorized))
		assert.False(t, errors.Is(&DuplicateError{}, ErrConflict))
	})
}

func TestPrincipal(t *testing.T) {
	admin := Principal{UserID: 1, Role: models.RoleAdmin}
	customer := Principal{UserID: 2, Role: models.RoleCustomer, CustomerID: 7}
	orphan := Principal{UserID: 3, Role: models.RoleCustomer}

	assert.True(t, admin.Owns(7))
	assert.True(t, customer.Owns(7))
	assert.False(t, customer.Owns(8))
	assert.False(t, orphan.Owns(0))

	ctx := WithPrincipal(t.Context(), customer)
	got, ok := PrincipalFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, customer, got)

	_, ok = PrincipalFrom(t.Context())
	assert.False(t, ok)
}
