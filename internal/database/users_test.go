package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"tourdesk/internal/domain"
	"tourdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user := &models.User{Email: "admin@example.com", PasswordHash: "hash", Role: models.RoleAdmin, IsActive: true}
	require.NoError(t, db.CreateUser(ctx, user))
	require.NotZero(t, user.ID)

	got, err := db.GetUserByEmail(ctx, "ADMIN@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.True(t, got.IsAdmin())
	assert.Nil(t, got.LastLoginAt)

	at := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, db.UpdateLastLogin(ctx, user.ID, at))
	got, err = db.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, at.Equal(*got.LastLoginAt))

	_, err = db.GetUserByID(ctx, 999)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = db.CreateUser(ctx, &models.User{Email: "admin@example.com", PasswordHash: "x", Role: models.RoleAdmin})
	assert.True(t, errors.Is(err, domain.ErrDuplicate))
}

func TestRegisterCustomer(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("NewCustomer", func(t *testing.T) {
		user := &models.User{Email: "new@example.com", PasswordHash: "h", Role: models.RoleCustomer, IsActive: true}
		customer := &models.Customer{Name: "New", Email: "new@example.com"}
		require.NoError(t, db.RegisterCustomer(ctx, user, customer))

		require.NotNil(t, customer.UserID)
		assert.Equal(t, user.ID, *customer.UserID)

		linked, err := db.GetCustomerByUserID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, customer.ID, linked.ID)
	})

	t.Run("ClaimsExistingCustomer", func(t *testing.T) {
		existing := createTestCustomer(t, db, "walkin@example.com")

		user := &models.User{Email: "walkin@example.com", PasswordHash: "h", Role: models.RoleCustomer, IsActive: true}
		customer := &models.Customer{Name: "Ignored", Email: "walkin@example.com"}
		require.NoError(t, db.RegisterCustomer(ctx, user, customer))

		assert.Equal(t, existing.ID, customer.ID)
		assert.Equal(t, existing.Name, customer.Name)
	})

	t.Run("AlreadyLinked", func(t *testing.T) {
		user := &models.User{Email: "other@example.com", PasswordHash: "h", Role: models.RoleCustomer, IsActive: true}
		customer := &models.Customer{Name: "Dup", Email: "new@example.com"}
		err := db.RegisterCustomer(ctx, user, customer)
		assert.True(t, errors.Is(err, domain.ErrDuplicate))

		_, err = db.GetUserByEmail(ctx, "other@example.com")
		assert.True(t, errors.Is(err, domain.ErrNotFound), "user insert must roll back")
	})
}
