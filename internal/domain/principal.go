package domain

import (
	"context"

	"tourdesk/internal/models"
)

// Principal is the authenticated identity a request acts as.
type Principal struct {
	UserID     int64
	Email      string
	Role       string
	CustomerID int64
}

// System is the principal used by internal callers such as seeding.
var System = Principal{Role: models.RoleAdmin}

func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

func (p Principal) IsCustomer() bool {
	return p.Role == models.RoleCustomer
}

// Owns reports whether the principal may act on a booking of customerID.
func (p Principal) Owns(customerID int64) bool {
	if p.IsAdmin() {
		return true
	}
	return p.IsCustomer() && p.CustomerID != 0 && p.CustomerID == customerID
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
