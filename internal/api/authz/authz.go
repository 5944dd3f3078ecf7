package authz

import (
	"context"
	"errors"

	"github.com/tupichanga/courtbook/internal/domain"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Principal is the authenticated user attached to a request context.
type Principal struct {
	ID    int64
	Email string
	Name  string
	Role  domain.Role
}

// Actor converts the principal to the core's actor type.
func (p *Principal) Actor() domain.Actor {
	return domain.Actor{ID: p.ID, Role: p.Role}
}

type userContextKey struct{}

func ContextWithUser(ctx context.Context, user *Principal) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext retrieves the Principal stored in ctx, or nil.
func UserFromContext(ctx context.Context) *Principal {
	if ctx == nil {
		return nil
	}

	user, ok := ctx.Value(userContextKey{}).(*Principal)
	if !ok {
		return nil
	}

	return user
}

// RequireRole checks that the context carries an authenticated principal
// with the given role.
func RequireRole(ctx context.Context, role domain.Role) error {
	user := UserFromContext(ctx)
	if user == nil {
		return ErrUnauthenticated
	}
	if user.Role != role {
		return ErrForbidden
	}
	return nil
}

// IsOwner reports whether the principal is a venue owner.
func IsOwner(user *Principal) bool {
	return user != nil && user.Role == domain.RoleOwner
}
