package api

import (
	"context"
	"net/http"
	"strings"

	domainerrors "github.com/tradepost/catalog-server/internal/errors"
)

// Identity headers set by the upstream gateway after it authenticated the
// caller.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// Role is the caller's marketplace role.
type Role string

// Roles.
const (
	RoleAdmin  Role = "admin"
	RoleSeller Role = "seller"
	RoleBuyer  Role = "buyer"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Role   Role
}

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

const identityKey ctxKey = "identity"

// identityMiddleware stores the gateway identity headers in the request
// context. Requests without them continue anonymously; handlers decide
// whether that is acceptable.
func identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Identity{
			UserID: strings.TrimSpace(r.Header.Get(HeaderUserID)),
			Role:   Role(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole)))),
		}
		if id.UserID == "" {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}

func withIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the caller identity, which is empty for anonymous
// requests.
func IdentityFrom(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey).(Identity)
	return id
}

// RequireUser returns the caller or a 401.
func RequireUser(ctx context.Context) (Identity, error) {
	id := IdentityFrom(ctx)
	if id.UserID == "" {
		return Identity{}, domainerrors.Unauthorized("Authentication required")
	}
	return id, nil
}

// RequireAdmin validates the caller is authenticated and has the admin role.
func RequireAdmin(ctx context.Context) (Identity, error) {
	id, err := RequireUser(ctx)
	if err != nil {
		return Identity{}, err
	}
	if id.Role != RoleAdmin {
		return Identity{}, domainerrors.Forbidden("Admin access required")
	}
	return id, nil
}

// RequireSeller validates the caller is a seller or an admin.
func RequireSeller(ctx context.Context) (Identity, error) {
	id, err := RequireUser(ctx)
	if err != nil {
		return Identity{}, err
	}
	if id.Role != RoleSeller && id.Role != RoleAdmin {
		return Identity{}, domainerrors.Forbidden("Seller access required")
	}
	return id, nil
}
