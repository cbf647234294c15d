package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/taller-core/internal/tenant"
)

// Identity is the verified caller of a request, built from the live user
// row rather than from token claims.
type Identity struct {
	UserID     int64  `json:"user_id"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	WorkshopID int64  `json:"workshop_id"`

	// TokenVersion is the version the credential was checked against.
	TokenVersion int `json:"-"`
}

// IsAdmin reports whether the caller has the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// HasWorkshop reports whether the caller is assigned to a real workshop.
func (i Identity) HasWorkshop() bool {
	return tenant.IsAssigned(i.WorkshopID)
}

type identityKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// UserLookup is the part of UserRepository the resolver needs.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*User, error)
}

// Resolver turns a bearer token into an Identity.
//
// Every call verifies the token and then reloads the user row, so deleted
// accounts, password changes and role or workshop edits take effect on the
// very next request. There is no cache.
type Resolver struct {
	tokens *TokenIssuer
	users  UserLookup
}

// NewResolver creates a Resolver.
func NewResolver(tokens *TokenIssuer, users UserLookup) *Resolver {
	return &Resolver{tokens: tokens, users: users}
}

// Resolve validates token and returns the caller's live identity.
// Every failure wraps ErrUnauthorized.
func (r *Resolver) Resolve(ctx context.Context, token string) (Identity, error) {
	claims, err := r.tokens.Verify(token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	return r.Reload(ctx, claims.UserID, claims.TokenVersion)
}

// Reload rebuilds the identity of userID from its row, failing unless the
// stored token version still equals tokenVersion. Used for credentials
// derived from a token, such as WebSocket tickets.
func (r *Resolver) Reload(ctx context.Context, userID int64, tokenVersion int) (Identity, error) {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Identity{}, fmt.Errorf("%w: %w", ErrUnauthorized, ErrUserNotFound)
		}
		return Identity{}, fmt.Errorf("resolving identity: %w", err)
	}

	if user.TokenVersion != tokenVersion {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthorized, ErrTokenStale)
	}

	return Identity{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		WorkshopID:   user.WorkshopID,
		TokenVersion: user.TokenVersion,
	}, nil
}
