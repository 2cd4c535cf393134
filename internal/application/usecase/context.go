// internal/application/usecase/context.go
package usecase

import (
	"context"

	"storefront/internal/domain/identity"
)

// IdentitySource is the auth collaborator: it answers who is browsing now.
// An error means the answer is temporarily unavailable.
type IdentitySource interface {
	CurrentIdentity(ctx context.Context) (identity.Identity, error)
}

// IdentitySourceFunc adapts a function to IdentitySource.
type IdentitySourceFunc func(ctx context.Context) (identity.Identity, error)

func (f IdentitySourceFunc) CurrentIdentity(ctx context.Context) (identity.Identity, error) {
	return f(ctx)
}

// ContextIdentitySource reads the identity the auth middleware put on the
// request context. A context without one is ErrIdentityUnavailable.
type ContextIdentitySource struct{}

func (ContextIdentitySource) CurrentIdentity(ctx context.Context) (identity.Identity, error) {
	id, ok := identity.FromContext(ctx)
	if !ok {
		return identity.Identity{}, ErrIdentityUnavailable
	}
	return id, nil
}
