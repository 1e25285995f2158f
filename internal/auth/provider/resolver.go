package provider

import (
	"context"

	"climatecentre/internal/session"
)

// Resolver adapts the auth service to per-request bearer resolution for
// the route guard.
type Resolver struct {
	svc AuthService
}

func NewResolver(svc AuthService) *Resolver {
	return &Resolver{svc: svc}
}

func (r *Resolver) ResolveToken(ctx context.Context, bearer string) (*session.Session, error) {
	backing, user, err := r.svc.Resolve(ctx, bearer)
	if err != nil {
		return nil, err
	}
	return &session.Session{
		Token:     bearer,
		User:      session.User{ID: user.ID, Email: user.Email},
		ExpiresAt: backing.ExpiresAt,
	}, nil
}
