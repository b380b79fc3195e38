// File: internal/authstate/resolver.go
package authstate

import (
	"context"
	"time"

	"fitcoach_backend/internal/common"
	"fitcoach_backend/internal/guard"

	"github.com/gin-gonic/gin"
)

// StoreResolver resolves a request's guard.Subject from its client's Store, waiting up to
// wait for a pending profile fetch.
type StoreResolver struct {
	registry *Registry
	wait     time.Duration
}

var _ guard.Resolver = (*StoreResolver)(nil)

// NewStoreResolver creates a StoreResolver.
func NewStoreResolver(registry *Registry, wait time.Duration) *StoreResolver {
	return &StoreResolver{registry: registry, wait: wait}
}

func (r *StoreResolver) Resolve(c *gin.Context) (guard.Subject, error) {
	clientID := common.GetClientIDFromContext(c)
	if clientID == "" {
		return guard.Subject{}, nil
	}
	store, err := r.registry.Get(c.Request.Context(), clientID)
	if err != nil {
		return guard.Subject{}, err
	}
	v := r.await(c.Request.Context(), store)
	return SubjectOf(v), nil
}

// await returns the settled View, or the still-resolving one once wait elapses. A resolving
// view has no profile, so the guard treats it as a session without a role.
func (r *StoreResolver) await(ctx context.Context, store *Store) View {
	waitCtx, cancel := context.WithTimeout(ctx, r.wait)
	defer cancel()
	v, _ := store.Await(waitCtx)
	return v
}

// SubjectOf converts a View for the guard.
func SubjectOf(v View) guard.Subject {
	return guard.Subject{Session: v.Session, Profile: v.Profile}
}
