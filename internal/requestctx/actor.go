// Package requestctx carries the resolved caller through a request context.
package requestctx

import (
	"context"

	"deedflow/internal/domain"
)

type actorContextKey struct{}

// WithActor stores the calling actor in context.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor stored in context and whether one was set.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	if ctx == nil {
		return domain.Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}
