package accounts

import (
	"context"

	"github.com/goliatone/go-router"
)

var actorCtxKey = &contextKey{"actor"}

type contextKey struct {
	name string
}

// WithActorContext sets the Actor in the given context
func WithActorContext(r context.Context, actor *Actor) context.Context {
	return context.WithValue(r, actorCtxKey, actor)
}

// ActorFromContext finds the actor from the context.
func ActorFromContext(ctx context.Context) (*Actor, bool) {
	raw, ok := ctx.Value(actorCtxKey).(*Actor)
	return raw, ok
}

// GetRouterActor extracts the Actor from the router context
func GetRouterActor(ctx router.Context, key string) (*Actor, bool) {
	if key == "" {
		key = "actor"
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	actor, ok := raw.(*Actor)
	return actor, ok
}
