package api

import (
	"context"

	"marketstall/internal/actor"
)

type ctxKey string

const ctxKeyActor ctxKey = "actor"

func WithActor(ctx context.Context, a actor.Actor) context.Context {
	return context.WithValue(ctx, ctxKeyActor, a)
}

// ActorFromContext returns the authenticated caller, or an anonymous vendor.
func ActorFromContext(ctx context.Context) actor.Actor {
	if a, ok := ctx.Value(ctxKeyActor).(actor.Actor); ok {
		return a
	}
	return actor.Vendor()
}
