package identity

import (
	"context"
)

var userCtxKey = &contextKey{"user"}
var actorCtxKey = &contextKey{"actor"}

type contextKey struct {
	name string
}

// WithUserContext sets the User in the given context
func WithUserContext(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// UserFromContext finds the user from the context.
func UserFromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithActorContext sets the ActorRef in the given context
func WithActorContext(ctx context.Context, actor ActorRef) context.Context {
	return context.WithValue(ctx, actorCtxKey, actor)
}

// ActorFromContext finds the actor from the context; the zero ActorRef and
// false when the request never went through authentication.
func ActorFromContext(ctx context.Context) (ActorRef, bool) {
	raw, ok := ctx.Value(actorCtxKey).(ActorRef)
	return raw, ok
}

// HasRoleInContext checks role membership for the context's actor.
func HasRoleInContext(ctx context.Context, role Role) bool {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return false
	}
	for _, r := range actor.Roles {
		if r == role {
			return true
		}
	}
	return false
}
