// Package actor carries the authenticated operator through request contexts so that
// adapters can forward credentials and attribute audit records.
package actor

import "context"

type contextKey struct{}

// Actor identifies the operator on whose behalf a call is made.
type Actor struct {
	UserID      string
	Role        string
	AccessToken string
	IPAddress   string
	UserAgent   string
}

// With returns a copy of ctx carrying a.
func With(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

// From returns the actor stored on ctx, if any.
func From(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	a, ok := ctx.Value(contextKey{}).(Actor)
	return a, ok
}
