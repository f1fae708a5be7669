package querycache

import (
	"context"
)

type bypassContextKey struct{}

// WithoutCache marks ctx so reads made with it go straight to the engine.
func WithoutCache(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, bypassContextKey{}, true)
}

func bypassFromContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	bypass, _ := ctx.Value(bypassContextKey{}).(bool)
	return bypass
}
