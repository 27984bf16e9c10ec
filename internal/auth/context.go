package auth

import (
	"context"

	"atlasmark.io/internal/rbac"
)

type profileContextKey struct{}
type tokenContextKey struct{}

// ContextWithProfile attaches the authenticated profile to the context.
func ContextWithProfile(ctx context.Context, profile *rbac.UserProfile) context.Context {
	if profile == nil {
		return ctx
	}
	return context.WithValue(ctx, profileContextKey{}, profile)
}

// ProfileFromContext extracts the authenticated profile from the context.
func ProfileFromContext(ctx context.Context) (*rbac.UserProfile, bool) {
	if ctx == nil {
		return nil, false
	}
	v, ok := ctx.Value(profileContextKey{}).(*rbac.UserProfile)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// ContextWithToken stores the raw bearer token inside the context.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the bearer token if it was previously attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
