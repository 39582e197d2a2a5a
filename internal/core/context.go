package core

import "context"

// AnonymousOwner is recorded when no authenticated caller is known.
const AnonymousOwner = "anonymous"

type contextKey string

const (
	ctxKeyOwner    contextKey = "owner_id"
	ctxKeyClientIP contextKey = "client_ip"
)

// ContextWithOwner records the authenticated caller for the request.
func ContextWithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ctxKeyOwner, ownerID)
}

// OwnerFromContext returns the caller recorded by ContextWithOwner, or
// AnonymousOwner.
func OwnerFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyOwner).(string); ok && v != "" {
		return v
	}
	return AnonymousOwner
}

// ContextWithClientIP adds the client address for logging.
func ContextWithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyClientIP, ip)
}

// ClientIPFromContext extracts the client address.
func ClientIPFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyClientIP).(string); ok {
		return v
	}
	return ""
}
