package common

import "context"

// RequestContext carries per-request identity established by the HTTP
// middleware. When absent (nil) the request is anonymous, which is the
// normal case when auth is disabled.
type RequestContext struct {
	Subject       string
	CorrelationID string
}

type contextKey int

const requestContextKey contextKey = iota

// WithRequestContext stores a RequestContext in the request context.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// RequestContextFromContext retrieves the RequestContext from context, or nil if absent.
func RequestContextFromContext(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(requestContextKey).(*RequestContext)
	return rc
}

// ResolveSubject returns the authenticated subject, or "anonymous".
func ResolveSubject(ctx context.Context) string {
	if rc := RequestContextFromContext(ctx); rc != nil && rc.Subject != "" {
		return rc.Subject
	}
	return "anonymous"
}

// ResolveCorrelationID returns the request correlation ID, or empty string.
func ResolveCorrelationID(ctx context.Context) string {
	if rc := RequestContextFromContext(ctx); rc != nil {
		return rc.CorrelationID
	}
	return ""
}
