package refreshguard

import (
	"context"
	"strings"
)

type clientIPContextKey struct{}
type userAgentContextKey struct{}
type actorIDContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine records
// it in audit events and in the opaque context field of issued credentials.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx. It is stored in
// the credential record's context field so operators can tell sessions apart
// when listing them.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithActorID attaches the identity performing an administrative call to
// ctx. [Engine.RevokeAllBy] checks it against the target identity.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDContextKey{}, actorID)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}

func actorIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	actorID, _ := ctx.Value(actorIDContextKey{}).(string)
	return actorID
}

// contextInfo flattens caller metadata into the opaque string stored on a
// credential record. The engine never parses it back.
func contextInfo(ctx context.Context) string {
	var parts []string
	if ip := clientIPFromContext(ctx); ip != "" {
		parts = append(parts, "ip="+ip)
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		parts = append(parts, "ua="+ua)
	}
	return strings.Join(parts, " ")
}
