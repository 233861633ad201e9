// Package requestctx carries request identity through context.
package requestctx

import "context"

type siteDomainContextKey struct{}

type userIDContextKey struct{}

// WithSiteDomain stores the host the request was made against.
func WithSiteDomain(ctx context.Context, domain string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, siteDomainContextKey{}, domain)
}

// SiteDomainFromContext returns the request host or "".
func SiteDomainFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(siteDomainContextKey{}).(string)
	return value
}

// WithUserID stores the acting user.
func WithUserID(ctx context.Context, userID int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, userIDContextKey{}, userID)
}

// UserIDFromContext returns the acting user, false when unset.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	value, ok := ctx.Value(userIDContextKey{}).(int64)
	return value, ok
}
