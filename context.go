package sessionkit

import "context"

type clientIPContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. Rate limits are keyed
// on it; without it they fall back to the request's email or username.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// ClientIPFromContext returns the IP attached with WithClientIP.
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
