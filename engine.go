package sessionkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/MrEthical07/sessionkit/internal/logging"
	"github.com/MrEthical07/sessionkit/internal/rate"
	"github.com/MrEthical07/sessionkit/jwt"
	"github.com/MrEthical07/sessionkit/password"
	"github.com/MrEthical07/sessionkit/revocation"
)

// Engine runs the credential and session lifecycle. It is immutable after
// Build and safe for concurrent use.
type Engine struct {
	config      Config
	jwt         *jwt.Manager
	hasher      *password.Argon2
	limiter     *rate.Limiter
	revocation  *revocation.Store
	directory   AccountDirectory
	notifier    Notifier
	logger      *slog.Logger
	metrics     *Metrics
	now         func() time.Time
	dummyDigest string
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return (*Metrics)(nil).Snapshot()
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

func (e *Engine) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.config.Timeouts.Store)
}

func (e *Engine) notifyCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.config.Timeouts.Notify)
}

// checkRate consumes one point of action's quota. The caller is the client
// IP when known, else fallback.
func (e *Engine) checkRate(ctx context.Context, action Action, fallback string) error {
	policy, ok := e.config.RateLimits[action]
	if !ok || policy.MaxPoints <= 0 {
		return nil
	}

	caller := ClientIPFromContext(ctx)
	if caller == "" {
		caller = fallback
	}
	if caller == "" {
		caller = "anonymous"
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	_, err := e.limiter.CheckAndIncrement(sctx, string(action), caller, policy)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrRateLimited):
		e.metrics.Inc(MetricRateLimitHit)
		e.logger.InfoContext(ctx, "rate limited", "action", action)
		return err
	default:
		return e.fault(ctx, "ratelimit."+string(action), err)
	}
}

// fault wraps an infrastructure error as ErrUnavailable and logs it.
func (e *Engine) fault(ctx context.Context, op string, err error) error {
	e.metrics.Inc(MetricBackendFailure)
	wrapped := oops.
		Code("SESSION_BACKEND_FAILURE").
		With("operation", op).
		Wrap(fmt.Errorf("%w: %w", ErrUnavailable, err))
	logging.LogError(ctx, e.logger, "session backend failure", wrapped)
	return wrapped
}

// warn logs a best-effort failure that did not fail the request.
func (e *Engine) warn(ctx context.Context, code, op string, err error) {
	logging.LogWarn(ctx, e.logger, "best-effort step failed",
		oops.Code(code).With("operation", op).Wrap(err))
}

// mint signs a credential of kind for acc.
func (e *Engine) mint(kind jwt.Kind, acc Account, ttl time.Duration) (string, time.Time, error) {
	claims := jwt.Claims{
		Kind:     kind,
		Username: acc.Username,
		Email:    acc.Email,
	}
	claims.Subject = acc.ID
	if kind != jwt.KindVerification {
		claims.Role = acc.Role
	}

	token, stamped, err := e.jwt.Sign(claims, ttl)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, stamped.Expiry(), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizeIdentifier lowercases emails and leaves usernames as typed.
func normalizeIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return strings.ToLower(identifier)
	}
	return identifier
}
