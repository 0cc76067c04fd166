package sessionkit

import (
	"context"
	"errors"

	"github.com/MrEthical07/sessionkit/internal"
	"github.com/MrEthical07/sessionkit/jwt"
)

// SignOut revokes an access credential for the rest of its lifetime. It
// returns only after the denylist write is acknowledged. An already expired
// credential needs no revocation and succeeds.
func (e *Engine) SignOut(ctx context.Context, accessToken string) error {
	if err := e.revoke(ctx, accessToken, jwt.KindAccess, "signout"); err != nil {
		return err
	}
	e.metrics.Inc(MetricSignOut)
	return nil
}

// RevokeRefresh denylists a refresh credential so later Refresh calls with it
// fail. Transport layers call it on sign-out when the refresh cookie is
// present.
func (e *Engine) RevokeRefresh(ctx context.Context, refreshToken string) error {
	return e.revoke(ctx, refreshToken, jwt.KindRefresh, "signout.refresh")
}

func (e *Engine) revoke(ctx context.Context, token string, kind jwt.Kind, op string) error {
	if token == "" {
		return newKindError(msgTokenMissing, ErrInvalidToken)
	}

	claims, err := e.jwt.Inspect(token, kind)
	if err != nil {
		return newKindError(msgCredentialInvalid, ErrInvalidToken)
	}

	remaining := claims.Expiry().Sub(e.now())
	if remaining <= 0 {
		return nil
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	if err := e.revocation.Revoke(sctx, token, remaining); err != nil {
		return e.fault(ctx, op, err)
	}

	e.logger.InfoContext(ctx, "credential revoked",
		"kind", kind,
		"account_id", claims.Subject,
		"token", internal.ShortFingerprint(token),
	)
	return nil
}

// Authorize validates an access credential and checks the denylist. A
// revoked credential yields ErrRevoked. If the denylist cannot be read the
// call fails with ErrUnavailable rather than admitting the credential.
func (e *Engine) Authorize(ctx context.Context, accessToken string) (*Principal, error) {
	if e.metrics.LatencyEnabled() {
		start := e.now()
		defer func() { e.metrics.Observe(e.now().Sub(start)) }()
	}

	claims, err := e.verify(accessToken, jwt.KindAccess)
	if err != nil {
		e.metrics.Inc(MetricAuthorizeRejected)
		return nil, err
	}

	if err := e.checkRevoked(ctx, accessToken, "authorize"); err != nil {
		e.metrics.Inc(MetricAuthorizeRejected)
		return nil, err
	}

	e.metrics.Inc(MetricAuthorizeSuccess)
	return &Principal{
		AccountID: claims.Subject,
		Username:  claims.Username,
		Email:     claims.Email,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.Expiry(),
	}, nil
}

// verify maps credential parse failures onto the client taxonomy.
func (e *Engine) verify(token string, kind jwt.Kind) (*jwt.Claims, error) {
	if token == "" {
		return nil, newKindError(msgTokenMissing, ErrInvalidToken)
	}
	claims, err := e.jwt.Verify(token, kind)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, newKindError(msgCredentialExpired, ErrExpired)
	default:
		return nil, newKindError(msgCredentialInvalid, ErrInvalidToken)
	}
}

func (e *Engine) checkRevoked(ctx context.Context, token, op string) error {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	revoked, err := e.revocation.IsRevoked(sctx, token)
	if err != nil {
		return e.fault(ctx, op+".revocation", err)
	}
	if revoked {
		return ErrRevoked
	}
	return nil
}
