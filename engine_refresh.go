package sessionkit

import (
	"context"
	"errors"

	"github.com/MrEthical07/sessionkit/jwt"
)

// Refresh mints a new access credential from a refresh credential. The
// refresh credential is not rotated and stays usable until it expires or is
// revoked.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, newKindError(msgRefreshMissing, ErrBadRequest)
	}

	claims, err := e.verify(refreshToken, jwt.KindRefresh)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		return nil, err
	}

	if err := e.checkRevoked(ctx, refreshToken, "refresh"); err != nil {
		if errors.Is(err, ErrRevoked) {
			e.metrics.Inc(MetricRefreshFailure)
		}
		return nil, err
	}

	acc := Account{
		ID:       claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
		Role:     claims.Role,
	}
	access, exp, err := e.mint(jwt.KindAccess, acc, e.config.JWT.AccessTTL)
	if err != nil {
		return nil, e.fault(ctx, "refresh.mint", err)
	}

	e.metrics.Inc(MetricRefreshSuccess)
	return &RefreshResult{AccessToken: access, AccessExpiresAt: exp}, nil
}
