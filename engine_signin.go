package sessionkit

import (
	"context"
	"errors"

	"github.com/MrEthical07/sessionkit/jwt"
)

// SignIn exchanges an identifier and password for an access credential,
// plus a refresh credential when RememberMe is set.
//
// The quota is consumed before any credential check, so an over-quota
// attempt fails even with the right password. Unknown identifiers and wrong
// passwords are indistinguishable: same error, same message, and a full
// digest verification in both cases.
func (e *Engine) SignIn(ctx context.Context, req SignInRequest) (*SignInResult, error) {
	identifier := normalizeIdentifier(req.Identifier)

	if err := e.checkRate(ctx, ActionSignIn, identifier); err != nil {
		return nil, err
	}
	if identifier == "" || req.Password == "" {
		return nil, newKindError(msgSignInMissing, ErrBadRequest)
	}

	acc, err := e.authenticate(ctx, identifier, req.Password)
	if err != nil {
		return nil, err
	}

	access, accessExp, err := e.mint(jwt.KindAccess, acc, e.config.JWT.AccessTTL)
	if err != nil {
		return nil, e.fault(ctx, "signin.mint_access", err)
	}

	result := &SignInResult{
		AccessToken:     access,
		AccessExpiresAt: accessExp,
		Account:         acc.Public(),
	}

	if req.RememberMe {
		refresh, refreshExp, err := e.mint(jwt.KindRefresh, acc, e.config.JWT.RefreshTTL)
		if err != nil {
			return nil, e.fault(ctx, "signin.mint_refresh", err)
		}
		cookie := e.config.RefreshCookie
		result.Refresh = &RefreshCredential{
			Token:     refresh,
			ExpiresAt: refreshExp,
			MaxAge:    int(e.config.JWT.RefreshTTL.Seconds()),
			Name:      cookie.Name,
			Path:      cookie.Path,
			Domain:    cookie.Domain,
			HttpOnly:  true,
			Secure:    cookie.Secure,
			SameSite:  cookie.SameSite,
		}
	}

	e.upgradeDigest(ctx, acc, req.Password)

	e.metrics.Inc(MetricSignInSuccess)
	e.logger.InfoContext(ctx, "signed in", "account_id", acc.ID, "remember_me", req.RememberMe)

	return result, nil
}

// authenticate resolves identifier and checks plain against the stored
// digest. Every credential failure collapses into one ErrNotFound.
func (e *Engine) authenticate(ctx context.Context, identifier, plain string) (Account, error) {
	fail := func() (Account, error) {
		e.metrics.Inc(MetricSignInFailure)
		return Account{}, newKindError(msgSignInFailed, ErrNotFound)
	}

	sctx, cancel := e.storeCtx(ctx)
	acc, err := e.directory.FindByIdentifier(sctx, identifier)
	cancel()
	if errors.Is(err, ErrAccountNotFound) {
		_, _ = e.hasher.Verify(plain, e.dummyDigest)
		return fail()
	}
	if err != nil {
		return Account{}, e.fault(ctx, "signin.lookup", err)
	}

	ok, err := e.hasher.Verify(plain, acc.PasswordDigest)
	if err != nil {
		e.warn(ctx, "PASSWORD_DIGEST_UNREADABLE", "signin.verify", err)
		return fail()
	}
	if !ok {
		return fail()
	}
	return acc, nil
}

// upgradeDigest re-hashes plain when acc's digest uses weaker parameters
// than the current configuration. Failures are logged only.
func (e *Engine) upgradeDigest(ctx context.Context, acc Account, plain string) {
	needs, err := e.hasher.NeedsUpgrade(acc.PasswordDigest)
	if err != nil || !needs {
		return
	}

	digest, err := e.hasher.Hash(plain)
	if err != nil {
		e.warn(ctx, "PASSWORD_REHASH_FAILED", "signin.rehash", err)
		return
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	if err := e.directory.UpdatePasswordDigest(sctx, acc.ID, digest); err != nil {
		e.warn(ctx, "PASSWORD_REHASH_FAILED", "signin.rehash", err)
		return
	}
	e.metrics.Inc(MetricPasswordRehash)
}
