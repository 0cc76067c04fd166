package sessionkit

import (
	"context"
	"errors"

	"github.com/MrEthical07/sessionkit/internal"
	"github.com/MrEthical07/sessionkit/jwt"
)

// VerifyAccount marks the account named by a verification credential as
// verified. Malformed or foreign credentials yield ErrNotFound; expired ones
// yield an error matching both ErrExpired and ErrNotFound.
//
// Verification credentials are not single-use. Replaying one before it
// expires succeeds again without effect.
func (e *Engine) VerifyAccount(ctx context.Context, token string) error {
	if err := e.checkRate(ctx, ActionVerify, internal.ShortFingerprint(token)); err != nil {
		return err
	}

	claims, err := e.jwt.Verify(token, jwt.KindVerification)
	if errors.Is(err, jwt.ErrTokenExpired) {
		e.metrics.Inc(MetricVerifyFailure)
		return newKindError(msgVerifyExpired, ErrExpired, ErrNotFound)
	}
	if err != nil {
		return e.verifyFailed()
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	acc, err := e.directory.FindByEmail(sctx, claims.Email)
	if errors.Is(err, ErrAccountNotFound) {
		return e.verifyFailed()
	}
	if err != nil {
		return e.fault(ctx, "verify.lookup", err)
	}
	// A credential minted for a deleted account must not verify a new
	// account that reused the email.
	if acc.ID != claims.Subject {
		return e.verifyFailed()
	}

	if !acc.Verified {
		err := e.directory.MarkVerified(sctx, acc.ID)
		if errors.Is(err, ErrAccountNotFound) {
			return e.verifyFailed()
		}
		if err != nil {
			return e.fault(ctx, "verify.mark", err)
		}
		e.logger.InfoContext(ctx, "account verified", "account_id", acc.ID)
	}

	e.metrics.Inc(MetricVerifySuccess)
	return nil
}

func (e *Engine) verifyFailed() error {
	e.metrics.Inc(MetricVerifyFailure)
	return newKindError(msgVerifyInvalid, ErrNotFound)
}

// ResendVerification mails a fresh verification link. Unknown and already
// verified emails succeed silently so the endpoint cannot be used to probe
// for accounts.
func (e *Engine) ResendVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return newKindError(msgEmailMissing, ErrBadRequest)
	}

	if err := e.checkRate(ctx, ActionResendVerification, email); err != nil {
		return err
	}

	sctx, cancel := e.storeCtx(ctx)
	acc, err := e.directory.FindByEmail(sctx, email)
	cancel()
	if errors.Is(err, ErrAccountNotFound) {
		return nil
	}
	if err != nil {
		return e.fault(ctx, "resend.lookup", err)
	}
	if acc.Verified {
		return nil
	}

	if err := e.sendVerification(ctx, acc); err != nil {
		e.metrics.Inc(MetricNotifyFailure)
		e.warn(ctx, "VERIFICATION_MAIL_FAILED", "resend.notify", err)
	}
	return nil
}
