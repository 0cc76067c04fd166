package sessionkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/sessionkit/password"
)

// RecoverAccount replaces the account's password with a random one and mails
// it to the account email. The new password is never returned.
//
// Every failure after the quota check, whether an unknown email, a directory
// error or a delivery error, is reported as the same ErrNotFound. The real
// cause is logged.
func (e *Engine) RecoverAccount(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return newKindError(msgEmailMissing, ErrBadRequest)
	}

	if err := e.checkRate(ctx, ActionRecover, email); err != nil {
		return err
	}

	sctx, cancel := e.storeCtx(ctx)
	acc, err := e.directory.FindByEmail(sctx, email)
	cancel()
	if err != nil {
		return e.recoverFailed(ctx, "recover.lookup", err)
	}

	secret, err := password.GenerateSecret(e.config.Recovery.PasswordLength)
	if err != nil {
		return e.recoverFailed(ctx, "recover.generate", err)
	}
	digest, err := e.hasher.Hash(secret)
	if err != nil {
		return e.recoverFailed(ctx, "recover.hash", err)
	}
	wctx, wcancel := e.storeCtx(ctx)
	err = e.directory.UpdatePasswordDigest(wctx, acc.ID, digest)
	wcancel()
	if err != nil {
		return e.recoverFailed(ctx, "recover.persist", err)
	}

	nctx, ncancel := e.notifyCtx(ctx)
	defer ncancel()
	err = e.notifier.Send(nctx, Message{
		Receiver: acc.Email,
		Subject:  fmt.Sprintf("Account Recovery [%s]", acc.Username),
		Text: fmt.Sprintf("By your request we have set your password as '%s'. "+
			"Please sign in and update your account password as soon as possible.", secret),
	})
	if err != nil {
		e.metrics.Inc(MetricNotifyFailure)
		return e.recoverFailed(ctx, "recover.notify", err)
	}

	e.metrics.Inc(MetricRecoverySuccess)
	e.logger.InfoContext(ctx, "account recovered", "account_id", acc.ID)
	return nil
}

func (e *Engine) recoverFailed(ctx context.Context, op string, err error) error {
	e.metrics.Inc(MetricRecoveryFailure)
	if !errors.Is(err, ErrAccountNotFound) {
		e.warn(ctx, "ACCOUNT_RECOVERY_FAILED", op, err)
	}
	return newKindError(msgRecoverNotFound, ErrNotFound)
}
