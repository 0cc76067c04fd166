package sessionkit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/MrEthical07/sessionkit/jwt"
)

// SignUp creates an unverified account and mails it a verification link.
//
// A duplicate username or email yields ErrConflict and leaves the directory
// unchanged. A failed notification is logged and counted but does not fail
// the call, because the account already exists; ResendVerification recovers
// from it.
func (e *Engine) SignUp(ctx context.Context, req SignUpRequest) (*SignUpResult, error) {
	req.Email = normalizeEmail(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Email == "" || req.Username == "" || req.Password == "" {
		return nil, newKindError(msgSignUpMissing, ErrBadRequest)
	}
	// Sign-in routes identifiers containing "@" to the email lookup.
	if strings.Contains(req.Username, "@") {
		return nil, newKindError(msgUsernameInvalid, ErrBadRequest)
	}

	if err := e.checkRate(ctx, ActionSignUp, req.Email); err != nil {
		return nil, err
	}

	digest, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, e.fault(ctx, "signup.hash", err)
	}

	sctx, cancel := e.storeCtx(ctx)
	acc, err := e.directory.Create(sctx, NewAccount{
		Username:       req.Username,
		Email:          req.Email,
		PasswordDigest: digest,
		FullName:       req.FullName,
	})
	cancel()
	if errors.Is(err, ErrDuplicateAccount) {
		e.metrics.Inc(MetricSignUpConflict)
		return nil, newKindError(msgConflict, ErrConflict)
	}
	if err != nil {
		return nil, e.fault(ctx, "signup.create", err)
	}

	e.metrics.Inc(MetricSignUpSuccess)
	e.logger.InfoContext(ctx, "account created", "account_id", acc.ID)

	if err := e.sendVerification(ctx, acc); err != nil {
		e.metrics.Inc(MetricNotifyFailure)
		e.warn(ctx, "VERIFICATION_MAIL_FAILED", "signup.notify", err)
	}

	return &SignUpResult{AccountID: acc.ID, Account: acc.Public()}, nil
}

// sendVerification mints a verification credential for acc and mails the link.
func (e *Engine) sendVerification(ctx context.Context, acc Account) error {
	token, _, err := e.mint(jwt.KindVerification, acc, e.config.Verification.TokenTTL)
	if err != nil {
		return err
	}

	nctx, cancel := e.notifyCtx(ctx)
	defer cancel()

	err = e.notifier.Send(nctx, Message{
		Receiver: acc.Email,
		Subject:  fmt.Sprintf("Verify Your Account [%s]", acc.Username),
		Text:     e.verificationLink(token),
	})
	if err != nil {
		return err
	}
	e.metrics.Inc(MetricVerificationSent)
	return nil
}

func (e *Engine) verificationLink(token string) string {
	return strings.TrimRight(e.config.Verification.AppURL, "/") +
		e.config.Verification.VerifyPath +
		"?token=" + url.QueryEscape(token)
}
