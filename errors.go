package sessionkit

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/sessionkit/internal/rate"
)

// Client-facing error kinds. Every error returned by an Engine operation
// matches exactly one of these with errors.Is, or ErrUnavailable.
var (
	// ErrConflict is returned when a signup collides with an existing username or email.
	ErrConflict = errors.New("conflict")
	// ErrNotFound covers unknown accounts, bad credentials and unusable verification links.
	ErrNotFound = errors.New("not found")
	// ErrInvalidToken is returned for credentials that fail signature, kind or revocation checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpired is returned for credentials presented at or after their expiry.
	ErrExpired = errors.New("expired")
	// ErrBadRequest is returned when required input is missing.
	ErrBadRequest = errors.New("bad request")
	// ErrRateLimited is matched by every *RateLimitedError.
	ErrRateLimited = rate.ErrRateLimited
	// ErrRevoked is returned by Authorize for signed-out credentials. It also matches ErrInvalidToken.
	ErrRevoked = fmt.Errorf("credential revoked: %w", ErrInvalidToken)
)

// ErrUnavailable marks internal faults: the revocation store, rate limiter
// or account directory could not be reached. It is never one of the client
// kinds and its detail is logged, not returned.
var ErrUnavailable = errors.New("session backend unavailable")

// Collaborator contract errors.
var (
	// ErrAccountNotFound must be returned by an AccountDirectory lookup that finds nothing.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateAccount must be returned by AccountDirectory.Create on a username or email collision.
	ErrDuplicateAccount = errors.New("duplicate account")
	// ErrDeliveryFailed is wrapped by Notifier implementations when a message could not be sent.
	ErrDeliveryFailed = errors.New("notification delivery failed")
)

// RateLimitedError carries the action that was throttled, how long until the
// window resets, and the caller-facing message.
type RateLimitedError = rate.LimitedError

const (
	msgConflict          = "An account with this username or email already exists."
	msgSignInFailed      = "Couldn't find an account that matching with this email and password in the database."
	msgVerifyInvalid     = "Incoming token is not valid."
	msgVerifyExpired     = "Incoming token is expired."
	msgRecoverNotFound   = "This email does not exist in the database."
	msgRefreshMissing    = "Server could not give access token without refresh token"
	msgSignUpMissing     = "Email, username and password are required."
	msgSignInMissing     = "Email or username and password are required."
	msgUsernameInvalid   = "Username must not contain @."
	msgEmailMissing      = "Email is required."
	msgTokenMissing      = "Token is required."
	msgCredentialInvalid = "Credential is not valid."
	msgCredentialExpired = "Credential is expired."
)

// kindError is a client-facing error with a fixed message that matches one
// or more taxonomy kinds.
type kindError struct {
	msg   string
	kinds []error
}

func newKindError(msg string, kinds ...error) error {
	return &kindError{msg: msg, kinds: kinds}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() []error { return e.kinds }
