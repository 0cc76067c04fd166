package sessionkit

import (
	"context"
	"net/http"
	"time"
)

// Action names a rate-limited operation.
type Action string

const (
	ActionSignIn             Action = "signin"
	ActionSignUp             Action = "signup"
	ActionRecover            Action = "recover"
	ActionVerify             Action = "verify"
	ActionResendVerification Action = "resend-verification"
)

// Account is a stored account record.
type Account struct {
	ID             string
	Username       string
	Email          string
	PasswordDigest string
	FullName       string
	Verified       bool
	Role           int
	CreatedAt      time.Time
}

// Public returns the sanitized view of a.
func (a Account) Public() PublicAccount {
	return PublicAccount{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		FullName:  a.FullName,
		Verified:  a.Verified,
		Role:      a.Role,
		CreatedAt: a.CreatedAt,
	}
}

// PublicAccount is an Account without its password digest. It is the only
// account shape that leaves the Engine.
type PublicAccount struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName,omitempty"`
	Verified  bool      `json:"verified"`
	Role      int       `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewAccount is the input to AccountDirectory.Create.
type NewAccount struct {
	Username       string
	Email          string
	PasswordDigest string
	FullName       string
}

// AccountDirectory is the persistent account store. Lookups that find
// nothing return ErrAccountNotFound; Create returns ErrDuplicateAccount on a
// username or email collision and leaves the directory unchanged.
type AccountDirectory interface {
	Create(ctx context.Context, acc NewAccount) (Account, error)
	FindByEmail(ctx context.Context, email string) (Account, error)
	// FindByIdentifier matches either email or username.
	FindByIdentifier(ctx context.Context, identifier string) (Account, error)
	MarkVerified(ctx context.Context, id string) error
	UpdatePasswordDigest(ctx context.Context, id, digest string) error
}

// Message is an outbound email.
type Message struct {
	Receiver string
	Subject  string
	Text     string
}

// Notifier delivers messages. Failures wrap ErrDeliveryFailed.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// SignUpRequest is the input to Engine.SignUp.
type SignUpRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"fullName,omitempty"`
}

// SignUpResult is returned by Engine.SignUp.
type SignUpResult struct {
	AccountID string
	Account   PublicAccount
}

// SignInRequest is the input to Engine.SignIn. Identifier is an email or a
// username.
type SignInRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// SignInResult is returned by Engine.SignIn. Refresh is nil unless the
// request asked to be remembered.
type SignInResult struct {
	AccessToken     string
	AccessExpiresAt time.Time
	Account         PublicAccount
	Refresh         *RefreshCredential
}

// RefreshCredential is a refresh token plus the cookie it must travel in.
// Transport layers write it as a cookie only, never into a response body.
type RefreshCredential struct {
	Token     string
	ExpiresAt time.Time
	MaxAge    int
	Name      string
	Path      string
	Domain    string
	HttpOnly  bool
	Secure    bool
	SameSite  http.SameSite
}

// Cookie renders c as an http.Cookie.
func (c *RefreshCredential) Cookie() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Token,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  c.ExpiresAt,
		MaxAge:   c.MaxAge,
		HttpOnly: c.HttpOnly,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	}
}

// RefreshResult is returned by Engine.Refresh.
type RefreshResult struct {
	AccessToken     string
	AccessExpiresAt time.Time
}

// Principal is the identity behind a valid, unrevoked access credential.
type Principal struct {
	AccountID string
	Username  string
	Email     string
	Role      int
	TokenID   string
	ExpiresAt time.Time
}
