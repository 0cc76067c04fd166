package sessionkit

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/sessionkit/internal/rate"
	"github.com/MrEthical07/sessionkit/password"
	"github.com/MrEthical07/sessionkit/revocation"
)

// Config holds every tunable of the Engine. Start from DefaultConfig and
// override fields; the Builder validates the result.
type Config struct {
	JWT           JWTConfig
	Verification  VerificationConfig
	Recovery      RecoveryConfig
	RefreshCookie CookieConfig
	RateLimits    map[Action]RateLimitPolicy
	Revocation    RevocationConfig
	Timeouts      TimeoutConfig
	Password      password.Config
	Metrics       MetricsConfig
}

// RateLimitPolicy allows MaxPoints requests per Window. A zero MaxPoints
// disables limiting for the action.
type RateLimitPolicy = rate.Policy

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures credential signing. PrivateKey is the HMAC secret for
// hs256 or the signing key for ed25519. Leeway only covers clock skew on the
// issued-at claim; expiry is always strict.
type JWTConfig struct {
	SigningMethod string
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Leeway        time.Duration
}

/*
====================================
ACCOUNT FLOWS CONFIG
====================================
*/

// VerificationConfig controls the link mailed after signup. The link is
// AppURL + VerifyPath + "?token=<credential>".
type VerificationConfig struct {
	TokenTTL   time.Duration
	AppURL     string
	VerifyPath string
}

// RecoveryConfig controls account recovery.
type RecoveryConfig struct {
	PasswordLength int
}

// CookieConfig holds the attributes of the refresh credential cookie.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

/*
====================================
INFRASTRUCTURE CONFIG
====================================
*/

// RevocationConfig configures the denylist.
type RevocationConfig struct {
	Prefix string
}

// TimeoutConfig bounds every external call. Store covers Redis and the
// account directory; Notify covers mail delivery.
type TimeoutConfig struct {
	Store  time.Duration
	Notify time.Duration
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

const (
	rateLimitLoginMessage   = "You have reached the limit of login requests. You have to wait 5 minutes before trying again."
	rateLimitSignUpMessage  = "You can only create 1 account in 60 seconds"
	rateLimitGenericMessage = "You have reached the limit. You have to wait 5 minutes before trying again."
	rateLimitResendMessage  = "You can only request 1 verification email in 5 minutes"
)

// DefaultRateLimits returns the stock quota table.
func DefaultRateLimits() map[Action]RateLimitPolicy {
	return map[Action]RateLimitPolicy{
		ActionSignIn:             {MaxPoints: 5, Window: 300 * time.Second, Message: rateLimitLoginMessage},
		ActionSignUp:             {MaxPoints: 1, Window: 60 * time.Second, Message: rateLimitSignUpMessage},
		ActionRecover:            {MaxPoints: 3, Window: 300 * time.Second, Message: rateLimitGenericMessage},
		ActionVerify:             {MaxPoints: 3, Window: 300 * time.Second, Message: rateLimitGenericMessage},
		ActionResendVerification: {MaxPoints: 1, Window: 300 * time.Second, Message: rateLimitResendMessage},
	}
}

// DefaultConfig returns a Config with every field except the signing keys
// and AppURL filled in.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SigningMethod: "hs256",
			Issuer:        "sessionkit",
			AccessTTL:     time.Hour,
			RefreshTTL:    7 * 24 * time.Hour,
		},
		Verification: VerificationConfig{
			TokenTTL:   15 * time.Minute,
			VerifyPath: "/api/v1/auth/account-verification",
		},
		Recovery: RecoveryConfig{
			PasswordLength: 12,
		},
		RefreshCookie: CookieConfig{
			Name:     "rt",
			Path:     "/api/v1/auth/refresh-token",
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		},
		RateLimits: DefaultRateLimits(),
		Revocation: RevocationConfig{
			Prefix: revocation.DefaultPrefix,
		},
		Timeouts: TimeoutConfig{
			Store:  2 * time.Second,
			Notify: 10 * time.Second,
		},
		Password: password.DefaultConfig(),
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.RateLimits = maps.Clone(cfg.RateLimits)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
	default:
		return fmt.Errorf("unsupported JWT signing method %q", c.JWT.SigningMethod)
	}

	// Verification
	if c.Verification.TokenTTL <= 0 {
		return errors.New("Verification TokenTTL must be > 0")
	}
	if c.Verification.AppURL == "" {
		return errors.New("Verification AppURL is required")
	}
	if u, err := url.Parse(c.Verification.AppURL); err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("Verification AppURL must be an absolute URL")
	}
	if !strings.HasPrefix(c.Verification.VerifyPath, "/") {
		return errors.New("Verification VerifyPath must start with /")
	}

	// Recovery
	if c.Recovery.PasswordLength < 8 {
		return errors.New("Recovery PasswordLength must be >= 8")
	}

	// Refresh cookie
	if c.RefreshCookie.Name == "" {
		return errors.New("RefreshCookie Name is required")
	}
	if c.RefreshCookie.SameSite == http.SameSiteNoneMode && !c.RefreshCookie.Secure {
		return errors.New("RefreshCookie SameSite=None requires Secure")
	}

	// Rate limits
	for action, p := range c.RateLimits {
		if p.MaxPoints < 0 {
			return fmt.Errorf("RateLimits[%s] MaxPoints must be >= 0", action)
		}
		if p.MaxPoints > 0 && p.Window <= 0 {
			return fmt.Errorf("RateLimits[%s] Window must be > 0", action)
		}
	}

	// Timeouts
	if c.Timeouts.Store <= 0 {
		return errors.New("Timeouts Store must be > 0")
	}
	if c.Timeouts.Notify <= 0 {
		return errors.New("Timeouts Notify must be > 0")
	}

	return c.Password.Validate()
}
