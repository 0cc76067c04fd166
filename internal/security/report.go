package security

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/MrEthical07/sessionkit"
)

// Thresholds below which Warnings flags a setting.
const (
	minArgon2Memory = 19 * 1024
	maxAccessTTL    = 24 * time.Hour
	maxLeeway       = time.Minute
)

type PasswordReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

type Report struct {
	DevMode          bool
	SigningAlgorithm string
	AsymmetricKeys   bool
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	VerificationTTL  time.Duration
	Leeway           time.Duration
	Argon2           PasswordReport
	CookieSecure     bool
	CookieSameSite   string
	// LimitedActions lists actions with an active quota; UnlimitedActions
	// the rest. Both are sorted.
	LimitedActions   []string
	UnlimitedActions []string
}

// BuildReport extracts the report from cfg.
func BuildReport(cfg sessionkit.Config, dev bool) Report {
	r := Report{
		DevMode:          dev,
		SigningAlgorithm: cfg.JWT.SigningMethod,
		AsymmetricKeys:   cfg.JWT.SigningMethod == "ed25519",
		AccessTTL:        cfg.JWT.AccessTTL,
		RefreshTTL:       cfg.JWT.RefreshTTL,
		VerificationTTL:  cfg.Verification.TokenTTL,
		Leeway:           cfg.JWT.Leeway,
		Argon2: PasswordReport{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		},
		CookieSecure:   cfg.RefreshCookie.Secure,
		CookieSameSite: sameSiteName(cfg.RefreshCookie.SameSite),
	}

	for _, action := range []sessionkit.Action{
		sessionkit.ActionSignIn,
		sessionkit.ActionSignUp,
		sessionkit.ActionRecover,
		sessionkit.ActionVerify,
		sessionkit.ActionResendVerification,
	} {
		if p, ok := cfg.RateLimits[action]; ok && p.MaxPoints > 0 {
			r.LimitedActions = append(r.LimitedActions, string(action))
		} else {
			r.UnlimitedActions = append(r.UnlimitedActions, string(action))
		}
	}
	sort.Strings(r.LimitedActions)
	sort.Strings(r.UnlimitedActions)

	return r
}

// Warnings lists settings that are valid but weaker than a production
// deployment should run with.
func (r Report) Warnings() []string {
	var out []string
	if r.DevMode {
		out = append(out, "dev mode: state is in memory and mail bodies are logged")
	}
	if !r.CookieSecure {
		out = append(out, "refresh cookie is sent over plain HTTP")
	}
	if r.AccessTTL > maxAccessTTL {
		out = append(out, fmt.Sprintf("access credentials live %s; revocation is the only way to end them early", r.AccessTTL))
	}
	if r.Leeway > maxLeeway {
		out = append(out, fmt.Sprintf("clock leeway %s accepts credentials issued that far in the future", r.Leeway))
	}
	if r.Argon2.Memory < minArgon2Memory {
		out = append(out, fmt.Sprintf("argon2 memory %d KiB is below %d KiB", r.Argon2.Memory, minArgon2Memory))
	}
	for _, action := range r.UnlimitedActions {
		out = append(out, fmt.Sprintf("no rate limit on %s", action))
	}
	return out
}

// LogAttrs flattens r for structured logging.
func (r Report) LogAttrs() []any {
	return []any{
		"dev", r.DevMode,
		"signing_algorithm", r.SigningAlgorithm,
		"access_ttl", r.AccessTTL,
		"refresh_ttl", r.RefreshTTL,
		"verification_ttl", r.VerificationTTL,
		"argon2_memory_kib", r.Argon2.Memory,
		"argon2_time", r.Argon2.Time,
		"cookie_secure", r.CookieSecure,
		"cookie_same_site", r.CookieSameSite,
		"rate_limited_actions", r.LimitedActions,
	}
}

func sameSiteName(s http.SameSite) string {
	switch s {
	case http.SameSiteStrictMode:
		return "strict"
	case http.SameSiteLaxMode:
		return "lax"
	case http.SameSiteNoneMode:
		return "none"
	default:
		return "default"
	}
}
