// Package config loads the sessionkit server configuration from a YAML file
// and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/MrEthical07/sessionkit"
	"github.com/MrEthical07/sessionkit/internal/logging"
	"github.com/MrEthical07/sessionkit/notify/smtp"
	"github.com/MrEthical07/sessionkit/password"
)

// File is the on-disk configuration. Keys are snake_case YAML.
type File struct {
	Listen      string      `koanf:"listen"`
	DatabaseURL string      `koanf:"database_url"`
	Redis       RedisConfig `koanf:"redis"`
	Log         LogConfig   `koanf:"log"`
	SMTP        smtp.Config `koanf:"smtp"`
	Auth        AuthConfig  `koanf:"auth"`
	// TrustProxyHeaders takes client IPs from X-Forwarded-For.
	TrustProxyHeaders bool `koanf:"trust_proxy_headers"`
	Dev               bool `koanf:"dev"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// AuthConfig mirrors sessionkit.Config with file-friendly types.
type AuthConfig struct {
	JWT          JWTConfig                             `koanf:"jwt"`
	Verification VerificationConfig                    `koanf:"verification"`
	Recovery     RecoveryConfig                        `koanf:"recovery"`
	Cookie       CookieConfig                          `koanf:"cookie"`
	RateLimits   map[string]sessionkit.RateLimitPolicy `koanf:"rate_limits"`
	Revocation   RevocationConfig                      `koanf:"revocation"`
	Timeouts     TimeoutConfig                         `koanf:"timeouts"`
	Password     password.Config                       `koanf:"password"`
	Metrics      MetricsConfig                         `koanf:"metrics"`
}

// JWTConfig takes the HMAC secret inline or key material from files.
type JWTConfig struct {
	SigningMethod  string        `koanf:"signing_method"`
	Secret         string        `koanf:"secret"`
	PrivateKeyFile string        `koanf:"private_key_file"`
	PublicKeyFile  string        `koanf:"public_key_file"`
	Issuer         string        `koanf:"issuer"`
	Audience       string        `koanf:"audience"`
	AccessTTL      time.Duration `koanf:"access_ttl"`
	RefreshTTL     time.Duration `koanf:"refresh_ttl"`
	Leeway         time.Duration `koanf:"leeway"`
}

type VerificationConfig struct {
	TokenTTL   time.Duration `koanf:"token_ttl"`
	AppURL     string        `koanf:"app_url"`
	VerifyPath string        `koanf:"verify_path"`
}

type RecoveryConfig struct {
	PasswordLength int `koanf:"password_length"`
}

type CookieConfig struct {
	Name     string `koanf:"name"`
	Path     string `koanf:"path"`
	Domain   string `koanf:"domain"`
	Secure   bool   `koanf:"secure"`
	SameSite string `koanf:"same_site"`
}

type RevocationConfig struct {
	Prefix string `koanf:"prefix"`
}

type TimeoutConfig struct {
	Store  time.Duration `koanf:"store"`
	Notify time.Duration `koanf:"notify"`
}

type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
	Latency bool `koanf:"latency"`
}

// Default returns the configuration used for keys absent from both the
// file and the flags.
func Default() File {
	def := sessionkit.DefaultConfig()

	limits := make(map[string]sessionkit.RateLimitPolicy, len(def.RateLimits))
	for action, p := range def.RateLimits {
		limits[string(action)] = p
	}

	return File{
		Listen: ":8080",
		Redis:  RedisConfig{Addr: "localhost:6379"},
		Log:    LogConfig{Level: "info", Format: "json"},
		SMTP:   smtp.Config{Port: 587, StartTLS: true, Retries: 3, Backoff: 200 * time.Millisecond},
		Auth: AuthConfig{
			JWT: JWTConfig{
				SigningMethod: def.JWT.SigningMethod,
				Issuer:        def.JWT.Issuer,
				AccessTTL:     def.JWT.AccessTTL,
				RefreshTTL:    def.JWT.RefreshTTL,
			},
			Verification: VerificationConfig{
				TokenTTL:   def.Verification.TokenTTL,
				VerifyPath: def.Verification.VerifyPath,
			},
			Recovery: RecoveryConfig{PasswordLength: def.Recovery.PasswordLength},
			Cookie: CookieConfig{
				Name:     def.RefreshCookie.Name,
				Path:     def.RefreshCookie.Path,
				Secure:   def.RefreshCookie.Secure,
				SameSite: "strict",
			},
			RateLimits: limits,
			Revocation: RevocationConfig{Prefix: def.Revocation.Prefix},
			Timeouts: TimeoutConfig{
				Store:  def.Timeouts.Store,
				Notify: def.Timeouts.Notify,
			},
			Password: def.Password,
			Metrics:  MetricsConfig{Enabled: def.Metrics.Enabled},
		},
	}
}

// RegisterFlags adds the overridable keys to fs. Flag names are the dotted
// config keys.
func RegisterFlags(fs *pflag.FlagSet) {
	def := Default()
	fs.String("listen", def.Listen, "HTTP listen address")
	fs.String("database_url", def.DatabaseURL, "PostgreSQL connection URL")
	fs.String("redis.addr", def.Redis.Addr, "Redis address")
	fs.Int("redis.db", def.Redis.DB, "Redis database number")
	fs.String("log.level", def.Log.Level, "log level (debug, info, warn, error)")
	fs.String("log.format", def.Log.Format, "log format (json or text)")
	fs.String("auth.verification.app_url", def.Auth.Verification.AppURL, "public base URL used in verification links")
	fs.Bool("trust_proxy_headers", false, "rate-limit on X-Forwarded-For instead of the peer address")
	fs.Bool("dev", false, "use in-memory Redis, directory and a logging notifier")
}

// Load reads path (if non-empty) and then flags that were set on fs.
func Load(path string, fs *pflag.FlagSet) (File, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return File{}, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}
	if fs != nil {
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return File{}, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	out := Default()
	if err := k.Unmarshal("", &out); err != nil {
		return File{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return out, nil
}

// Logging returns the logger options.
func (f File) Logging(version string) logging.Options {
	return logging.Options{
		Service: "sessionkit",
		Version: version,
		Format:  f.Log.Format,
		Level:   f.Log.Level,
	}
}

// Engine converts the auth section to a validated sessionkit.Config.
func (f File) Engine() (sessionkit.Config, error) {
	a := f.Auth
	cfg := sessionkit.DefaultConfig()

	cfg.JWT.SigningMethod = strings.ToLower(a.JWT.SigningMethod)
	cfg.JWT.Issuer = a.JWT.Issuer
	cfg.JWT.Audience = a.JWT.Audience
	cfg.JWT.AccessTTL = a.JWT.AccessTTL
	cfg.JWT.RefreshTTL = a.JWT.RefreshTTL
	cfg.JWT.Leeway = a.JWT.Leeway

	switch {
	case a.JWT.Secret != "":
		cfg.JWT.PrivateKey = []byte(a.JWT.Secret)
	case a.JWT.PrivateKeyFile != "":
		key, err := os.ReadFile(a.JWT.PrivateKeyFile)
		if err != nil {
			return sessionkit.Config{}, oops.Code("CONFIG_INVALID").With("key", "auth.jwt.private_key_file").Wrap(err)
		}
		cfg.JWT.PrivateKey = key
	}
	if a.JWT.PublicKeyFile != "" {
		key, err := os.ReadFile(a.JWT.PublicKeyFile)
		if err != nil {
			return sessionkit.Config{}, oops.Code("CONFIG_INVALID").With("key", "auth.jwt.public_key_file").Wrap(err)
		}
		cfg.JWT.PublicKey = key
	}

	cfg.Verification = sessionkit.VerificationConfig{
		TokenTTL:   a.Verification.TokenTTL,
		AppURL:     a.Verification.AppURL,
		VerifyPath: a.Verification.VerifyPath,
	}
	cfg.Recovery.PasswordLength = a.Recovery.PasswordLength

	sameSite, err := parseSameSite(a.Cookie.SameSite)
	if err != nil {
		return sessionkit.Config{}, oops.Code("CONFIG_INVALID").With("key", "auth.cookie.same_site").Wrap(err)
	}
	cfg.RefreshCookie = sessionkit.CookieConfig{
		Name:     a.Cookie.Name,
		Path:     a.Cookie.Path,
		Domain:   a.Cookie.Domain,
		Secure:   a.Cookie.Secure,
		SameSite: sameSite,
	}

	for name, p := range a.RateLimits {
		action := sessionkit.Action(name)
		if _, known := cfg.RateLimits[action]; !known {
			return sessionkit.Config{}, oops.Code("CONFIG_INVALID").
				With("key", "auth.rate_limits").
				Errorf("unknown action %q", name)
		}
		if p.Message == "" {
			p.Message = cfg.RateLimits[action].Message
		}
		cfg.RateLimits[action] = p
	}

	cfg.Revocation.Prefix = a.Revocation.Prefix
	cfg.Timeouts = sessionkit.TimeoutConfig{Store: a.Timeouts.Store, Notify: a.Timeouts.Notify}
	cfg.Password = a.Password
	cfg.Metrics = sessionkit.MetricsConfig{Enabled: a.Metrics.Enabled, EnableLatencyHistograms: a.Metrics.Latency}

	if err := cfg.Validate(); err != nil {
		return sessionkit.Config{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return cfg, nil
}

// Validate checks the non-auth sections.
func (f File) Validate() error {
	if f.Listen == "" {
		return errors.New("listen address is required")
	}
	if f.Dev {
		return nil
	}
	if f.Redis.Addr == "" {
		return errors.New("redis.addr is required")
	}
	if f.DatabaseURL == "" {
		return errors.New("database_url is required")
	}
	if f.SMTP.Host == "" {
		return errors.New("smtp.host is required")
	}
	return nil
}

func parseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(s) {
	case "", "strict":
		return http.SameSiteStrictMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("unknown SameSite mode %q", s)
	}
}
