package sessionkit

import (
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/sessionkit/internal/rate"
	"github.com/MrEthical07/sessionkit/jwt"
	"github.com/MrEthical07/sessionkit/password"
	"github.com/MrEthical07/sessionkit/revocation"
)

// dummyPassword is hashed once at Build so sign-in can spend a full verify
// on unknown identifiers.
const dummyPassword = "sessionkit-timing-equalizer"

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	directory AccountDirectory
	notifier  Notifier
	logger    *slog.Logger
	clock     func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the revocation store and rate limiter.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithDirectory sets the account store.
func (b *Builder) WithDirectory(d AccountDirectory) *Builder {
	b.directory = d
	return b
}

// WithNotifier sets the mail transport.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithLogger sets the logger. slog.Default is used otherwise.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithClock overrides time.Now for credential timestamps and expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the Authorize latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and collaborators and returns an
// immutable Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.directory == nil {
		return nil, errors.New("account directory required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier required")
	}

	engine := &Engine{
		config:     cfg,
		directory:  b.directory,
		notifier:   b.notifier,
		logger:     b.logger,
		now:        b.clock,
		limiter:    rate.New(b.redis),
		revocation: revocation.New(b.redis, cfg.Revocation.Prefix),
		metrics:    NewMetrics(cfg.Metrics),
	}
	if engine.logger == nil {
		engine.logger = slog.Default()
	}
	if engine.now == nil {
		engine.now = time.Now
	}

	hasher, err := password.NewArgon2(cfg.Password)
	if err != nil {
		return nil, err
	}
	engine.hasher = hasher

	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}
	engine.dummyDigest = dummy

	jm, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		Clock:         engine.now,
	})
	if err != nil {
		return nil, err
	}
	engine.jwt = jm

	b.built = true

	return engine, nil
}
