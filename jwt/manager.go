package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the JWS algorithm.
type SigningMethod string

const (
	MethodEd25519 SigningMethod = "ed25519"
	MethodHS256   SigningMethod = "hs256"
)

var (
	// ErrTokenMalformed covers bad encoding, bad signature, wrong algorithm,
	// and issuer or audience mismatches.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenExpired is returned once now >= exp.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenKind is returned when a well-signed token is presented for the
	// wrong purpose, e.g. a refresh credential used as an access credential.
	ErrTokenKind = errors.New("token kind mismatch")
)

const maxFutureIAT = 10 * time.Minute

// Config is injected once at construction and never mutated afterwards.
type Config struct {
	SigningMethod SigningMethod `koanf:"signing_method"`
	PrivateKey    []byte        `koanf:"private_key"`
	PublicKey     []byte        `koanf:"public_key"`
	Issuer        string        `koanf:"issuer"`
	Audience      string        `koanf:"audience"`
	// Leeway widens the tolerance for an issued-at in the future. Expiry
	// never gets leeway: a credential is dead at exp.
	Leeway time.Duration `koanf:"leeway"`

	// Clock overrides time.Now; tests only.
	Clock func() time.Time `koanf:"-"`
}

// Manager signs and verifies credentials.
type Manager struct {
	config    Config
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	now       func() time.Time
}

// NewManager validates cfg and resolves keys up front so signing and parsing
// never fail on key decoding.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	m := &Manager{config: cfg, now: cfg.Clock}
	if m.now == nil {
		m.now = time.Now
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < 32 {
			return nil, errors.New("hs256 requires a secret of at least 32 bytes")
		}
		m.method = jwt.SigningMethodHS256
		m.signKey = cfg.PrivateKey
		m.verifyKey = cfg.PrivateKey
	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			m.signKey = priv
			m.verifyKey = priv.Public()
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			m.verifyKey = pub
		}
		if m.verifyKey == nil {
			return nil, errors.New("ed25519 requires a public or private key")
		}
	default:
		return nil, fmt.Errorf("unsupported signing method %q", cfg.SigningMethod)
	}

	return m, nil
}

// Sign stamps iat, exp, jti, issuer and audience onto claims and returns the
// compact token with the stamped claims.
func (m *Manager) Sign(claims Claims, ttl time.Duration) (string, *Claims, error) {
	if ttl <= 0 {
		return "", nil, errors.New("token ttl must be positive")
	}
	if !claims.Kind.valid() {
		return "", nil, fmt.Errorf("%w: %q", ErrTokenKind, claims.Kind)
	}
	if m.signKey == nil {
		return "", nil, errors.New("manager has no signing key")
	}

	now := m.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	claims.ID = uuid.NewString()
	claims.Issuer = m.config.Issuer
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	token, err := jwt.NewWithClaims(m.method, claims).SignedString(m.signKey)
	if err != nil {
		return "", nil, err
	}
	return token, &claims, nil
}

// Verify fully validates token and requires it to be of the given kind.
func (m *Manager) Verify(token string, kind Kind) (*Claims, error) {
	return m.parse(token, kind, true)
}

// Inspect checks signature, issuer, audience and kind but tolerates expiry.
// Sign-out uses it to learn the remaining lifetime.
func (m *Manager) Inspect(token string, kind Kind) (*Claims, error) {
	return m.parse(token, kind, false)
}

func (m *Manager) parse(token string, kind Kind, checkExpiry bool) (*Claims, error) {
	if token == "" {
		return nil, ErrTokenMalformed
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if checkExpiry {
		if m.config.Issuer != "" {
			options = append(options, jwt.WithIssuer(m.config.Issuer))
		}
		if m.config.Audience != "" {
			options = append(options, jwt.WithAudience(m.config.Audience))
		}
	} else {
		options = append(options, jwt.WithoutClaimsValidation())
	}

	claims := &Claims{}
	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != m.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.verifyKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if !parsed.Valid {
		return nil, ErrTokenMalformed
	}

	if !checkExpiry {
		if claims.ExpiresAt == nil {
			return nil, ErrTokenMalformed
		}
		if m.config.Issuer != "" && claims.Issuer != m.config.Issuer {
			return nil, fmt.Errorf("%w: issuer", ErrTokenMalformed)
		}
	}
	if claims.IssuedAt != nil && claims.IssuedAt.After(m.now().Add(maxFutureIAT+m.config.Leeway)) {
		return nil, fmt.Errorf("%w: iat too far in the future", ErrTokenMalformed)
	}
	if claims.Kind != kind {
		return nil, ErrTokenKind
	}

	return claims, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
