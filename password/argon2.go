package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"
)

var (
	// ErrEmptyPassword is returned when a blank password is hashed.
	ErrEmptyPassword = errors.New("password is required")
	// ErrMalformedDigest is returned when a stored digest is not a valid argon2id PHC string.
	ErrMalformedDigest = errors.New("malformed password digest")
)

// Config holds the Argon2id cost parameters used for new digests.
type Config struct {
	Memory      uint32 `koanf:"memory"`
	Time        uint32 `koanf:"time"`
	Parallelism uint8  `koanf:"parallelism"`
	SaltLength  uint32 `koanf:"salt_length"`
	KeyLength   uint32 `koanf:"key_length"`
}

// DefaultConfig returns the recommended interactive-login parameters.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Validate reports the first parameter below its floor.
func (c Config) Validate() error {
	switch {
	case c.Memory < minMemoryKB:
		return fmt.Errorf("password memory must be >= %d KB", minMemoryKB)
	case c.Time < minTimeCost:
		return errors.New("password time must be >= 1")
	case c.Parallelism < minParallelism:
		return errors.New("password parallelism must be >= 1")
	case c.SaltLength < minSaltLength:
		return fmt.Errorf("password salt length must be >= %d", minSaltLength)
	case c.KeyLength < minKeyLength:
		return fmt.Errorf("password key length must be >= %d", minKeyLength)
	}
	return nil
}

// Argon2 hashes and verifies passwords. It is immutable and safe for
// concurrent use.
type Argon2 struct {
	config Config
}

type digest struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

// NewArgon2 validates cfg and returns a hasher bound to it.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Argon2{config: cfg}, nil
}

// Hash derives a fresh salted digest. Only presence is checked; complexity is
// the caller's concern.
func (a *Argon2) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}

	d := digest{
		memory:      a.config.Memory,
		time:        a.config.Time,
		parallelism: a.config.Parallelism,
		salt:        salt,
	}
	d.key = d.derive(plain, a.config.KeyLength)
	return d.String(), nil
}

// Verify reports whether plain matches encoded. The derived keys are compared
// in constant time.
func (a *Argon2) Verify(plain, encoded string) (bool, error) {
	d, err := parseDigest(encoded)
	if err != nil {
		return false, err
	}
	computed := d.derive(plain, uint32(len(d.key)))
	return subtle.ConstantTimeCompare(computed, d.key) == 1, nil
}

// NeedsUpgrade reports whether encoded was produced with weaker parameters
// than the hasher's current configuration.
func (a *Argon2) NeedsUpgrade(encoded string) (bool, error) {
	d, err := parseDigest(encoded)
	if err != nil {
		return false, err
	}
	return a.config.Memory > d.memory ||
		a.config.Time > d.time ||
		a.config.Parallelism > d.parallelism ||
		int(a.config.KeyLength) != len(d.key), nil
}

func (d digest) derive(plain string, keyLen uint32) []byte {
	return argon2.IDKey([]byte(plain), d.salt, d.time, d.memory, d.parallelism, keyLen)
}

func (d digest) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		d.memory, d.time, d.parallelism,
		base64.RawStdEncoding.EncodeToString(d.salt),
		base64.RawStdEncoding.EncodeToString(d.key),
	)
}

// parseDigest accepts $argon2id$v=19$m=..,t=..,p=..$salt$key with either
// padded or unpadded base64.
func parseDigest(encoded string) (*digest, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return nil, ErrMalformedDigest
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported version", ErrMalformedDigest)
	}

	d := &digest{}
	for _, kv := range strings.Split(parts[3], ",") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, ErrMalformedDigest
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: parameter %s", ErrMalformedDigest, name)
		}
		switch name {
		case "m":
			d.memory = uint32(n)
		case "t":
			d.time = uint32(n)
		case "p":
			if n > 255 {
				return nil, fmt.Errorf("%w: parameter p", ErrMalformedDigest)
			}
			d.parallelism = uint8(n)
		default:
			return nil, fmt.Errorf("%w: parameter %s", ErrMalformedDigest, name)
		}
	}
	if d.memory < minMemoryKB || d.time < minTimeCost || d.parallelism < minParallelism {
		return nil, fmt.Errorf("%w: parameters out of range", ErrMalformedDigest)
	}

	var err error
	if d.salt, err = decodeB64(parts[4]); err != nil || len(d.salt) < int(minSaltLength) {
		return nil, fmt.Errorf("%w: salt", ErrMalformedDigest)
	}
	if d.key, err = decodeB64(parts[5]); err != nil || len(d.key) == 0 {
		return nil, fmt.Errorf("%w: key", ErrMalformedDigest)
	}
	return d, nil
}

func decodeB64(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
