// Package revocation keeps a Redis denylist of credentials that were signed
// out before they expired.
//
// Entries are keyed by the sha256 of the credential and expire together with
// it, so the denylist never outgrows the set of live credentials.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/sessionkit/internal"
)

// DefaultPrefix namespaces denylist keys.
const DefaultPrefix = "revoked"

// ErrUnavailable means the denylist could not be read or written.
var ErrUnavailable = errors.New("revocation store unavailable")

// Store is the Redis denylist. It is safe for concurrent use.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// New returns a Store writing keys under prefix, or DefaultPrefix when empty.
func New(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{redis: redisClient, prefix: prefix}
}

// Revoke denylists token for ttl. A non-positive ttl is a no-op because the
// credential is already dead. Revoking again refreshes the TTL.
func (s *Store) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, s.key(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether token is on the denylist.
func (s *Store) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

func (s *Store) key(token string) string {
	return s.prefix + ":" + internal.Fingerprint(token)
}
