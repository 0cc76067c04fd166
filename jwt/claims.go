package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind separates the purposes a credential can be minted for.
type Kind string

const (
	KindAccess       Kind = "access"
	KindRefresh      Kind = "refresh"
	KindVerification Kind = "verification"
)

func (k Kind) valid() bool {
	switch k {
	case KindAccess, KindRefresh, KindVerification:
		return true
	}
	return false
}

// Claims is the payload of every credential. Subject holds the account id.
type Claims struct {
	Kind     Kind   `json:"knd"`
	Username string `json:"usr,omitempty"`
	Email    string `json:"eml,omitempty"`
	Role     int    `json:"rol,omitempty"`
	jwt.RegisteredClaims
}

// Expiry returns exp, or the zero time when absent.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
