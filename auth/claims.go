package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload minted by Issuer and read by Verifier.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// Config holds the signing material shared by Issuer and Verifier. It is
// built once from configuration and passed in; there is no package-level
// secret.
type Config struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Leeway time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

const defaultTTL = 24 * time.Hour

var errEmptySecret = errors.New("auth: signing secret is empty")

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c Config) ttl() time.Duration {
	if c.TTL <= 0 {
		return defaultTTL
	}
	return c.TTL
}

// principal extracts the identity from verified claims. userId wins over sub.
func (c *Claims) principal() (Principal, error) {
	userID := c.UserID
	if userID == "" {
		userID = c.Subject
	}
	if userID == "" {
		return Principal{}, errors.New("token has no subject")
	}
	if !c.Role.Valid() {
		return Principal{}, errors.New("token has unknown role")
	}
	return Principal{UserID: userID, Role: c.Role}, nil
}
