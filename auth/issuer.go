package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer mints HS256 access tokens for authenticated users.
type Issuer struct {
	cfg    Config
	secret []byte
}

// NewIssuer creates an Issuer. The secret must be non-empty.
func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.Secret) == 0 {
		return nil, errEmptySecret
	}
	return &Issuer{cfg: cfg, secret: append([]byte(nil), cfg.Secret...)}, nil
}

// Issue signs a token for the principal and returns it with its expiry.
func (i *Issuer) Issue(p Principal) (string, time.Time, error) {
	if p.UserID == "" {
		return "", time.Time{}, fmt.Errorf("cannot issue token without user id")
	}
	if !p.Role.Valid() {
		return "", time.Time{}, fmt.Errorf("cannot issue token for role %q", p.Role)
	}

	now := i.cfg.now()
	expiresAt := now.Add(i.cfg.ttl())
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.UserID,
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: p.UserID,
		Role:   p.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}
