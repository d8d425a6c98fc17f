package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/upb/emr-gateway/apperr"
)

const bearerScheme = "bearer"

// Verifier validates bearer tokens against the server-held HMAC secret.
// It is safe for concurrent use.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier creates a Verifier. The secret must be non-empty.
func NewVerifier(cfg Config) (*Verifier, error) {
	if len(cfg.Secret) == 0 {
		return nil, errEmptySecret
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(cfg.now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}

	return &Verifier{
		secret: append([]byte(nil), cfg.Secret...),
		parser: jwt.NewParser(opts...),
	}, nil
}

// Verify checks a raw Authorization header value and returns the principal.
// An empty header means the header was absent.
func (v *Verifier) Verify(rawHeader string) (Principal, error) {
	token, err := ParseBearer(rawHeader)
	if err != nil {
		return Principal{}, err
	}
	return v.VerifyToken(token)
}

// VerifyToken checks a bare token string.
func (v *Verifier) VerifyToken(token string) (Principal, error) {
	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, v.keyFunc)
	if err != nil {
		return Principal{}, apperr.ClassifyTokenError(err)
	}
	if !parsed.Valid {
		return Principal{}, apperr.InvalidToken(nil)
	}

	p, err := claims.principal()
	if err != nil {
		return Principal{}, apperr.InvalidToken(err)
	}
	return p, nil
}

func (v *Verifier) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return v.secret, nil
}

// ParseBearer extracts the token from "Bearer <token>". The scheme is matched
// case-insensitively.
func ParseBearer(rawHeader string) (string, error) {
	header := strings.TrimSpace(rawHeader)
	if header == "" {
		return "", apperr.MissingToken()
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", apperr.MalformedHeader()
	}

	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", apperr.MalformedHeader()
	}
	return token, nil
}
