// Package session issues and verifies the bearer tokens the dev server
// hands out. Access tokens are HS256-signed JWTs carrying the caller's
// identity; refresh tokens are opaque random strings the server tracks
// on its own.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL applies when a Signer is built without an explicit token
// lifetime.
const DefaultTTL = 24 * time.Hour

const issuer = "vezor-server"

// ErrInvalidToken is returned for any token that fails verification,
// whether expired, malformed or signed with a different secret.
var ErrInvalidToken = errors.New("session token is invalid or expired")

// Claims is the payload of a Vezor access token. The user ID travels in
// the registered subject claim.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserID returns the token subject.
func (c *Claims) UserID() string { return c.Subject }

// Signer mints and verifies access tokens with a shared HMAC secret.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("session: signing secret must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Signer{secret: []byte(secret), ttl: ttl}, nil
}

// Issue signs a token for the user and reports its expiry as a Unix
// timestamp.
func (s *Signer) Issue(userID, email string) (string, int64, error) {
	now := time.Now()
	expiry := now.Add(s.ttl)
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", 0, fmt.Errorf("signing session token: %w", err)
	}
	return signed, expiry.Unix(), nil
}

// Verify parses a token produced by Issue and returns its claims.
func (s *Signer) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// NewRefreshToken returns an opaque token with 256 bits of entropy.
func NewRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
