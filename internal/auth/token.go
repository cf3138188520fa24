package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenCodec issues and resolves signed, expiring bearer tokens. Tokens are
// self-contained: nothing is persisted, validity rests on the signature and
// the embedded expiry alone.
type TokenCodec struct {
	secretKey []byte
	ttl       time.Duration
}

// NewTokenCodec creates a TokenCodec signing with the given shared secret.
// ttl is the default lifetime applied by Issue.
func NewTokenCodec(secretKey string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{
		secretKey: []byte(secretKey),
		ttl:       ttl,
	}
}

// Issue creates a token carrying the subject with the codec's default TTL.
func (c *TokenCodec) Issue(subject string) (string, error) {
	return c.IssueWithTTL(subject, c.ttl)
}

// IssueWithTTL creates a token carrying the subject and an absolute expiry
// of now plus ttl.
func (c *TokenCodec) IssueWithTTL(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secretKey)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Resolve verifies a token's signature and expiry and returns its subject.
func (c *TokenCodec) Resolve(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return c.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}
