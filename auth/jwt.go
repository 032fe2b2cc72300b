package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry is the session token lifetime.
const TokenExpiry = 24 * time.Hour

// Claims carried in a session token. Subject is the username.
type Claims struct {
	jwt.RegisteredClaims
}

// Signer issues and validates HS256 session tokens.
type Signer struct{ secret []byte }

// NewSigner creates a signer for secret.
func NewSigner(secret string) *Signer { return &Signer{secret: []byte(secret)} }

// Sign creates a token for username.
func (s *Signer) Sign(username string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("empty username")
	}
	now := time.Now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenExpiry)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Validate parses tok and returns its claims.
func (s *Signer) Validate(tok string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tok, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
