package auth

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// CookieName holds the session token for browser requests.
const CookieName = "token"

// Guard decides whether a request may reach a protected route.
type Guard interface {
	CanActivate(r *http.Request) (*Claims, bool)
}

// JWTGuard accepts a valid token from the session cookie or a bearer header.
type JWTGuard struct {
	Signer *Signer
}

func (g JWTGuard) CanActivate(r *http.Request) (*Claims, bool) {
	tok := ""
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		tok = strings.TrimPrefix(h, "Bearer ")
	} else if c, err := r.Cookie(CookieName); err == nil {
		tok = c.Value
	}
	if tok == "" {
		return nil, false
	}
	claims, err := g.Signer.Validate(tok)
	if err != nil {
		return nil, false
	}
	return claims, true
}

type ctxKey int

const claimsKey ctxKey = 1

// WithClaims stores claims on ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// FromContext returns the claims set by Protect, or nil.
func FromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}

// Protect wraps next with g. Rejected requests go to deny.
func Protect(g Guard, deny http.Handler, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := g.CanActivate(r)
		if !ok {
			deny.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// Accounts is the single configured login.
type Accounts struct {
	Username     string
	PasswordHash string
}

// Verify checks username and password.
func (a Accounts) Verify(username, password string) bool {
	if a.Username == "" || a.PasswordHash == "" || username != a.Username {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) == nil
}

// HashPassword returns a bcrypt hash suitable for Accounts.PasswordHash.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
