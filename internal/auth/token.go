// Package auth issues and verifies signed identity tokens and holds the
// authorization guard that decides which identity may touch which resource.
package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the username as the sole custom claim. Tokens carry no
// expiry; a leaked token stays valid until the secret rotates (known
// limitation).
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// Identity is the authenticated username extracted from a verified token.
// The zero value is anonymous.
type Identity struct {
	Username string
}

// Anonymous reports whether no verified identity is present.
func (i Identity) Anonymous() bool {
	return i.Username == ""
}

// TokenIssuer signs and verifies identity tokens with a process-wide shared
// secret, loaded once at startup and never mutated.
type TokenIssuer struct {
	secret []byte
}

func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret)}
}

// Issue produces a signed token encoding the username.
func (t *TokenIssuer) Issue(username string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Username: username})
	return token.SignedString(t.secret)
}

// Verify fails open: any malformed, unsigned, or otherwise invalid token
// yields the anonymous identity, never an error. Callers treat absence of
// identity exactly like a missing token.
func (t *TokenIssuer) Verify(tokenString string) Identity {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid || claims.Username == "" {
		return Identity{}
	}
	return Identity{Username: claims.Username}
}
