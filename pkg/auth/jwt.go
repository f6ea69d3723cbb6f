// Package auth verifies the access tokens issued by Supabase Auth.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Audience is the audience Supabase sets on tokens of signed-in users
const Audience = "authenticated"

// Role claims
const (
	RoleAdmin = "admin"
)

// ErrMissingSubject is returned for tokens without a user id
var ErrMissingSubject = errors.New("token has no subject")

// AppMetadata is the server-controlled metadata Supabase embeds in tokens
type AppMetadata struct {
	Role string `json:"role,omitempty"`
}

// Claims represents Supabase JWT claims. Subject carries the user id.
type Claims struct {
	Email       string      `json:"email"`
	Role        string      `json:"role"`
	AppMetadata AppMetadata `json:"app_metadata"`
	jwt.RegisteredClaims
}

// UserID returns the authenticated user's id
func (c *Claims) UserID() string {
	return c.Subject
}

// IsAdmin reports whether app_metadata grants the admin role
func (c *Claims) IsAdmin() bool {
	return c.AppMetadata.Role == RoleAdmin
}

// GenerateJWT signs a token shaped like a Supabase access token. Used by
// tests and local tooling; production tokens come from Supabase.
func GenerateJWT(userID, email, appRole, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email:       email,
		Role:        Audience,
		AppMetadata: AppMetadata{Role: appRole},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateJWT validates a token signed with the project's JWT secret and returns its claims
func ValidateJWT(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithAudience(Audience), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}
