// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package passkey

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is an issued session token with its remaining lifetime.
type Session struct {
	// Token is the signed session token.
	Token string `json:"token"`

	// ExpiresAt is when the token stops being valid.
	ExpiresAt time.Time `json:"expires_at"`

	// TTLSeconds is the token lifetime at issuance, for display.
	TTLSeconds int64 `json:"ttl_seconds"`
}

// SessionClaims are the JWT claims carried by an issued session.
type SessionClaims struct {
	jwt.RegisteredClaims
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
}

// JWTIssuer issues HS256-signed session tokens after a verified ceremony.
type JWTIssuer struct {
	secret   []byte
	issuer   string
	validity time.Duration
}

// NewJWTIssuer creates a session issuer. An empty secret gets a random key,
// which is fine for a single-process demo: tokens simply stop verifying
// across restarts.
func NewJWTIssuer(secret []byte, issuer string, validity time.Duration) (*JWTIssuer, error) {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate session key: %w", err)
		}
	}
	if issuer == "" {
		issuer = "passkey-server"
	}
	if validity == 0 {
		validity = time.Hour
	}
	return &JWTIssuer{secret: secret, issuer: issuer, validity: validity}, nil
}

// Issue creates a session token for the verified user.
func (g *JWTIssuer) Issue(ctx context.Context, username, displayName string) (*Session, error) {
	now := time.Now()
	expires := now.Add(g.validity)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Username:    username,
		DisplayName: displayName,
	})

	signed, err := token.SignedString(g.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &Session{
		Token:      signed,
		ExpiresAt:  expires,
		TTLSeconds: int64(g.validity.Seconds()),
	}, nil
}

// Verify parses and validates a session token, returning its claims.
func (g *JWTIssuer) Verify(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return g.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(g.issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}
	return claims, nil
}

// Validity returns the configured token lifetime.
func (g *JWTIssuer) Validity() time.Duration {
	return g.validity
}
