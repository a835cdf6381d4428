// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultAuthCookieName = "scorebook_auth"
	scorekeeperRole       = "scorekeeper"
	defaultTokenTTL       = 12 * time.Hour
)

type contextKey struct{}

// roleKey is the context key for the authenticated role.
// The associated value is always a string.
var roleKey contextKey

// getRole returns the role from the request context, if present.
func getRole(r *http.Request) string {
	if val := r.Context().Value(roleKey); val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

// Authenticator issues and verifies the scorekeeper session token. With no
// secret or no passphrase configured, everyone may write.
type Authenticator struct {
	secret     []byte
	passphrase string
	CookieName string
	TTL        time.Duration
	now        func() time.Time
}

// NewAuthenticator returns an Authenticator. Empty arguments disable auth.
func NewAuthenticator(secret, passphrase string) *Authenticator {
	return &Authenticator{
		secret:     []byte(secret),
		passphrase: passphrase,
		CookieName: defaultAuthCookieName,
		TTL:        defaultTokenTTL,
		now:        time.Now,
	}
}

// Enabled reports whether writes require a token.
func (a *Authenticator) Enabled() bool {
	return a != nil && len(a.secret) > 0 && a.passphrase != ""
}

// CheckPassphrase compares p with the configured passphrase in constant time.
func (a *Authenticator) CheckPassphrase(p string) bool {
	return subtle.ConstantTimeCompare([]byte(p), []byte(a.passphrase)) == 1
}

// scorekeeperClaims is the payload of the session token.
type scorekeeperClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken returns a signed HS256 token for the scorekeeper role.
func (a *Authenticator) IssueToken() (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.TTL)
	claims := scorekeeperClaims{
		Role: scorekeeperRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   scorekeeperRole,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return s, exp, nil
}

// VerifyToken returns the role carried by a valid token.
func (a *Authenticator) VerifyToken(tokenString string) (string, error) {
	var claims scorekeeperClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	return claims.Role, nil
}

// canWrite reports whether r may mutate the game.
func (a *Authenticator) canWrite(r *http.Request) bool {
	if !a.Enabled() {
		return true
	}
	return getRole(r) == scorekeeperRole
}
