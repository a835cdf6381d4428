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
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// jwtAuthMiddleware reads the session cookie and, when it carries a valid
// token, puts the role into the request context. Requests without a valid
// token proceed as viewers.
func jwtAuthMiddleware(a *Authenticator, debug bool, next http.Handler) http.Handler {
	if !a.Enabled() {
		log.Warn("No SK_AUTH_SECRET or SK_SCOREKEEPER_PASSPHRASE set. Anyone can edit the game.")
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(a.CookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		role, err := a.VerifyToken(cookie.Value)
		if err != nil {
			// Logged at debug level; scanners hit this constantly.
			if debug {
				log.Debug("JWT validation failed", "err", err)
			}
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), roleKey, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireScorekeeper rejects requests that may not write.
func requireScorekeeper(a *Authenticator, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.canWrite(r) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// loginHandler exchanges the scorekeeper passphrase for a session cookie.
func loginHandler(a *Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		if !a.Enabled() {
			writeJSON(w, map[string]any{"role": scorekeeperRole, "authEnabled": false})
			return
		}
		var req struct {
			Passphrase string `json:"passphrase"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		if !a.CheckPassphrase(req.Passphrase) {
			log.Warn("Rejected scorekeeper login", "remote", r.RemoteAddr)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		token, exp, err := a.IssueToken()
		if err != nil {
			log.Error("Failed to issue token", "err", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     a.CookieName,
			Value:    token,
			Path:     "/",
			Expires:  exp,
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteStrictMode,
		})
		writeJSON(w, map[string]any{"role": scorekeeperRole, "authEnabled": true})
	}
}

// logoutHandler clears the session cookie.
func logoutHandler(a *Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:    a.CookieName,
			Value:   "",
			Path:    "/",
			Expires: time.Unix(0, 0),
			MaxAge:  -1,
		})
		w.WriteHeader(http.StatusOK)
	}
}
