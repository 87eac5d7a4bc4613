/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package auth

import (
	"log/slog"
	"net/http"
	"strings"
)

// TokenCookie is the cookie the middleware falls back to when no
// Authorization header is present. Browser clients, the websocket feed
// in particular, cannot set custom headers.
const TokenCookie = "wren_token"

// Middleware guards HTTP endpoints with control token validation. The
// validation itself is delegated, the middleware only extracts the
// token and translates failures into status codes.
type Middleware struct {
	validate func(string) error
}

func NewMiddleware(validate func(string) error) *Middleware {
	return &Middleware{validate: validate}
}

// Wrap returns a handler that rejects requests without a valid control
// token. The token is taken from the Authorization header, the token
// cookie or the token query parameter, in that order.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := m.extract(r)
		if !ok {
			slog.Warn("Request without control token", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		if err := m.validate(token); err != nil {
			slog.Warn("Request with invalid control token", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) extract(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header != "" {
		if !strings.HasPrefix(header, "Bearer ") {
			return "", false
		}
		return strings.TrimPrefix(header, "Bearer "), true
	}

	if cookie, err := r.Cookie(TokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}

	return "", false
}
