// Package auth authenticates API requests and resolves the caller's session.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/playledger/internal/identity"
	"github.com/MrJamesThe3rd/playledger/internal/purchase"
	"github.com/MrJamesThe3rd/playledger/internal/session"
)

type Middleware struct {
	issuer        *identity.Issuer
	registry      *session.Registry
	signInTimeout time.Duration
}

// New returns the middleware. A positive signInTimeout bounds how long a
// request waits for its session to sign in.
func New(issuer *identity.Issuer, registry *session.Registry, signInTimeout time.Duration) *Middleware {
	return &Middleware{issuer: issuer, registry: registry, signInTimeout: signInTimeout}
}

// Handler rejects requests without a valid bearer token. Accepted requests
// carry the caller's profile and signed-in session in their context.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearer(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		profile, err := m.issuer.Parse(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		sess, err := m.open(r.Context(), profile)
		if err != nil {
			slog.Error("failed to open session", "profile", profile.ID, "error", err)

			status := http.StatusInternalServerError
			if errors.Is(err, session.ErrBackendUnavailable) || errors.Is(err, context.DeadlineExceeded) {
				status = http.StatusServiceUnavailable
			}

			http.Error(w, err.Error(), status)

			return
		}

		ctx := identity.WithProfile(r.Context(), profile)
		ctx = WithSession(ctx, sess)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) open(ctx context.Context, profile purchase.UserProfile) (*session.Session, error) {
	if m.signInTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, m.signInTimeout)
		defer cancel()
	}

	return m.registry.Get(ctx, profile)
}

func bearer(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}

type sessionKey struct{}

func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session stored by the middleware.
func SessionFrom(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*session.Session)
	return s, ok
}

// Session writes 401 and returns false when the request has no session.
func Session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := SessionFrom(r.Context())
	if !ok {
		http.Error(w, session.ErrNoIdentity.Error(), http.StatusUnauthorized)
		return nil, false
	}

	return s, true
}
