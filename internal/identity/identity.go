// Package identity turns signed bearer tokens into user profiles.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MrJamesThe3rd/playledger/internal/purchase"
)

var (
	ErrNoSecret     = errors.New("token secret is empty")
	ErrInvalidToken = errors.New("invalid token")
)

const issuerName = "playledger"

// Claims carries the profile fields in the token. Subject is the profile id.
type Claims struct {
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Picture   string `json:"picture,omitempty"`
	Ephemeral bool   `json:"eph,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 identity tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}

	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// WithClock returns a copy of i that reads the time from now.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	c := *i
	c.now = now

	return &c
}

func (i *Issuer) Issue(p purchase.UserProfile) (string, error) {
	if p.ID == "" {
		return "", fmt.Errorf("issuing token: profile has no id")
	}

	now := i.now()

	claims := Claims{
		Name:      p.DisplayName,
		Email:     p.Email,
		Picture:   p.PhotoURL,
		Ephemeral: p.Ephemeral,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerName,
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return signed, nil
}

func (i *Issuer) Parse(token string) (purchase.UserProfile, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return purchase.UserProfile{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return purchase.UserProfile{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return purchase.UserProfile{
		ID:          claims.Subject,
		DisplayName: claims.Name,
		Email:       claims.Email,
		PhotoURL:    claims.Picture,
		Ephemeral:   claims.Ephemeral,
	}, nil
}

type contextKey struct{}

// WithProfile stores the authenticated profile in ctx.
func WithProfile(ctx context.Context, p purchase.UserProfile) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the profile stored by WithProfile.
func FromContext(ctx context.Context) (purchase.UserProfile, bool) {
	p, ok := ctx.Value(contextKey{}).(purchase.UserProfile)
	return p, ok
}
