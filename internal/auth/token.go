package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTokenTTL = 5 * 24 * time.Hour

// Claims is the token payload issued at login and carried on every request.
// Roles is the comma-joined list of role ids held at issuance time; it is a
// snapshot for display, not an authorization input.
type Claims struct {
	Document  string `json:"document"`
	Email     string `json:"email,omitempty"`
	Roles     string `json:"roles,omitempty"`
	StatusID  string `json:"status,omitempty"`
	CompanyID string `json:"company,omitempty"`
	jwt.RegisteredClaims
}

// RoleIDs splits the comma-joined roles claim. Malformed or empty input
// yields an empty list rather than an error.
func (c *Claims) RoleIDs() []string {
	if c == nil || strings.TrimSpace(c.Roles) == "" {
		return nil
	}
	var ids []string
	for _, part := range strings.Split(c.Roles, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}

type SignedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issuer signs and verifies identity tokens with a symmetric HS256 key.
type Issuer struct {
	secret  []byte
	issuer  string
	ttl     time.Duration
	callers CallerStore
	now     func() time.Time
}

type IssuerOption func(*Issuer)

func WithIssuerName(name string) IssuerOption {
	return func(i *Issuer) {
		if name = strings.TrimSpace(name); name != "" {
			i.issuer = name
		}
	}
}

func WithTokenTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) {
		if ttl > 0 {
			i.ttl = ttl
		}
	}
}

// WithIssuerClock overrides the time source, for tests.
func WithIssuerClock(fn func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if fn != nil {
			i.now = fn
		}
	}
}

func NewIssuer(secret string, callers CallerStore, opts ...IssuerOption) (*Issuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	if callers == nil {
		return nil, errors.New("auth: caller store is required")
	}
	i := &Issuer{
		secret:  []byte(secret),
		issuer:  "registra",
		ttl:     defaultTokenTTL,
		callers: callers,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

func (i *Issuer) Issue(caller Caller) (SignedToken, error) {
	now := i.now().UTC()
	expires := now.Add(i.ttl)
	claims := Claims{
		Document:  caller.Document,
		Email:     caller.Email,
		Roles:     strings.Join(caller.RoleIDs, ","),
		StatusID:  caller.StatusID,
		CompanyID: caller.CompanyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   caller.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return SignedToken{}, fmt.Errorf("sign token: %w", err)
	}
	return SignedToken{Token: signed, ExpiresAt: expires}, nil
}

// ParseAndValidate verifies the signature, signing method, issuer and expiry.
// Any failure comes back as ErrInvalidToken; callers never see parser detail.
func (i *Issuer) ParseAndValidate(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithIssuer(i.issuer))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Document) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Renew issues a fresh token for the caller named by a still-valid prior
// token. No credential re-check happens here; the prior token is the proof.
func (i *Issuer) Renew(ctx context.Context, token string) (SignedToken, error) {
	claims, err := i.ParseAndValidate(token)
	if err != nil {
		return SignedToken{}, err
	}
	caller, err := i.callers.FindCallerByDocument(ctx, claims.Document)
	if errors.Is(err, ErrNotFound) {
		return SignedToken{}, ErrCallerNotFound
	}
	if err != nil {
		return SignedToken{}, err
	}
	return i.Issue(caller)
}
