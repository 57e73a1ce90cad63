// Package authn hashes passwords and issues the bearer tokens taskhub
// clients present on every authenticated request.
package authn

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/louisbranch/taskhub/internal/platform/errors"
	"golang.org/x/crypto/bcrypt"
)

// TokenType is reported alongside issued tokens.
const TokenType = "bearer"

// DefaultTokenTTL is used when a provider is built without a TTL.
const DefaultTokenTTL = 60 * time.Minute

// Token is an issued access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"-"`
}

// Provider signs HS256 tokens whose subject is the user id.
type Provider struct {
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

// Option configures a Provider.
type Option func(*Provider)

// WithClock overrides the token clock.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithBcryptCost overrides the bcrypt work factor.
func WithBcryptCost(cost int) Option {
	return func(p *Provider) {
		p.cost = cost
	}
}

// NewProvider builds a provider. The secret must not be blank.
func NewProvider(secret string, ttl time.Duration, opts ...Option) (*Provider, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	p := &Provider{
		secret: []byte(secret),
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// HashPassword returns a bcrypt hash of password.
func (p *Provider) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches hash.
func (p *Provider) VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IssueToken signs a token for userID.
func (p *Provider) IssueToken(userID int64) (Token, error) {
	now := p.now().UTC()
	expiresAt := now.Add(p.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{AccessToken: signed, TokenType: TokenType, ExpiresAt: expiresAt}, nil
}

// ParseToken verifies raw and returns its user id. Every failure is
// Unauthenticated.
func (p *Provider) ParseToken(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, apperrors.New(apperrors.CodeUnauthenticated, "missing bearer token")
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return 0, mapJWTError(err)
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, apperrors.New(apperrors.CodeUnauthenticated, "invalid token subject")
	}
	return userID, nil
}

func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return apperrors.Wrap(apperrors.CodeUnauthenticated, "token is expired", err)
	}
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return apperrors.Wrap(apperrors.CodeUnauthenticated, "token signature is invalid", err)
	}
	return apperrors.Wrap(apperrors.CodeUnauthenticated, "could not validate credentials", err)
}
