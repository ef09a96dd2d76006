package auth

import (
	"context"
	stderrors "errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/lifescribe/errors"
)

// DefaultTTL is the lifetime of generated tokens.
const DefaultTTL = 24 * time.Hour

// Config configures the token service.
type Config struct {
	// Secret is the HMAC signing key. An empty secret disables API auth.
	Secret string        `mapstructure:"jwt_secret" json:"-"`
	Issuer string        `mapstructure:"jwt_issuer" json:"jwt_issuer"`
	TTL    time.Duration `mapstructure:"jwt_ttl" json:"jwt_ttl"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Issuer == "" {
		c.Issuer = "lifescribe"
	}
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}
}

// Enabled reports whether a secret is configured.
func (c *Config) Enabled() bool {
	return c.Secret != ""
}

// Claims are the token claims.
type Claims struct {
	gojwt.RegisteredClaims
}

// Service signs and verifies tokens.
type Service struct {
	cfg Config
	now func() time.Time
}

// NewService creates a Service. The secret is required.
func NewService(cfg Config) (*Service, error) {
	cfg.ApplyDefaults()
	if cfg.Secret == "" {
		return nil, errors.MissingField("api.jwt_secret")
	}
	return &Service{cfg: cfg, now: time.Now}, nil
}

// Generate returns a signed token for subject.
func (s *Service) Generate(subject string) (string, error) {
	now := s.now()
	claims := &Claims{RegisteredClaims: gojwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    s.cfg.Issuer,
		IssuedAt:  gojwt.NewNumericDate(now),
		ExpiresAt: gojwt.NewNumericDate(now.Add(s.cfg.TTL)),
	}}
	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", errors.Internal(err)
	}
	return signed, nil
}

// Parse verifies token and returns its claims. Expired tokens fail with
// TOKEN_EXPIRED, anything else unverifiable with INVALID_TOKEN.
func (s *Service) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := gojwt.ParseWithClaims(token, claims, s.keyFunc,
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithIssuer(s.cfg.Issuer),
		gojwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if stderrors.Is(err, gojwt.ErrTokenExpired) {
			return nil, errors.TokenExpired()
		}
		return nil, errors.InvalidToken().WithCause(err)
	}
	if !parsed.Valid {
		return nil, errors.InvalidToken()
	}
	return claims, nil
}

func (s *Service) keyFunc(*gojwt.Token) (interface{}, error) {
	return []byte(s.cfg.Secret), nil
}

type contextKey struct{}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the claims stored by WithClaims.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(contextKey{}).(*Claims)
	return c, ok
}
