package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenService mints and verifies the signed, expiring tokens that gate
// lifecycle transitions. Purpose is implicit in the redeeming operation;
// each purpose gets its own TTL from Config.
type TokenService interface {
	Mint(claims *TokenClaims, ttl time.Duration) (string, error)
	Verify(raw string) (*TokenClaims, error)
}

// JWTTokenService is the HMAC-signed JWT implementation.
type JWTTokenService struct {
	signingKey []byte
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
	now        func() time.Time
}

// TokenServiceOption customizes the token service.
type TokenServiceOption func(*JWTTokenService)

// WithTokenClock injects a custom clock (useful for tests).
func WithTokenClock(clock func() time.Time) TokenServiceOption {
	return func(ts *JWTTokenService) {
		if clock != nil {
			ts.now = clock
		}
	}
}

// WithTokenLogger overrides the logger.
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *JWTTokenService) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// NewTokenService creates a token service. A missing signing key is a
// startup-time misconfiguration and the only way construction can fail.
func NewTokenService(cfg Config, opts ...TokenServiceOption) (*JWTTokenService, error) {
	if cfg.SigningKey == "" {
		return nil, errors.New("token signing key is not configured", errors.CategoryInternal)
	}

	ts := &JWTTokenService{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		audience:   jwt.ClaimStrings(cfg.Audience),
		logger:     defLogger{},
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts, nil
}

// Mint signs the claim with the configured key, stamping issuance and expiry.
func (ts *JWTTokenService) Mint(claims *TokenClaims, ttl time.Duration) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}
	if ttl <= 0 {
		return "", errors.New("token TTL must be positive", errors.CategoryInternal)
	}

	now := ts.now()
	claims.Issuer = ts.issuer
	claims.Audience = ts.audience
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}

	return signed, nil
}

// Verify checks signature and expiry, returning a typed failure so callers
// can distinguish "retry with a fresh token" from tampered input.
func (ts *JWTTokenService) Verify(raw string) (*TokenClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 3)
	parserOptions = append(parserOptions, jwt.WithTimeFunc(ts.now))
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(raw, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token verify encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignature
		default:
			return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
				WithTextCode(ErrTokenMalformed.TextCode).
				WithCode(ErrTokenMalformed.Code)
		}
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		ts.logger.Error("token verify could not decode claims")
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
