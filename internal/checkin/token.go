package checkin

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind discriminates check-in tokens from any other token kind the
// platform issues (session JWTs use a different service and secret).
const TokenKind = "participant-checkin"

// DefaultTokenTTL keeps tokens valid from registration time through the
// event itself.
const DefaultTokenTTL = 30 * 24 * time.Hour

// TokenClaims is the signed payload of a check-in token.
type TokenClaims struct {
	Kind           string    `json:"kind"`
	RegistrationID uuid.UUID `json:"registration_id"`
	EventID        uuid.UUID `json:"event_id"`
	Secret         string    `json:"secret"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies check-in tokens. The signing key is
// injected at construction so tests can use distinct keys and production
// can rotate without code change.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec creates a codec with the given HMAC key and TTL.
// A non-positive ttl falls back to DefaultTokenTTL.
func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenCodec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock overrides the codec's clock. Intended for tests.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	c.now = now
	return c
}

// Issue signs a token binding the bearer to one registration of one event.
// Called exactly once per registration, at creation time.
func (c *TokenCodec) Issue(registrationID, eventID uuid.UUID, secret string) (string, error) {
	now := c.now()
	claims := TokenClaims{
		Kind:           TokenKind,
		RegistrationID: registrationID,
		EventID:        eventID,
		Secret:         secret,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify validates signature, expiry and kind, returning the embedded
// claims. It fails closed: any mismatch yields exactly one of
// ErrInvalidToken, ErrExpiredToken or ErrWrongTokenKind.
func (c *TokenCodec) Verify(tokenString string) (*TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != TokenKind {
		return nil, ErrWrongTokenKind
	}
	return claims, nil
}

// NewRegistrationSecret generates the random per-registration secret
// embedded in the token and stored alongside the registration row.
func NewRegistrationSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
