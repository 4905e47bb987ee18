package checkin

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	codec := NewTokenCodec("test-signing-key", time.Hour)
	registrationID := uuid.New()
	eventID := uuid.New()
	secret, err := NewRegistrationSecret()
	require.NoError(t, err)

	token, err := codec.Issue(registrationID, eventID, secret)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, TokenKind, claims.Kind)
	assert.Equal(t, registrationID, claims.RegistrationID)
	assert.Equal(t, eventID, claims.EventID)
	assert.Equal(t, secret, claims.Secret)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestVerifyExpiredToken(t *testing.T) {
	issuedAt := time.Now()
	codec := NewTokenCodec("test-signing-key", time.Second).
		WithClock(func() time.Time { return issuedAt })

	token, err := codec.Issue(uuid.New(), uuid.New(), "s3cret")
	require.NoError(t, err)

	// Still valid within the TTL.
	_, err = codec.Verify(token)
	require.NoError(t, err)

	// 2s later the 1s TTL has elapsed.
	codec.WithClock(func() time.Time { return issuedAt.Add(2 * time.Second) })
	_, err = codec.Verify(token)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyTamperedSignature(t *testing.T) {
	codec := NewTokenCodec("test-signing-key", time.Hour)
	token, err := codec.Issue(uuid.New(), uuid.New(), "s3cret")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	// Flip one character of the signature segment.
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = codec.Verify(tampered)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTamperedPayload(t *testing.T) {
	codec := NewTokenCodec("test-signing-key", time.Hour)
	token, err := codec.Issue(uuid.New(), uuid.New(), "s3cret")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	body := []byte(parts[1])
	if body[0] == 'A' {
		body[0] = 'B'
	} else {
		body[0] = 'A'
	}
	tampered := parts[0] + "." + string(body) + "." + parts[2]

	_, err = codec.Verify(tampered)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyWrongKind(t *testing.T) {
	key := "test-signing-key"
	codec := NewTokenCodec(key, time.Hour)

	// Validly signed token of another kind.
	other := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		Kind:           "mentor-score",
		RegistrationID: uuid.New(),
		EventID:        uuid.New(),
		Secret:         "s3cret",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	signed, err := other.SignedString([]byte(key))
	require.NoError(t, err)

	_, err = codec.Verify(signed)
	require.ErrorIs(t, err, ErrWrongTokenKind)
}

func TestVerifyWrongKey(t *testing.T) {
	issuer := NewTokenCodec("key-one", time.Hour)
	verifier := NewTokenCodec("key-two", time.Hour)

	token, err := issuer.Issue(uuid.New(), uuid.New(), "s3cret")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	codec := NewTokenCodec("test-signing-key", time.Hour)
	for _, tok := range []string{"", "not-a-token", "a.b", "a.b.c.d"} {
		_, err := codec.Verify(tok)
		require.ErrorIs(t, err, ErrInvalidToken, "token %q", tok)
	}
}

func TestRegistrationSecretsAreUnique(t *testing.T) {
	a, err := NewRegistrationSecret()
	require.NoError(t, err)
	b, err := NewRegistrationSecret()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a)
}
