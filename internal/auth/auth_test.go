package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nimbusdrive/internal/domain"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.RegisteredClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyTokenReturnsSubject(t *testing.T) {
	v := NewVerifier(&Config{Secret: testSecret})

	token := signToken(t, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, testSecret)

	r := httptest.NewRequest("GET", "/v1/quota", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	userID, err := v.VerifyToken(r)
	require.NoError(t, err)
	assert.Equal(t, "alice", userID)
}

func TestVerifyTokenRejectsBadInput(t *testing.T) {
	v := NewVerifier(&Config{Secret: testSecret})

	expired := signToken(t, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}, testSecret)
	wrongKey := signToken(t, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, "other-secret")
	noSubject := signToken(t, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, testSecret)

	cases := map[string]string{
		"no header":       "",
		"not bearer":      "Basic abc",
		"garbage":         "Bearer not-a-token",
		"expired":         "Bearer " + expired,
		"wrong key":       "Bearer " + wrongKey,
		"missing subject": "Bearer " + noSubject,
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/v1/quota", nil)
			if header != "" {
				r.Header.Set("Authorization", header)
			}

			_, err := v.VerifyToken(r)
			require.Error(t, err)
			assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
		})
	}
}
