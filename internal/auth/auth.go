package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"nimbusdrive/internal/domain"
)

// Verifier проверяет bearer-токены, выданные внешним identity-сервисом.
type Verifier struct {
	secret []byte
}

func NewVerifier(cfg *Config) *Verifier {
	return &Verifier{secret: []byte(cfg.Secret)}
}

// VerifyToken извлекает и проверяет токен из заголовка Authorization,
// возвращает идентификатор пользователя.
func (v *Verifier) VerifyToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", domain.NewError(domain.KindUnauthorized, "no authorization header")
	}

	tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenStr == authHeader {
		return "", domain.NewError(domain.KindUnauthorized, "malformed authorization header")
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return "", domain.WrapError(domain.KindUnauthorized, "invalid token", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", domain.NewError(domain.KindUnauthorized, "invalid token")
	}

	return claims.Subject, nil
}
