// Package middleware содержит HTTP middleware для сервиса Bistro Boss.
package middleware

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmeshcher/bistro-boss/internal/model"
)

type contextKey string

const identityKey contextKey = "identity"

// DefaultTokenTTL: срок действия токена доступа.
const DefaultTokenTTL = time.Hour

// Claims: содержимое токена доступа.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware выпускает и проверяет токены доступа, подписанные HS256.
type AuthMiddleware struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом и сроком жизни токена.
func NewAuthMiddleware(secret string, ttl time.Duration) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &AuthMiddleware{
		secretKey: key,
		ttl:       ttl,
		now:       time.Now,
	}
}

// IssueToken подписывает токен доступа для переданной личности.
func (a *AuthMiddleware) IssueToken(identity model.Identity) (string, error) {
	now := a.now()
	claims := Claims{
		Email: identity.Email,
		Name:  identity.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken проверяет подпись и срок действия токена и возвращает его содержимое.
func (a *AuthMiddleware) ParseToken(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{},
		func(*jwt.Token) (interface{}, error) { return a.secretKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Email == "" {
		return nil, fmt.Errorf("%w: invalid claims", ErrUnauthenticated)
	}

	return claims, nil
}

// Authenticate: проверка, требующая действительный токен в заголовке Authorization.
// При успехе личность вызывающего кладётся в контекст запроса.
func (a *AuthMiddleware) Authenticate(r *http.Request) (*http.Request, error) {
	raw, ok := bearerToken(r)
	if !ok {
		return nil, ErrUnauthenticated
	}

	claims, err := a.ParseToken(raw)
	if err != nil {
		return nil, err
	}

	ctx := WithIdentity(r.Context(), model.Identity{Email: claims.Email, Name: claims.Name})
	return r.WithContext(ctx), nil
}

// Middleware пропускает запрос дальше только с действительным токеном доступа.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return Chain(a.Authenticate)(next)
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// WithIdentity кладёт личность вызывающего в контекст.
func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext извлекает личность вызывающего из контекста запроса.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(model.Identity)
	return identity, ok
}
