package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmeshcher/bistro-boss/internal/model"
)

func TestAuthMiddleware_WithValidToken(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour)

	token, err := m.IssueToken(model.Identity{Email: "a@x.com", Name: "A"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("identity not in context")
		}
		if identity.Email != "a@x.com" {
			t.Fatalf("email from context = %q, want a@x.com", identity.Email)
		}
	})

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestAuthMiddleware_WithoutToken(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)

	m.Middleware(next).ServeHTTP(w, r)

	res := w.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}
}

func TestAuthMiddleware_RejectsBadTokens(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour)
	other := NewAuthMiddleware("other-secret", time.Hour)

	foreign, err := other.IssueToken(model.Identity{Email: "a@x.com"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Email: "a@x.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{name: "malformed", header: "Bearer not.a.token"},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "empty bearer", header: "Bearer "},
		{name: "bad signature", header: "Bearer " + foreign},
		{name: "alg none", header: "Bearer " + noneToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("next handler should not be called")
			})

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/protected", nil)
			r.Header.Set("Authorization", tt.header)

			m.Middleware(next).ServeHTTP(w, r)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestParseToken_RoundTripIdentity(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour)

	for _, email := range []string{"a@x.com", "chef+1@bistro.io", "ÜSER@example.org"} {
		token, err := m.IssueToken(model.Identity{Email: email})
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}

		claims, err := m.ParseToken(token)
		if err != nil {
			t.Fatalf("parse token: %v", err)
		}
		if claims.Email != email {
			t.Fatalf("email = %q, want %q", claims.Email, email)
		}
	}
}

func TestParseToken_Expired(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour)

	issuedAt := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return issuedAt }

	token, err := m.IssueToken(model.Identity{Email: "a@x.com"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	m.now = func() time.Time { return issuedAt.Add(59 * time.Minute) }
	if _, err := m.ParseToken(token); err != nil {
		t.Fatalf("token must be valid inside the window: %v", err)
	}

	m.now = func() time.Time { return issuedAt.Add(61 * time.Minute) }
	_, err = m.ParseToken(token)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestNewAuthMiddleware_DefaultTTL(t *testing.T) {
	m := NewAuthMiddleware("", 0)
	if m.ttl != DefaultTokenTTL {
		t.Fatalf("ttl = %v, want %v", m.ttl, DefaultTokenTTL)
	}
	if len(m.secretKey) == 0 {
		t.Fatalf("secret key must be generated")
	}
}
