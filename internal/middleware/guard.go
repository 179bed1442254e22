package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var (
	// ErrUnauthenticated: токен отсутствует, повреждён или просрочен.
	ErrUnauthenticated = errors.New("unauthorized access")
	// ErrForbidden: токен действителен, но прав недостаточно.
	ErrForbidden = errors.New("forbidden access")
)

// Guard проверяет запрос и либо возвращает ошибку, либо запрос с дополненным контекстом.
type Guard func(r *http.Request) (*http.Request, error)

// Chain выполняет проверки по порядку; первая неудачная прерывает обработку запроса.
func Chain(guards ...Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, guard := range guards {
				enriched, err := guard(r)
				if err != nil {
					writeGuardError(w, err)
					return
				}
				r = enriched
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeGuardError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, ErrUnauthenticated):
		status = http.StatusUnauthorized
		err = ErrUnauthenticated
	case errors.Is(err, ErrForbidden):
		status = http.StatusForbidden
		err = ErrForbidden
	default:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": err.Error()})
}

// AdminChecker определяет, является ли пользователь с указанным email администратором.
type AdminChecker interface {
	IsAdmin(ctx context.Context, email string) (bool, error)
}

// RequireAdmin пропускает только администраторов. Роль читается из хранилища при каждом запросе.
// Должна идти после проверки токена.
func RequireAdmin(checker AdminChecker, logger *zap.Logger) Guard {
	return func(r *http.Request) (*http.Request, error) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			return nil, ErrUnauthenticated
		}

		admin, err := checker.IsAdmin(r.Context(), identity.Email)
		if err != nil {
			logger.Error("admin lookup error", zap.Error(err), zap.String("email", identity.Email))
			return nil, err
		}
		if !admin {
			return nil, ErrForbidden
		}
		return r, nil
	}
}

// RequireSelf пропускает запрос, только если параметр маршрута совпадает с email вызывающего.
func RequireSelf(param string) Guard {
	return func(r *http.Request) (*http.Request, error) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			return nil, ErrUnauthenticated
		}
		if chi.URLParam(r, param) != identity.Email {
			return nil, ErrForbidden
		}
		return r, nil
	}
}
