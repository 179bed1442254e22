// Package handler содержит HTTP-обработчики API сервиса Bistro Boss.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/bistro-boss/internal/middleware"
	"github.com/mmeshcher/bistro-boss/internal/model"
	"github.com/mmeshcher/bistro-boss/internal/payment"
	"github.com/mmeshcher/bistro-boss/internal/repository"
	"github.com/mmeshcher/bistro-boss/internal/service"
	"github.com/mmeshcher/bistro-boss/internal/validation"
)

const maxBodyBytes = 1 << 20

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	middleware.AdminChecker

	ListMenu(ctx context.Context) ([]model.MenuItem, error)
	GetMenuItem(ctx context.Context, id string) (*model.MenuItem, error)
	CreateMenuItem(ctx context.Context, item model.MenuItem) (model.InsertResult, error)
	UpdateMenuItem(ctx context.Context, id string, patch model.MenuItemPatch) (model.UpdateResult, error)
	DeleteMenuItem(ctx context.Context, id string) (model.DeleteResult, error)

	ListReviews(ctx context.Context) ([]model.Review, error)

	ListCartItems(ctx context.Context, email string) ([]model.CartItem, error)
	AddCartItem(ctx context.Context, item model.CartItem) (model.InsertResult, error)
	DeleteCartItem(ctx context.Context, id string) (model.DeleteResult, error)

	CreateUser(ctx context.Context, u model.User) (model.InsertResult, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	DeleteUser(ctx context.Context, id string) (model.DeleteResult, error)
	PromoteUser(ctx context.Context, id string) (model.UpdateResult, error)

	CreatePaymentIntent(ctx context.Context, price float64) (string, error)
	FinalizePayment(ctx context.Context, p model.Payment) (model.FinalizeResult, error)
	ListPayments(ctx context.Context, email string) ([]model.Payment, error)

	AdminStats(ctx context.Context) (model.AdminStats, error)
	OrderStats(ctx context.Context) ([]model.CategoryStat, error)
}

// Handler реализует HTTP-обработчики API сервиса Bistro Boss.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	corsOrigins    []string
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, corsOrigins []string) *Handler {
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		corsOrigins:    corsOrigins,
	}
}

// IssueToken выпускает токен доступа для переданной личности.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var identity model.Identity
	if err := decodeJSON(w, r, &identity); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidEmail(identity.Email) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	token, err := h.authMiddleware.IssueToken(identity)
	if err != nil {
		h.logger.Error("issue token error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Health сообщает, что сервис запущен.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Bistro Boss is running"))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

// writeError переводит ошибку сервиса в HTTP-статус. Непредвиденные ошибки логируются.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	var status int
	switch {
	case errors.Is(err, validation.ErrInvalidInput),
		errors.Is(err, repository.ErrInvalidID),
		errors.Is(err, payment.ErrInvalidPrice):
		status = http.StatusBadRequest
	case errors.Is(err, repository.ErrCartConflict),
		errors.Is(err, repository.ErrPaymentExists),
		errors.Is(err, service.ErrCartOwnership):
		status = http.StatusConflict
	case errors.Is(err, service.ErrPaymentUnavailable):
		status = http.StatusServiceUnavailable
	default:
		h.logger.Error(op+" error", zap.Error(err))
		status = http.StatusInternalServerError
	}
	http.Error(w, http.StatusText(status), status)
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// Me возвращает личность из токена доступа.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	h.writeJSON(w, http.StatusOK, identity)
}
