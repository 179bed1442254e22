// Package service реализует бизнес-логику сервиса Bistro Boss.
package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mmeshcher/bistro-boss/internal/model"
	"github.com/mmeshcher/bistro-boss/internal/notify"
	"github.com/mmeshcher/bistro-boss/internal/repository"
	"github.com/mmeshcher/bistro-boss/internal/validation"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	ListMenu(ctx context.Context) ([]model.MenuItem, error)
	GetMenuItem(ctx context.Context, id string) (*model.MenuItem, error)
	CreateMenuItem(ctx context.Context, item model.MenuItem) (model.InsertResult, error)
	UpdateMenuItem(ctx context.Context, id string, patch model.MenuItemPatch) (model.UpdateResult, error)
	DeleteMenuItem(ctx context.Context, id string) (model.DeleteResult, error)

	ListReviews(ctx context.Context) ([]model.Review, error)

	ListCartItems(ctx context.Context, email string) ([]model.CartItem, error)
	CartItemsByIDs(ctx context.Context, ids []string) ([]model.CartItem, error)
	AddCartItem(ctx context.Context, item model.CartItem) (model.InsertResult, error)
	DeleteCartItem(ctx context.Context, id string) (model.DeleteResult, error)

	CreateUser(ctx context.Context, u model.User) (model.InsertResult, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	DeleteUser(ctx context.Context, id string) (model.DeleteResult, error)
	PromoteUser(ctx context.Context, id string) (model.UpdateResult, error)

	FinalizePayment(ctx context.Context, p model.Payment) (model.FinalizeResult, error)
	ListPaymentsByEmail(ctx context.Context, email string) ([]model.Payment, error)

	AdminStats(ctx context.Context) (model.AdminStats, error)
	CategoryStats(ctx context.Context) ([]model.CategoryStat, error)
}

// PaymentProvider создаёт платёжные намерения у внешнего провайдера.
type PaymentProvider interface {
	CreateIntent(ctx context.Context, price float64) (string, error)
}

// ReceiptDispatcher ставит квитанцию об оплате в очередь уведомлений.
type ReceiptDispatcher interface {
	Dispatch(ctx context.Context, r notify.Receipt) error
}

// Service содержит бизнес-логику сервиса Bistro Boss.
type Service struct {
	repo       Repository
	payments   PaymentProvider
	dispatcher ReceiptDispatcher
	logger     *zap.Logger
}

// NewService создаёт сервис с указанными хранилищем, платёжным провайдером и очередью уведомлений.
func NewService(repo Repository, payments PaymentProvider, dispatcher ReceiptDispatcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		payments:   payments,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// IsAdmin читает роль пользователя из хранилища. Отсутствие пользователя не является ошибкой.
func (s *Service) IsAdmin(ctx context.Context, email string) (bool, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return u.IsAdmin(), nil
}

// CreateUser создаёт пользователя, если пользователя с таким email ещё нет.
func (s *Service) CreateUser(ctx context.Context, u model.User) (model.InsertResult, error) {
	if err := validation.ValidateUser(u); err != nil {
		return model.InsertResult{}, err
	}
	u.Role = ""
	return s.repo.CreateUser(ctx, u)
}

// ListUsers возвращает всех пользователей.
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.ListUsers(ctx)
}

// DeleteUser удаляет пользователя.
func (s *Service) DeleteUser(ctx context.Context, id string) (model.DeleteResult, error) {
	return s.repo.DeleteUser(ctx, id)
}

// PromoteUser назначает пользователю роль администратора.
func (s *Service) PromoteUser(ctx context.Context, id string) (model.UpdateResult, error) {
	return s.repo.PromoteUser(ctx, id)
}

// ListMenu возвращает меню.
func (s *Service) ListMenu(ctx context.Context) ([]model.MenuItem, error) {
	return s.repo.ListMenu(ctx)
}

// GetMenuItem возвращает блюдо или repository.ErrNotFound.
func (s *Service) GetMenuItem(ctx context.Context, id string) (*model.MenuItem, error) {
	return s.repo.GetMenuItem(ctx, id)
}

// CreateMenuItem добавляет блюдо в меню.
func (s *Service) CreateMenuItem(ctx context.Context, item model.MenuItem) (model.InsertResult, error) {
	if err := validation.ValidateMenuItem(item); err != nil {
		return model.InsertResult{}, err
	}
	return s.repo.CreateMenuItem(ctx, item)
}

// UpdateMenuItem изменяет переданные поля блюда.
func (s *Service) UpdateMenuItem(ctx context.Context, id string, patch model.MenuItemPatch) (model.UpdateResult, error) {
	if err := validation.ValidateMenuItemPatch(patch); err != nil {
		return model.UpdateResult{}, err
	}
	return s.repo.UpdateMenuItem(ctx, id, patch)
}

// DeleteMenuItem удаляет блюдо.
func (s *Service) DeleteMenuItem(ctx context.Context, id string) (model.DeleteResult, error) {
	return s.repo.DeleteMenuItem(ctx, id)
}

// ListReviews возвращает отзывы.
func (s *Service) ListReviews(ctx context.Context) ([]model.Review, error) {
	return s.repo.ListReviews(ctx)
}

// ListCartItems возвращает корзину пользователя.
func (s *Service) ListCartItems(ctx context.Context, email string) ([]model.CartItem, error) {
	return s.repo.ListCartItems(ctx, email)
}

// AddCartItem добавляет позицию в корзину.
func (s *Service) AddCartItem(ctx context.Context, item model.CartItem) (model.InsertResult, error) {
	if err := validation.ValidateCartItem(item); err != nil {
		return model.InsertResult{}, err
	}
	return s.repo.AddCartItem(ctx, item)
}

// DeleteCartItem удаляет позицию корзины.
func (s *Service) DeleteCartItem(ctx context.Context, id string) (model.DeleteResult, error) {
	return s.repo.DeleteCartItem(ctx, id)
}
