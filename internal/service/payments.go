package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/bistro-boss/internal/metrics"
	"github.com/mmeshcher/bistro-boss/internal/model"
	"github.com/mmeshcher/bistro-boss/internal/notify"
	"github.com/mmeshcher/bistro-boss/internal/repository"
	"github.com/mmeshcher/bistro-boss/internal/validation"
)

var (
	// ErrCartOwnership: позиция корзины не найдена или принадлежит другому пользователю.
	ErrCartOwnership = errors.New("cart item does not belong to payer")
	// ErrPaymentUnavailable: платёжный провайдер не настроен.
	ErrPaymentUnavailable = errors.New("payment provider is not configured")
)

// FinalizePayment оформляет оплаченный заказ: проверяет корзину, пересчитывает сумму,
// атомарно сохраняет оплату с очисткой корзины и ставит квитанцию в очередь.
func (s *Service) FinalizePayment(ctx context.Context, p model.Payment) (model.FinalizeResult, error) {
	res, err := s.finalize(ctx, p)
	switch {
	case err == nil:
		metrics.PaymentsFinalized.WithLabelValues("ok").Inc()
	case errors.Is(err, repository.ErrCartConflict), errors.Is(err, ErrCartOwnership), errors.Is(err, repository.ErrPaymentExists):
		metrics.PaymentsFinalized.WithLabelValues("conflict").Inc()
	case errors.Is(err, validation.ErrInvalidInput), errors.Is(err, repository.ErrInvalidID):
		metrics.PaymentsFinalized.WithLabelValues("invalid").Inc()
	default:
		metrics.PaymentsFinalized.WithLabelValues("error").Inc()
	}
	return res, err
}

func (s *Service) finalize(ctx context.Context, p model.Payment) (model.FinalizeResult, error) {
	if err := validation.ValidatePayment(p); err != nil {
		return model.FinalizeResult{}, err
	}

	items, err := s.repo.CartItemsByIDs(ctx, p.CartIDs)
	if err != nil {
		return model.FinalizeResult{}, fmt.Errorf("load cart items: %w", err)
	}

	// Хранилища возвращают идентификаторы в нижнем регистре.
	byID := make(map[string]model.CartItem, len(items))
	for _, item := range items {
		byID[strings.ToLower(item.ID)] = item
	}

	var totalCents int64
	menuItemIDs := make([]string, 0, len(p.CartIDs))
	for _, id := range p.CartIDs {
		item, ok := byID[strings.ToLower(id)]
		if !ok || item.Email != p.Email {
			return model.FinalizeResult{}, fmt.Errorf("%w: %s", ErrCartOwnership, id)
		}
		totalCents += model.ToCents(item.Price)
		menuItemIDs = append(menuItemIDs, item.MenuItemID)
	}

	total := model.FromCents(totalCents)
	if model.ToCents(p.Price) != totalCents {
		s.logger.Warn("submitted price differs from cart total",
			zap.String("transaction_id", p.TransactionID),
			zap.Float64("submitted", p.Price),
			zap.Float64("computed", total),
		)
	}
	p.Price = total

	if len(p.MenuItemIDs) == 0 {
		p.MenuItemIDs = menuItemIDs
	}
	p.Status = model.PaymentStatusPending
	if p.Date.IsZero() {
		p.Date = time.Now().UTC()
	}

	res, err := s.repo.FinalizePayment(ctx, p)
	if err != nil {
		return model.FinalizeResult{}, err
	}

	receipt := notify.Receipt{
		TransactionID: p.TransactionID,
		Email:         p.Email,
		Price:         p.Price,
		Date:          p.Date,
	}
	if s.dispatcher != nil {
		if err := s.dispatcher.Dispatch(context.WithoutCancel(ctx), receipt); err != nil {
			s.logger.Error("enqueue receipt error",
				zap.String("transaction_id", p.TransactionID),
				zap.Error(err),
			)
		}
	}

	return res, nil
}

// ListPayments возвращает историю оплат пользователя.
func (s *Service) ListPayments(ctx context.Context, email string) ([]model.Payment, error) {
	return s.repo.ListPaymentsByEmail(ctx, email)
}

// CreatePaymentIntent создаёт платёжное намерение на указанную сумму и возвращает client secret.
func (s *Service) CreatePaymentIntent(ctx context.Context, price float64) (string, error) {
	if s.payments == nil {
		return "", ErrPaymentUnavailable
	}
	if !validation.IsValidPrice(price) {
		return "", fmt.Errorf("%w: price %v", validation.ErrInvalidInput, price)
	}
	return s.payments.CreateIntent(ctx, price)
}
