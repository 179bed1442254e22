// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"

	"github.com/mmeshcher/bistro-boss/internal/model"
)

// ErrInvalidInput возвращается для некорректного тела запроса.
var ErrInvalidInput = errors.New("invalid input")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// IsValidEmail проверяет, что строка является одиночным адресом электронной почты без имени.
func IsValidEmail(email string) bool {
	if email == "" || strings.TrimSpace(email) != email {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email
}

// IsValidPrice проверяет, что цена конечна, неотрицательна и не больше model.MaxPrice.
func IsValidPrice(price float64) bool {
	return !math.IsNaN(price) && !math.IsInf(price, 0) && price >= 0 && price <= model.MaxPrice
}

// ValidatePayment проверяет тело запроса на оформление заказа.
func ValidatePayment(p model.Payment) error {
	if !IsValidEmail(p.Email) {
		return invalid("email %q", p.Email)
	}
	if strings.TrimSpace(p.TransactionID) == "" {
		return invalid("empty transaction id")
	}
	if len(p.CartIDs) == 0 {
		return invalid("empty cart ids")
	}
	seen := make(map[string]struct{}, len(p.CartIDs))
	for _, id := range p.CartIDs {
		if id == "" {
			return invalid("empty cart id")
		}
		key := strings.ToLower(id)
		if _, dup := seen[key]; dup {
			return invalid("duplicate cart id %s", id)
		}
		seen[key] = struct{}{}
	}
	if !IsValidPrice(p.Price) {
		return invalid("price %v", p.Price)
	}
	return nil
}

// ValidateMenuItem проверяет новое блюдо.
func ValidateMenuItem(item model.MenuItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return invalid("empty name")
	}
	if strings.TrimSpace(item.Category) == "" {
		return invalid("empty category")
	}
	if !IsValidPrice(item.Price) {
		return invalid("price %v", item.Price)
	}
	return nil
}

// ValidateMenuItemPatch проверяет изменение блюда.
func ValidateMenuItemPatch(p model.MenuItemPatch) error {
	if p.Empty() {
		return invalid("no fields to update")
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return invalid("empty name")
	}
	if p.Category != nil && strings.TrimSpace(*p.Category) == "" {
		return invalid("empty category")
	}
	if p.Price != nil && !IsValidPrice(*p.Price) {
		return invalid("price %v", *p.Price)
	}
	return nil
}

// ValidateCartItem проверяет позицию, добавляемую в корзину.
func ValidateCartItem(item model.CartItem) error {
	if !IsValidEmail(item.Email) {
		return invalid("email %q", item.Email)
	}
	if item.MenuItemID == "" {
		return invalid("empty menu item id")
	}
	if !IsValidPrice(item.Price) {
		return invalid("price %v", item.Price)
	}
	return nil
}

// ValidateUser проверяет пользователя, создаваемого при первом входе.
func ValidateUser(u model.User) error {
	if !IsValidEmail(u.Email) {
		return invalid("email %q", u.Email)
	}
	return nil
}
