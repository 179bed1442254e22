// Package repository содержит реализации хранилища данных сервиса Bistro Boss:
// PostgreSQL и MongoDB.
package repository

import "errors"

var (
	// ErrNotFound возвращается, если запись не найдена.
	ErrNotFound = errors.New("record not found")
	// ErrUserExists возвращается при попытке создать пользователя с уже существующим email.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidID возвращается, если идентификатор записи имеет неверный формат.
	ErrInvalidID = errors.New("invalid record id")
	// ErrCartConflict возвращается, если часть позиций корзины уже удалена параллельным оформлением заказа.
	ErrCartConflict = errors.New("cart items already checked out")
	// ErrPaymentExists возвращается при повторной регистрации той же транзакции.
	ErrPaymentExists = errors.New("payment already recorded")
)

// Названия коллекций и таблиц хранилища.
const (
	usersCollection    = "users"
	menuCollection     = "menus"
	reviewsCollection  = "reviews"
	cartsCollection    = "carts"
	paymentsCollection = "payments"
)
