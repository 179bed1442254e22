// Package model содержит доменные сущности сервиса Bistro Boss.
package model

import "time"

// RoleAdmin обозначает администратора ресторана.
const RoleAdmin = "admin"

// User представляет зарегистрированного пользователя.
type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// IsAdmin сообщает, обладает ли пользователь правами администратора.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Identity: данные о личности, которые подписываются в токене доступа.
type Identity struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// MenuItem описывает блюдо из меню.
type MenuItem struct {
	ID       string  `json:"_id"`
	Name     string  `json:"name"`
	Recipe   string  `json:"recipe"`
	Image    string  `json:"image"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

// MenuItemPatch содержит изменяемые поля блюда; nil означает «не менять».
type MenuItemPatch struct {
	Name     *string  `json:"name,omitempty"`
	Recipe   *string  `json:"recipe,omitempty"`
	Image    *string  `json:"image,omitempty"`
	Category *string  `json:"category,omitempty"`
	Price    *float64 `json:"price,omitempty"`
}

// Empty сообщает, что патч не содержит ни одного поля.
func (p MenuItemPatch) Empty() bool {
	return p.Name == nil && p.Recipe == nil && p.Image == nil && p.Category == nil && p.Price == nil
}

// Review описывает отзыв посетителя.
type Review struct {
	ID      string  `json:"_id"`
	Name    string  `json:"name"`
	Details string  `json:"details"`
	Rating  float64 `json:"rating"`
}

// CartItem: позиция корзины пользователя с зафиксированной ценой.
type CartItem struct {
	ID         string  `json:"_id"`
	Email      string  `json:"email"`
	MenuItemID string  `json:"menuId"`
	Name       string  `json:"name,omitempty"`
	Image      string  `json:"image,omitempty"`
	Price      float64 `json:"price"`
}

// PaymentStatusPending: статус оплаченного, но ещё не выданного заказа.
const PaymentStatusPending = "pending"

// Payment описывает завершённую оплату заказа.
type Payment struct {
	ID            string    `json:"_id"`
	Email         string    `json:"email"`
	Price         float64   `json:"price"`
	TransactionID string    `json:"transactionId"`
	Date          time.Time `json:"date"`
	CartIDs       []string  `json:"cartIds"`
	MenuItemIDs   []string  `json:"menuItemIds"`
	Status        string    `json:"status"`
}

// InsertResult повторяет подтверждение вставки документа драйвером хранилища.
type InsertResult struct {
	Acknowledged bool    `json:"acknowledged"`
	InsertedID   *string `json:"insertedId"`
}

// UpdateResult повторяет подтверждение обновления документа драйвером хранилища.
type UpdateResult struct {
	Acknowledged  bool    `json:"acknowledged"`
	MatchedCount  int64   `json:"matchedCount"`
	ModifiedCount int64   `json:"modifiedCount"`
	UpsertedID    *string `json:"upsertedId"`
}

// DeleteResult повторяет подтверждение удаления документов драйвером хранилища.
type DeleteResult struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

// FinalizeResult содержит результат оформления заказа: запись об оплате и очистка корзины.
type FinalizeResult struct {
	Payment InsertResult `json:"paymentResult"`
	Cart    DeleteResult `json:"deleteResult"`
}

// AdminStats содержит сводные показатели для панели администратора.
type AdminStats struct {
	Users     int64   `json:"users"`
	MenuItems int64   `json:"menuItems"`
	Orders    int64   `json:"orders"`
	Revenue   float64 `json:"revenue"`
}

// CategoryStat: продажи одной категории меню.
type CategoryStat struct {
	Category string  `json:"category"`
	Quantity int64   `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// Inserted строит подтверждение вставки с указанным идентификатором.
func Inserted(id string) InsertResult {
	return InsertResult{Acknowledged: true, InsertedID: &id}
}
