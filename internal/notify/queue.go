// Package notify доставляет уведомления об оформленных заказах через очередь.
//
// Оформление заказа только ставит квитанцию в очередь; отправкой с повторами
// занимается Worker, поэтому сбой почтового сервера не влияет на ответ клиенту.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Receipt: квитанция об оплаченном заказе.
type Receipt struct {
	TransactionID string    `json:"transactionId"`
	Email         string    `json:"email"`
	Price         float64   `json:"price"`
	Date          time.Time `json:"date"`
}

// Driver: хранилище очереди уведомлений.
type Driver interface {
	Push(ctx context.Context, payload []byte) error
	// Pop блокируется до появления задания. Пустой результат без ошибки означает таймаут.
	Pop(ctx context.Context) ([]byte, error)
}

// Dispatcher ставит квитанции в очередь.
type Dispatcher struct {
	driver Driver
}

// NewDispatcher создаёт диспетчер поверх указанного драйвера.
func NewDispatcher(driver Driver) *Dispatcher {
	return &Dispatcher{driver: driver}
}

// Dispatch сериализует квитанцию и кладёт её в очередь.
func (d *Dispatcher) Dispatch(ctx context.Context, r Receipt) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}
	if err := d.driver.Push(ctx, payload); err != nil {
		return fmt.Errorf("enqueue receipt %s: %w", r.TransactionID, err)
	}
	return nil
}
