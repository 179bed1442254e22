package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/mmeshcher/bistro-boss/internal/metrics"
)

// DefaultMaxRetries: число повторов отправки после первой неудачи.
const DefaultMaxRetries = 3

const (
	defaultBaseDelay = 500 * time.Millisecond
	popErrorDelay    = 500 * time.Millisecond
)

// Sender доставляет квитанцию получателю.
type Sender interface {
	Send(ctx context.Context, r Receipt) error
}

// Worker выбирает квитанции из очереди и отправляет их с экспоненциальными повторами.
type Worker struct {
	driver     Driver
	sender     Sender
	logger     *zap.Logger
	maxRetries uint64
	baseDelay  time.Duration
}

// NewWorker создаёт обработчик очереди уведомлений.
func NewWorker(driver Driver, sender Sender, logger *zap.Logger, maxRetries int) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Worker{
		driver:     driver,
		sender:     sender,
		logger:     logger,
		maxRetries: uint64(maxRetries),
		baseDelay:  defaultBaseDelay,
	}
}

// Run обрабатывает очередь до отмены контекста.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("notification worker started", zap.Uint64("max_retries", w.maxRetries))

	for {
		raw, err := w.driver.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("notification worker stopped")
				return nil
			}
			w.logger.Error("queue pop error", zap.Error(err))

			timer := time.NewTimer(popErrorDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
			continue
		}
		if raw == nil {
			continue
		}

		w.process(ctx, raw)
	}
}

func (w *Worker) process(ctx context.Context, raw []byte) {
	var receipt Receipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		w.logger.Error("bad receipt payload", zap.Error(err))
		metrics.NotificationsProcessed.WithLabelValues("invalid").Inc()
		return
	}

	if err := w.deliver(ctx, receipt); err != nil {
		w.logger.Error("receipt delivery failed",
			zap.String("transaction_id", receipt.TransactionID),
			zap.Error(err),
		)
		metrics.NotificationsProcessed.WithLabelValues("failed").Inc()
		return
	}

	w.logger.Info("receipt sent", zap.String("transaction_id", receipt.TransactionID))
	metrics.NotificationsProcessed.WithLabelValues("sent").Inc()
}

func (w *Worker) deliver(ctx context.Context, receipt Receipt) error {
	backoff := retry.WithMaxRetries(w.maxRetries, retry.NewExponential(w.baseDelay))

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := w.sender.Send(ctx, receipt); err != nil {
			w.logger.Warn("receipt send attempt failed",
				zap.String("transaction_id", receipt.TransactionID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return retry.RetryableError(fmt.Errorf("attempt %d: %w", attempt, err))
		}
		return nil
	})
}
