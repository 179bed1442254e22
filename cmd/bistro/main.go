// Package main запускает HTTP-сервер сервиса Bistro Boss.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/bistro-boss/internal/config"
	"github.com/mmeshcher/bistro-boss/internal/handler"
	"github.com/mmeshcher/bistro-boss/internal/middleware"
	"github.com/mmeshcher/bistro-boss/internal/notify"
	"github.com/mmeshcher/bistro-boss/internal/payment"
	"github.com/mmeshcher/bistro-boss/internal/repository"
	"github.com/mmeshcher/bistro-boss/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := openStore(cfg)
	if err != nil {
		sugar.Fatalw("database initialization error", "driver", cfg.StoreDriver, "error", err.Error())
	}

	var paymentClient service.PaymentProvider
	if cfg.StripeSecretKey != "" {
		paymentClient = payment.NewClient(payment.Options{
			SecretKey: cfg.StripeSecretKey,
			Currency:  cfg.PaymentCurrency,
			BaseURL:   cfg.StripeAPIURL,
			Logger:    logger,
		})
	} else {
		sugar.Warn("STRIPE_SECRET_KEY is not set, payment intents are disabled")
	}

	// С Redis квитанции отправляет отдельный процесс cmd/notifier.
	var (
		driver      notify.Driver
		runWorker   bool
		redisClient *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer redisClient.Close()
		driver = notify.NewRedisDriver(redisClient)
	} else {
		driver = notify.NewMemoryDriver(0)
		runWorker = true
	}

	svc := service.NewService(repo, paymentClient, notify.NewDispatcher(driver), logger)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.AccessTokenSecret, middleware.DefaultTokenTTL)
	h := handler.NewHandler(svc, logger, authMiddleware, cfg.CORSOrigins)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if redisClient != nil {
		if err := redisClient.Ping(ctx).Err(); err != nil {
			sugar.Fatalw("redis connection error", "addr", cfg.RedisAddr, "error", err.Error())
		}
	}

	// Обработка очереди уведомлений в памяти процесса
	if runWorker {
		sender, err := notify.NewSender(cfg.Mailer(), logger)
		if err != nil {
			sugar.Fatalw("mailer initialization error", "error", err.Error())
		}
		worker := notify.NewWorker(driver, sender, logger, cfg.NotifyMaxRetries)
		g.Go(func() error {
			return worker.Run(ctx)
		})
	}

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting bistro boss server", "addr", cfg.RunAddress, "store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

func openStore(cfg *config.Config) (service.Repository, error) {
	if cfg.StoreDriver == config.StoreDriverMongo {
		repo, err := repository.NewMongoRepository(cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		return nil, err
	}
	return repo, nil
}
