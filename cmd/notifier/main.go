// Package main запускает обработчик очереди квитанций, хранящейся в Redis.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mmeshcher/bistro-boss/internal/config"
	"github.com/mmeshcher/bistro-boss/internal/notify"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}
	if cfg.RedisAddr == "" {
		sugar.Fatal("REDIS_ADDR is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		sugar.Fatalw("redis connection error", "addr", cfg.RedisAddr, "error", err.Error())
	}

	sender, err := notify.NewSender(cfg.Mailer(), logger)
	if err != nil {
		sugar.Fatalw("mailer initialization error", "error", err.Error())
	}

	worker := notify.NewWorker(notify.NewRedisDriver(rdb), sender, logger, cfg.NotifyMaxRetries)
	if err := worker.Run(ctx); err != nil {
		sugar.Fatalw("notifier terminated with error", "error", err)
	}
}
