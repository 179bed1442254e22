package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueueKey: ключ списка уведомлений в Redis.
const RedisQueueKey = "bistro:notifications"

const redisPopTimeout = 5 * time.Second

// RedisDriver хранит очередь в списке Redis: LPUSH при постановке, BRPOP при выборке.
type RedisDriver struct {
	rdb        *redis.Client
	key        string
	popTimeout time.Duration
}

// NewRedisDriver создаёт драйвер очереди поверх клиента Redis.
func NewRedisDriver(rdb *redis.Client) *RedisDriver {
	return &RedisDriver{rdb: rdb, key: RedisQueueKey, popTimeout: redisPopTimeout}
}

// Push добавляет задание в начало списка.
func (d *RedisDriver) Push(ctx context.Context, payload []byte) error {
	if err := d.rdb.LPush(ctx, d.key, payload).Err(); err != nil {
		return fmt.Errorf("redis push: %w", err)
	}
	return nil
}

// Pop забирает задание с конца списка, ожидая не дольше таймаута.
func (d *RedisDriver) Pop(ctx context.Context) ([]byte, error) {
	result, err := d.rdb.BRPop(ctx, d.popTimeout, d.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis pop: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}
	return []byte(result[1]), nil
}

// Len возвращает длину очереди.
func (d *RedisDriver) Len(ctx context.Context) (int64, error) {
	return d.rdb.LLen(ctx, d.key).Result()
}
