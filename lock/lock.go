package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked 另一个同步进程持有租约
var ErrLocked = errors.New("sync lease is held by another run")

type UnlockFunc func(ctx context.Context) error

type Locker interface {
	// TryLock 不等待, 租约被占用时返回 ErrLocked
	TryLock(ctx context.Context) (UnlockFunc, error)
	Close() error
}

// 只删除自己持有的租约
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisLocker(addr, password string, db int, key string, ttl time.Duration) (*RedisLocker, error) {
	if key == "" {
		return nil, fmt.Errorf("lock key is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("lock ttl must be positive, got %s", ttl)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisLocker{client: client, key: key, ttl: ttl}, nil
}

func (l *RedisLocker) TryLock(ctx context.Context) (UnlockFunc, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sync lease: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
			return fmt.Errorf("failed to release sync lease: %w", err)
		}
		return nil
	}, nil
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}

// NopLocker 未配置 redis 时使用, 总是成功
type NopLocker struct{}

func (NopLocker) TryLock(ctx context.Context) (UnlockFunc, error) {
	return func(context.Context) error { return nil }, nil
}

func (NopLocker) Close() error { return nil }
