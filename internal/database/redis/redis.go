package redis

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"Mimic_1.0/internal/config"

	"github.com/go-redis/redis/v8"
)

// pingTimeout 是初始化时连通性检查的超时时间。
const pingTimeout = 5 * time.Second

var (
	client  *redis.Client
	once    sync.Once
	initErr error
)

// GetClient 使用单例模式初始化并返回一个 Redis 客户端实例。
// Redis 仅用于存放带 TTL 的调用链记录，不承载任何持久化状态，
// 因此连接失败时上层可以降级运行而不是中止启动。
func GetClient(cfg *config.RedisConfig) (*redis.Client, error) {
	once.Do(func() {
		rdb := redis.NewClient(&redis.Options{
			Addr:        cfg.Address,
			Password:    cfg.Password,
			DB:          cfg.DB,
			DialTimeout: pingTimeout,
		})

		// 使用 Ping 检查连接是否成功。
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			initErr = fmt.Errorf("无法连接到 Redis: %w", err)
			return
		}

		log.Println("✅ 成功连接到 Redis!")
		client = rdb
	})

	return client, initErr
}

// Close 安全地关闭单例的 Redis 连接。
func Close() error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// HealthCheck 检查 Redis 连接的健康状况。
func HealthCheck(ctx context.Context) error {
	if client == nil {
		return fmt.Errorf("Redis 客户端未初始化")
	}
	return client.Ping(ctx).Err()
}
