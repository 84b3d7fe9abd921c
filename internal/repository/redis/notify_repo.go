package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const NotifyChannelPrefix = "notify:user"

// NotifyPublisher 实时通知通道：每个用户一个 pub/sub channel，不保证送达
type NotifyPublisher struct {
	RDB *redis.Client
}

func NotifyChannel(userID uint64) string {
	return fmt.Sprintf("%s:%d", NotifyChannelPrefix, userID)
}

// Publish 返回收到消息的订阅者数量
func (p *NotifyPublisher) Publish(ctx context.Context, userID uint64, payload []byte) (int64, error) {
	return p.RDB.Publish(ctx, NotifyChannel(userID), payload).Result()
}

// Subscribe 调用方负责 Close
func (p *NotifyPublisher) Subscribe(ctx context.Context, userID uint64) *redis.PubSub {
	return p.RDB.Subscribe(ctx, NotifyChannel(userID))
}
