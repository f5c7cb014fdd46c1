package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ChannelKeyPrefix = "channel:%s"
	ViewersKeyPrefix = "channel:%s:viewers"
)

const (
	ChannelTTL = 30 * time.Second
)

func ChannelKey(channelID string) string {
	return fmt.Sprintf(ChannelKeyPrefix, channelID)
}

func ViewersKey(channelID string) string {
	return fmt.Sprintf(ViewersKeyPrefix, channelID)
}

// GetJSON loads key into dst. It reports false on a miss, when no client
// is configured, or when the stored value cannot be decoded.
func GetJSON(ctx context.Context, key string, dst any) bool {
	if client == nil {
		return false
	}
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// SetJSON stores v under key with ttl. Without a client it is a no-op.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := client.Set(ctx, key, raw, ttl).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateChannel(ctx context.Context, channelID string) {
	Invalidate(ctx, ChannelKey(channelID))
}
