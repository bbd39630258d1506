package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/archsheet-backend/internal/platform/envutil"
	"github.com/yungbote/archsheet-backend/internal/platform/logger"
	"github.com/yungbote/archsheet-backend/internal/sse"
)

// Bus fans workflow state events across replicas. Each instance publishes
// to one redis channel and forwards received messages into its local hub.
type Bus interface {
	Publish(ctx context.Context, msg sse.Message) error
	StartForwarder(ctx context.Context, hub *sse.Hub)
	Close() error
}

type bus struct {
	log     *logger.Logger
	client  *goredis.Client
	channel string
}

// NewBus connects to REDIS_ADDR and validates the connection with a ping.
// Returns nil when REDIS_ADDR is unset so single-replica deployments skip
// the bus entirely.
func NewBus(ctx context.Context, log *logger.Logger) (Bus, error) {
	addr := envutil.Str("REDIS_ADDR", "")
	if addr == "" {
		return nil, nil
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: envutil.Str("REDIS_PASSWORD", ""),
		DB:       envutil.Int("REDIS_DB", 0),
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &bus{
		log:     log.With("component", "SSEBus"),
		client:  client,
		channel: envutil.Str("REDIS_CHANNEL", "sheet-events"),
	}, nil
}

func (b *bus) Publish(ctx context.Context, msg sse.Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal sse message: %w", err)
	}
	return b.client.Publish(ctx, b.channel, raw).Err()
}

func (b *bus) StartForwarder(ctx context.Context, hub *sse.Hub) {
	sub := b.client.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		b.log.Error("redis subscribe failed", "channel", b.channel, "error", err)
		_ = sub.Close()
		return
	}
	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var msg sse.Message
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					b.log.Warn("dropping malformed bus message", "error", err)
					continue
				}
				hub.Broadcast(msg)
			}
		}
	}()
	b.log.Info("sse bus forwarder started", "channel", b.channel)
}

func (b *bus) Close() error {
	return b.client.Close()
}
