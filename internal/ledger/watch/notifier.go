package watch

import (
	"context"
	"strings"

	"github.com/stocktrackerst/stock-tracker/pkg/cache"
	"github.com/stocktrackerst/stock-tracker/pkg/logger"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "inventory:changed:"
	channelPattern = channelPrefix + "*"
)

// RedisNotifier publishes tenant change notifications so hubs in other
// processes refresh their subscribers. Publishing is best-effort.
type RedisNotifier struct {
	cache  *cache.RedisClient
	logger logger.ZapLogger
}

func NewRedisNotifier(c *cache.RedisClient, log logger.ZapLogger) *RedisNotifier {
	return &RedisNotifier{cache: c, logger: log}
}

func (n *RedisNotifier) NotifyChanged(ctx context.Context, tenantID string) {
	if err := n.cache.Publish(ctx, channelPrefix+tenantID, tenantID); err != nil {
		n.logger.Error("failed to publish change notification",
			zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

// Run consumes the redis change feed and drives the hub until ctx is done.
func (h *Hub) Run(ctx context.Context, c *cache.RedisClient) {
	pubsub := c.PSubscribe(ctx, channelPattern)
	defer pubsub.Close()

	h.logger.Info("Starting balance watch feed", zap.String("pattern", channelPattern))
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Stopping balance watch feed")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			tenantID := strings.TrimPrefix(msg.Channel, channelPrefix)
			h.NotifyChanged(ctx, tenantID)
		}
	}
}
