// Package notify forwards level-up events to whoever delivers notifications.
package notify

import (
	"assessment_engine/internal/service"
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisPublisher publishes level-up events on a pub/sub channel consumed by
// the notification service.
type RedisPublisher struct {
	Redis   *redis.Client
	Channel string
	Log     *zap.Logger
}

func NewRedisPublisher(rdb *redis.Client, channel string, log *zap.Logger) *RedisPublisher {
	return &RedisPublisher{Redis: rdb, Channel: channel, Log: log}
}

// Publish never fails the caller; a lost notification is logged, the XP is already stored.
func (p *RedisPublisher) Publish(ctx context.Context, ev service.LevelUpEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.Log.Error("marshal level-up event", zap.Error(err))
		return
	}
	if err := p.Redis.Publish(ctx, p.Channel, payload).Err(); err != nil {
		p.Log.Warn("publish level-up event",
			zap.Uint("learnerId", ev.LearnerID),
			zap.Int("newLevel", ev.NewLevel),
			zap.Error(err),
		)
	}
}

// LogListener is the fallback when redis is disabled.
func LogListener(log *zap.Logger) service.LevelUpListener {
	return func(_ context.Context, ev service.LevelUpEvent) {
		log.Info("learner leveled up",
			zap.Uint("learnerId", ev.LearnerID),
			zap.Int("oldLevel", ev.OldLevel),
			zap.Int("newLevel", ev.NewLevel),
		)
	}
}
