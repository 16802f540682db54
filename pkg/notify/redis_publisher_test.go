package notify

import (
	"assessment_engine/internal/service"
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogListener(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	LogListener(zap.New(core))(context.Background(), service.LevelUpEvent{LearnerID: 3, OldLevel: 1, NewLevel: 2})

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.EqualValues(t, 3, fields["learnerId"])
	assert.EqualValues(t, 2, fields["newLevel"])
}

func TestPublishFailureIsLogged(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	core, logs := observer.New(zap.WarnLevel)
	p := NewRedisPublisher(rdb, "progression:level_up", zap.New(core))
	p.Publish(context.Background(), service.LevelUpEvent{LearnerID: 9, OldLevel: 2, NewLevel: 3, At: time.Now()})

	require.Equal(t, 1, logs.FilterMessage("publish level-up event").Len())
}
