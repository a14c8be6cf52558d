package bus

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
	"github.com/yungbote/studydeck-backend/internal/realtime"
)

func TestNewRedisBusRequiresAddr(t *testing.T) {
	_, err := NewRedisBus(context.Background(), logger.Nop(), RedisConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing redis addr")
}

func TestLocalBusForwardsToHub(t *testing.T) {
	hub := realtime.NewSSEHub(logger.Nop())
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, "user:x")

	var b Bus = NewLocalBus()
	require.NoError(t, b.StartForwarder(context.Background(), hub.Broadcast))
	require.NoError(t, b.Publish(context.Background(), realtime.SSEMessage{Channel: "user:x", Event: realtime.SSEEventJobDone}))

	select {
	case msg := <-client.Outbound:
		assert.Equal(t, realtime.SSEEventJobDone, msg.Event)
	default:
		t.Fatalf("message not delivered")
	}
}
