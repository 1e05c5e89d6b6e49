package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestNewPublisherRequiresClient(t *testing.T) {
	t.Parallel()

	_, err := NewPublisher(nil, "")
	require.Error(t, err)
}

func TestNewRedisClientRejectsBadURL(t *testing.T) {
	t.Parallel()

	_, err := NewRedisClient("http://not-redis")
	require.Error(t, err)
}

func startRedis(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestPublishPushesJSON(t *testing.T) {
	t.Parallel()

	redisURL := startRedis(t)
	rdb, err := NewRedisClient(redisURL)
	require.NoError(t, err)

	publisher, err := NewPublisher(rdb, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = publisher.Close() })

	ctx := context.Background()
	require.NoError(t, publisher.Ping(ctx))
	require.Equal(t, DefaultQueueName, publisher.QueueName())

	require.NoError(t, publisher.Publish(ctx, OwnerNotification{
		Kind:     "new_lead",
		TenantID: "tenant-1",
		Username: "acme",
		AuthID:   "user_1",
		Payload:  json.RawMessage(`{"email":"ada@example.com"}`),
	}))

	raw, err := rdb.RPop(ctx, DefaultQueueName).Result()
	require.NoError(t, err)

	var msg OwnerNotification
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	require.NotEmpty(t, msg.ID)
	require.False(t, msg.CreatedAt.IsZero())
	require.Equal(t, "acme", msg.Username)
	require.JSONEq(t, `{"email":"ada@example.com"}`, string(msg.Payload))
}
