// Package queue publishes owner notifications to a Redis list consumed by an
// external messaging worker.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the list new-lead notices are pushed onto.
const DefaultQueueName = "leadcapture:owner-notifications"

// OwnerNotification is the message an owner-notification worker consumes.
type OwnerNotification struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	TenantID  string          `json:"tenantId"`
	Username  string          `json:"username"`
	AuthID    string          `json:"authId"`
	Email     *string         `json:"email,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Publisher pushes owner notifications to Redis.
type Publisher struct {
	rdb       *redis.Client
	queueName string
}

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// NewPublisher creates a publisher targeting queueName.
func NewPublisher(rdb *redis.Client, queueName string) (*Publisher, error) {
	if rdb == nil {
		return nil, errors.New("redis client is required")
	}
	if queueName == "" {
		queueName = DefaultQueueName
	}
	return &Publisher{rdb: rdb, queueName: queueName}, nil
}

// QueueName returns the target list.
func (p *Publisher) QueueName() string {
	return p.queueName
}

// Publish serialises the notification and LPUSHes it. A missing ID or
// timestamp is filled in.
func (p *Publisher) Publish(ctx context.Context, msg OwnerNotification) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal owner notification: %w", err)
	}

	if err := p.rdb.LPush(ctx, p.queueName, string(raw)).Err(); err != nil {
		return fmt.Errorf("redis LPUSH: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}

// Close releases the underlying client.
func (p *Publisher) Close() error {
	return p.rdb.Close()
}
