package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultStreamMaxLen = 10000

// Publisher appends events to Redis Streams. Streams are capped
// approximately at maxLen entries.
type Publisher struct {
	client *redis.Client
	maxLen int64
	now    func() time.Time
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client, maxLen: defaultStreamMaxLen, now: time.Now}
}

// Publish wraps data in an Event envelope and appends it to stream. The
// entry carries the event type as a plain field next to the JSON body so
// XRANGE output can be filtered without decoding.
func (p *Publisher) Publish(ctx context.Context, stream, eventType string, data any) error {
	body, err := json.Marshal(Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: p.now().UTC(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"type":  eventType,
			"event": body,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", eventType, stream, err)
	}
	return nil
}
