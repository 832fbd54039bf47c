package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Addisu87/bank-support-agent/internal/logging"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// errMalformed marks entries that can never be handled. They are acked and dropped.
var errMalformed = errors.New("malformed stream entry")

type Handler func(ctx context.Context, event Event) error

// Subscriber consumes one stream as a member of a consumer group. Entries
// whose handler fails stay pending and are reclaimed with XAUTOCLAIM once
// they have been idle for ClaimMinIdle, by this or any other consumer.
type Subscriber struct {
	client        *redis.Client
	group         string
	consumer      string
	stream        string
	handler       Handler
	batchSize     int64
	blockDuration time.Duration
	claimMinIdle  time.Duration
	logger        *logging.Logger
}

type SubscriberConfig struct {
	Group         string
	Consumer      string
	Stream        string
	Handler       Handler
	BatchSize     int64
	BlockDuration time.Duration
	// ClaimMinIdle defaults to one minute.
	ClaimMinIdle time.Duration
}

func NewSubscriber(client *redis.Client, config SubscriberConfig) *Subscriber {
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.BlockDuration == 0 {
		config.BlockDuration = 5 * time.Second
	}
	if config.ClaimMinIdle == 0 {
		config.ClaimMinIdle = time.Minute
	}

	return &Subscriber{
		client:        client,
		group:         config.Group,
		consumer:      config.Consumer,
		stream:        config.Stream,
		handler:       config.Handler,
		batchSize:     config.BatchSize,
		blockDuration: config.BlockDuration,
		claimMinIdle:  config.ClaimMinIdle,
		logger: logging.L().Named("subscriber").With(
			zap.String("stream", config.Stream),
			zap.String("group", config.Group),
		),
	}
}

// Start consumes the stream until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	if err := s.ensureGroup(ctx); err != nil {
		return err
	}
	s.logger.Info("subscriber started", zap.String("consumer", s.consumer))

	var lastClaim time.Time
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("subscriber stopping")
			return ctx.Err()
		default:
		}

		if time.Since(lastClaim) >= s.claimMinIdle {
			if err := s.reclaim(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("error reclaiming pending messages", zap.Error(err))
			}
			lastClaim = time.Now()
		}

		if err := s.readMessages(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("error reading messages", zap.Error(err))
			time.Sleep(time.Second)
		}
	}
}

func (s *Subscriber) ensureGroup(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

func (s *Subscriber) readMessages(ctx context.Context) error {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, ">"},
		Count:    s.batchSize,
		Block:    s.blockDuration,
	}).Result()

	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		s.handleBatch(ctx, stream.Messages)
	}
	return nil
}

// reclaim takes over entries left pending longer than claimMinIdle and
// retries them.
func (s *Subscriber) reclaim(ctx context.Context) error {
	start := "0-0"
	for {
		messages, next, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   s.stream,
			Group:    s.group,
			Consumer: s.consumer,
			MinIdle:  s.claimMinIdle,
			Start:    start,
			Count:    s.batchSize,
		}).Result()
		if err != nil {
			return fmt.Errorf("failed to claim pending messages: %w", err)
		}
		if len(messages) > 0 {
			s.logger.Info("retrying pending messages", zap.Int("count", len(messages)))
			s.handleBatch(ctx, messages)
		}
		if next == "0-0" || next == "" || len(messages) == 0 {
			return nil
		}
		start = next
	}
}

func (s *Subscriber) handleBatch(ctx context.Context, messages []redis.XMessage) {
	for _, message := range messages {
		err := s.processMessage(ctx, message)
		switch {
		case errors.Is(err, errMalformed):
			s.logger.Error("dropping malformed message", zap.String("id", message.ID), zap.Error(err))
		case err != nil:
			// Unacked messages stay in the pending list for redelivery.
			s.logger.Warn("failed to process message", zap.String("id", message.ID), zap.Error(err))
			continue
		}

		if err := s.client.XAck(ctx, s.stream, s.group, message.ID).Err(); err != nil {
			s.logger.Warn("failed to ack message", zap.String("id", message.ID), zap.Error(err))
		}
	}
}

func (s *Subscriber) processMessage(ctx context.Context, message redis.XMessage) error {
	eventData, ok := message.Values["event"].(string)
	if !ok {
		return fmt.Errorf("%w: missing event field", errMalformed)
	}

	var event Event
	if err := json.Unmarshal([]byte(eventData), &event); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}

	return s.handler(ctx, event)
}
