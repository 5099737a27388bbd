// Package bus implements the engine-to-engine message transport: Redis
// Streams carrying JSON-encoded messages.Envelope frames, at-least-once
// delivery with consumer-group acknowledgement and pending-entry reclaim.
package bus

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"lnbank/internal/messages"
	"lnbank/pkg/logger"
)

// Bus wraps a Redis client for stream-based publish/consume of
// messages.Envelope frames.
type Bus struct {
	client *redis.Client
}

// New wraps an already-connected Redis client.
func New(client *redis.Client) *Bus {
	return &Bus{client: client}
}

// DeclareStream ensures a consumer group exists for stream, tolerating the
// BUSYGROUP error when it already does.
func (b *Bus) DeclareStream(ctx context.Context, stream, group string) error {
	err := b.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil
		}
		logger.Error("failed to create consumer group", zap.String("stream", stream), zap.String("group", group), zap.Error(err))
		return err
	}
	return nil
}

// Publish serializes msg into an envelope and appends it to stream.
func (b *Bus) Publish(ctx context.Context, stream string, requestID string, msg messages.Message) (string, error) {
	env, err := messages.Wrap(requestID, msg)
	if err != nil {
		return "", err
	}
	data, err := env.ToJSON()
	if err != nil {
		return "", err
	}
	args := &redis.XAddArgs{
		Stream: stream,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{"data": data},
	}
	id, err := b.client.XAdd(ctx, args).Result()
	if err != nil {
		logger.Error("failed to publish envelope", zap.String("stream", stream), zap.String("type", env.Type), zap.Error(err))
		return "", err
	}
	return id, nil
}

// Handler processes one delivered envelope. Returning nil ACKs the message;
// any other return leaves it pending for reclaim.
type Handler func(messageID string, env messages.Envelope) error

// Consume runs a blocking read loop against stream as part of group until
// ctx is cancelled, periodically reclaiming messages abandoned by a dead
// consumer.
func (b *Bus) Consume(ctx context.Context, stream, group, consumer string, handler Handler) error {
	args := &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    10,
		Block:    5 * time.Second,
	}

	readOnce := func() error {
		res, err := b.client.XReadGroup(ctx, args).Result()
		if err != nil {
			if err == redis.Nil {
				return nil
			}
			logger.Error("failed to read from stream", zap.String("stream", stream), zap.Error(err))
			return err
		}
		for _, xstream := range res {
			for _, msg := range xstream.Messages {
				b.handleMessage(ctx, stream, group, msg, handler)
			}
		}
		return nil
	}

	iteration := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			iteration++
			if iteration%10 == 0 {
				b.reclaimPending(ctx, stream, group, consumer, handler)
			}
			if err := readOnce(); err != nil {
				logger.Error("error in bus consume loop", zap.Error(err))
			}
		}
	}
}

func (b *Bus) reclaimPending(ctx context.Context, stream, group, consumer string, handler Handler) {
	args := &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    group,
		MinIdle:  5 * time.Minute,
		Start:    "0-0",
		Consumer: consumer,
		Count:    100,
	}
	res, _, err := b.client.XAutoClaim(ctx, args).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Error("failed to reclaim pending messages", zap.String("stream", stream), zap.Error(err))
		}
		return
	}
	for _, msg := range res {
		b.handleMessage(ctx, stream, group, msg, handler)
	}
}

func (b *Bus) handleMessage(ctx context.Context, stream, group string, msg redis.XMessage, handler Handler) {
	raw, ok := msg.Values["data"]
	if !ok {
		logger.Error("bus message missing data field", zap.String("messageID", msg.ID))
		b.client.XAck(ctx, stream, group, msg.ID)
		return
	}
	data, ok := raw.(string)
	if !ok {
		logger.Error("bus message data field is not a string", zap.String("messageID", msg.ID))
		b.client.XAck(ctx, stream, group, msg.ID)
		return
	}
	env, err := messages.EnvelopeFromJSON([]byte(data))
	if err != nil {
		logger.Error("failed to decode envelope", zap.String("messageID", msg.ID), zap.Error(err))
		b.client.XAck(ctx, stream, group, msg.ID)
		return
	}
	if err := handler(msg.ID, env); err == nil {
		b.client.XAck(ctx, stream, group, msg.ID)
	} else {
		logger.Error("bus handler failed", zap.String("messageID", msg.ID), zap.Error(err))
	}
}
