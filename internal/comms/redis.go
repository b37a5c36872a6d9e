package comms

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisTimeout = 2 * time.Second

// RedisSink pushes messages onto a capped per-recipient list, newest first.
type RedisSink struct {
	client *redis.Client
	limit  int64
	logger *slog.Logger
}

func NewRedisSink(client *redis.Client, limit int64, logger *slog.Logger) *RedisSink {
	logger.Debug("Initializing redis message sink")

	return &RedisSink{
		client: client,
		limit:  limit,
		logger: logger.With("component", "redis_sink"),
	}
}

func InboxKey(recipient string) string {
	return "astral:inbox:" + recipient
}

func (s *RedisSink) ComposeMessage(msg Message) {
	logger := s.logger.With("operation", "compose_message", "to", msg.To, "subject", msg.Subject)

	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Error("Failed to encode message", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	key := InboxKey(msg.To)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, payload)
	if s.limit > 0 {
		pipe.LTrim(ctx, key, 0, s.limit-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("Failed to store message in redis", "error", err)
	}
}

// Recent reads up to n stored messages for recipient, newest first.
func (s *RedisSink) Recent(ctx context.Context, recipient string, n int64) ([]Message, error) {
	raw, err := s.client.LRange(ctx, InboxKey(recipient), 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(raw))
	for _, r := range raw {
		var m Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			s.logger.Warn("Skipping undecodable message", "error", err)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
