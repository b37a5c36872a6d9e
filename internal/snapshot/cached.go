package snapshot

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"astral-server/internal/universe"

	"github.com/redis/go-redis/v9"
)

func cacheKey(name string) string {
	return "astral:snapshot:" + name
}

// CachedStore reads through redis in front of another store. Cache
// failures are logged and never fail the call.
type CachedStore struct {
	next   Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedStore(next Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	logger.Debug("Initializing redis snapshot cache", "ttl", ttl)

	return &CachedStore{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "snapshot_cache"),
	}
}

func (s *CachedStore) Save(ctx context.Context, name string, snap universe.Snapshot) (Info, error) {
	info, err := s.next.Save(ctx, name, snap)
	if err != nil {
		return Info{}, err
	}
	if data, err := Encode(snap); err == nil {
		if err := s.client.Set(ctx, cacheKey(name), data, s.ttl).Err(); err != nil {
			s.logger.Warn("Failed to cache snapshot", "operation", "save", "name", name, "error", err)
		}
	}
	return info, nil
}

func (s *CachedStore) Load(ctx context.Context, name string) (universe.Snapshot, error) {
	logger := s.logger.With("operation", "load", "name", name)

	data, err := s.client.Get(ctx, cacheKey(name)).Bytes()
	switch {
	case err == nil:
		if snap, err := Decode(data); err == nil {
			logger.Debug("Snapshot cache hit")
			return snap, nil
		}
		logger.Warn("Cached snapshot is corrupt, falling back")
	case stderrors.Is(err, redis.Nil):
		logger.Debug("Snapshot cache miss")
	default:
		logger.Warn("Failed to read snapshot cache", "error", err)
	}

	snap, err := s.next.Load(ctx, name)
	if err != nil {
		return universe.Snapshot{}, err
	}
	if data, err := Encode(snap); err == nil {
		if err := s.client.Set(ctx, cacheKey(name), data, s.ttl).Err(); err != nil {
			logger.Warn("Failed to cache snapshot", "error", err)
		}
	}
	return snap, nil
}

func (s *CachedStore) List(ctx context.Context) ([]Info, error) {
	return s.next.List(ctx)
}

func (s *CachedStore) Delete(ctx context.Context, name string) error {
	if err := s.client.Del(ctx, cacheKey(name)).Err(); err != nil {
		s.logger.Warn("Failed to evict cached snapshot", "operation", "delete", "name", name, "error", err)
	}
	return s.next.Delete(ctx, name)
}
