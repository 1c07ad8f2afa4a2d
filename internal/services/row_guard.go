package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRowBusy is returned when another action on the same row is in progress
var ErrRowBusy = errors.New("another action is already in progress for this record")

// RowGuard marks rows as "in progress" so two actions cannot race on one row.
// Different rows never block each other.
type RowGuard interface {
	// TryAcquire returns a release func, or ErrRowBusy when the row is taken
	TryAcquire(ctx context.Context, rowID string) (func(), error)
}

// MemoryRowGuard is a process-local RowGuard
type MemoryRowGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewMemoryRowGuard() *MemoryRowGuard {
	return &MemoryRowGuard{active: make(map[string]struct{})}
}

func (g *MemoryRowGuard) TryAcquire(ctx context.Context, rowID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.active[rowID]; busy {
		return nil, ErrRowBusy
	}
	g.active[rowID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, rowID)
			g.mu.Unlock()
		})
	}, nil
}

// RedisRowGuard shares row markers between instances. The TTL frees rows
// whose holder died before releasing.
type RedisRowGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRowGuard(client *redis.Client, ttl time.Duration) *RedisRowGuard {
	return &RedisRowGuard{client: client, ttl: ttl}
}

func (g *RedisRowGuard) TryAcquire(ctx context.Context, rowID string) (func(), error) {
	key := fmt.Sprintf("row_action:%s", rowID)

	ok, err := g.client.SetNX(ctx, key, "1", g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to mark row in progress: %w", err)
	}
	if !ok {
		return nil, ErrRowBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.client.Del(context.Background(), key)
		})
	}, nil
}
