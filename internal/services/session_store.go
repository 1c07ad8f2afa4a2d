package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/models"
	"github.com/Emi-Dz/formulario-clientes-parcelas/pkg/logging"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps logged-in users behind opaque tokens
type SessionStore interface {
	Create(ctx context.Context, user models.AuthUser) (string, error)
	Get(ctx context.Context, token string) (models.AuthUser, bool, error)
	Delete(ctx context.Context, token string) error
}

type memorySession struct {
	user      models.AuthUser
	expiresAt time.Time
}

// MemorySessionStore keeps sessions in process memory
type MemorySessionStore struct {
	sessions        map[string]memorySession
	mutex           sync.RWMutex
	ttl             time.Duration
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// NewMemorySessionStore creates an in-memory store and starts its cleanup routine
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	s := &MemorySessionStore{
		sessions:        make(map[string]memorySession),
		ttl:             ttl,
		cleanupInterval: 10 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	go s.startCleanupRoutine()

	return s
}

func (s *MemorySessionStore) Create(ctx context.Context, user models.AuthUser) (string, error) {
	token := uuid.NewString()

	s.mutex.Lock()
	s.sessions[token] = memorySession{user: user, expiresAt: time.Now().Add(s.ttl)}
	s.mutex.Unlock()

	return token, nil
}

func (s *MemorySessionStore) Get(ctx context.Context, token string) (models.AuthUser, bool, error) {
	s.mutex.RLock()
	sess, ok := s.sessions[token]
	s.mutex.RUnlock()

	if !ok || time.Now().After(sess.expiresAt) {
		return models.AuthUser{}, false, nil
	}
	return sess.user, true, nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, token string) error {
	s.mutex.Lock()
	delete(s.sessions, token)
	s.mutex.Unlock()
	return nil
}

// Stop ends the cleanup routine
func (s *MemorySessionStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
}

func (s *MemorySessionStore) startCleanupRoutine() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemorySessionStore) cleanup() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now()
	initialCount := len(s.sessions)
	for token, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			delete(s.sessions, token)
		}
	}

	if cleaned := initialCount - len(s.sessions); cleaned > 0 {
		logging.Infof("Session cleanup: removed %d expired sessions, remaining: %d", cleaned, len(s.sessions))
	}
}

// RedisSessionStore keeps sessions in Redis hashes with a TTL
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

func (s *RedisSessionStore) Create(ctx context.Context, user models.AuthUser) (string, error) {
	token := uuid.NewString()
	key := sessionKey(token)

	data := map[string]interface{}{
		"id":         user.ID,
		"username":   user.Username,
		"role":       user.Role,
		"created_at": time.Now().Unix(),
	}

	if err := s.client.HSet(ctx, key, data).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to expire session: %w", err)
	}
	return token, nil
}

func (s *RedisSessionStore) Get(ctx context.Context, token string) (models.AuthUser, bool, error) {
	values, err := s.client.HGetAll(ctx, sessionKey(token)).Result()
	if err != nil {
		if err == redis.Nil {
			return models.AuthUser{}, false, nil
		}
		return models.AuthUser{}, false, err
	}
	if len(values) == 0 {
		return models.AuthUser{}, false, nil
	}
	return models.AuthUser{ID: values["id"], Username: values["username"], Role: values["role"]}, true, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionKey(token)).Err()
}
