package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"insightai/internal/model"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned when another instance holds the session's submit lock
var ErrLocked = errors.New("session is locked")

// SessionCache persists conversation state between requests and across gateway instances
type SessionCache interface {
	Set(ctx context.Context, state *model.SessionState) error
	Get(ctx context.Context, sessionID string) (*model.SessionState, error)
	Delete(ctx context.Context, sessionID string) error
	// Lock takes the submit lock for a session. The returned func releases it.
	Lock(ctx context.Context, sessionID string) (func(), error)
}

type sessionCache struct {
	client  *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

// NewSessionCache creates a session cache
func NewSessionCache(client *redis.Client, ttl, lockTTL time.Duration) SessionCache {
	return &sessionCache{
		client:  client,
		ttl:     ttl,
		lockTTL: lockTTL,
	}
}

func (c *sessionCache) key(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func (c *sessionCache) lockKey(sessionID string) string {
	return fmt.Sprintf("session:%s:lock", sessionID)
}

func (c *sessionCache) Set(ctx context.Context, state *model.SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(state.SessionID), data, c.ttl).Err()
}

func (c *sessionCache) Get(ctx context.Context, sessionID string) (*model.SessionState, error) {
	data, err := c.client.Get(ctx, c.key(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state model.SessionState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *sessionCache) Delete(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, c.key(sessionID), c.lockKey(sessionID)).Err()
}

// releaseScript deletes the lock only if it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (c *sessionCache) Lock(ctx context.Context, sessionID string) (func(), error) {
	token := uuid.NewString()
	ok, err := c.client.SetNX(ctx, c.lockKey(sessionID), token, c.lockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		releaseScript.Run(context.WithoutCancel(ctx), c.client, []string{c.lockKey(sessionID)}, token)
	}, nil
}
