package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/newdim001/biz-pro/internal/shared"
)

// Session is an issued login token.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Principal Principal `json:"principal"`
}

// SessionManager stores bearer sessions in Redis.
type SessionManager struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionManager{client: client, ttl: ttl, prefix: "session:"}
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// Create issues a token for user.
func (sm *SessionManager) Create(ctx context.Context, user User) (Session, error) {
	token, err := generateToken()
	if err != nil {
		return Session{}, err
	}
	sess := Session{Token: token, ExpiresAt: time.Now().UTC().Add(sm.ttl), Principal: principalOf(user)}
	payload, err := json.Marshal(sess.Principal)
	if err != nil {
		return Session{}, err
	}
	if err := sm.client.Set(ctx, sm.redisKey(token), payload, sm.ttl).Err(); err != nil {
		return Session{}, fmt.Errorf("auth: store session: %v: %w", err, shared.ErrPersistence)
	}
	return sess, nil
}

// Lookup resolves a token and slides its expiry.
func (sm *SessionManager) Lookup(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrSessionExpired
	}
	payload, err := sm.client.GetEx(ctx, sm.redisKey(token), sm.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return Principal{}, ErrSessionExpired
	}
	if err != nil {
		return Principal{}, fmt.Errorf("auth: load session: %v: %w", err, shared.ErrPersistence)
	}
	var p Principal
	if err := json.Unmarshal(payload, &p); err != nil {
		return Principal{}, err
	}
	return p, nil
}

// Destroy revokes a token.
func (sm *SessionManager) Destroy(ctx context.Context, token string) error {
	if err := sm.client.Del(ctx, sm.redisKey(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (sm *SessionManager) redisKey(token string) string {
	return sm.prefix + token
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
