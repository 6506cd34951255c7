package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const revokedSessionPrefix = "session:revoked:"

// SessionRevocations remembers revoked session IDs until their tokens would
// have expired anyway.
type SessionRevocations struct {
	client *goredis.Client
	now    func() time.Time
}

func NewSessionRevocations(client *goredis.Client) *SessionRevocations {
	return &SessionRevocations{client: client, now: time.Now}
}

func (r *SessionRevocations) Revoke(ctx context.Context, sessionID string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, revokedSessionPrefix+sessionID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (r *SessionRevocations) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedSessionPrefix+sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session revocation: %w", err)
	}
	return n > 0, nil
}
