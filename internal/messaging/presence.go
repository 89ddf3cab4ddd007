// internal/messaging/presence.go

package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	statusOnline  = "online"
	statusOffline = "offline"
)

// PresenceWriter mirrors presence to the user store and to Redis.
// The Redis key carries a TTL so a crashed process cannot leave users
// stuck online forever.
type PresenceWriter struct {
	repo  Repository
	redis *redis.Client
	ttl   time.Duration
}

func NewPresenceWriter(repo Repository, rdb *redis.Client, ttl time.Duration) *PresenceWriter {
	return &PresenceWriter{
		repo:  repo,
		redis: rdb,
		ttl:   ttl,
	}
}

// SetOnline writes the user's status to both stores. The first failure
// is returned for logging; both writes are always attempted.
func (p *PresenceWriter) SetOnline(ctx context.Context, userID int64, online bool) error {
	status := statusOffline
	if online {
		status = statusOnline
	}

	var firstErr error
	if err := p.repo.SetUserStatus(ctx, userID, status); err != nil {
		firstErr = err
	}

	if p.redis != nil {
		key := presenceKey(userID)
		var err error
		if online {
			err = p.redis.Set(ctx, key, statusOnline, p.ttl).Err()
		} else {
			err = p.redis.Del(ctx, key).Err()
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func presenceKey(userID int64) string {
	return fmt.Sprintf("presence:%d", userID)
}
