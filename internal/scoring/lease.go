package scoring

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	id "comply/pkg/domain"
)

// Lease is a best-effort single-flight guard for organization-wide
// recalculation. Acquire returns acquired=false when another run holds the
// lease; release is a no-op when acquisition failed.
type Lease interface {
	Acquire(ctx context.Context, orgID id.OrgID) (acquired bool, release func(), err error)
}

const (
	leaseKeyPrefix = "recalc:org:"
	leaseTTL       = 15 * time.Minute
)

// RedisLease implements Lease with SET NX and a TTL, so a crashed run
// releases itself when the TTL lapses.
type RedisLease struct {
	client *redis.Client
}

func NewRedisLease(client *redis.Client) *RedisLease {
	return &RedisLease{client: client}
}

func (l *RedisLease) Acquire(ctx context.Context, orgID id.OrgID) (bool, func(), error) {
	key := leaseKeyPrefix + orgID.String()
	ok, err := l.client.SetNX(ctx, key, "1", leaseTTL).Result()
	if err != nil {
		return false, func() {}, err
	}
	if !ok {
		return false, func() {}, nil
	}
	release := func() {
		// Release uses a fresh context: the run's context may already be
		// canceled by the time the deferred release fires.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		l.client.Del(releaseCtx, key)
	}
	return true, release, nil
}
