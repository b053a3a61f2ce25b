package reporting

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	id "comply/pkg/domain"
)

// Cache fronts the organization rollup with a short-TTL tier. Persisted
// scores stay the source of truth; a cache outage only costs recomputation.
type Cache interface {
	Get(ctx context.Context, orgID id.OrgID) (*OrgMetrics, bool)
	Set(ctx context.Context, orgID id.OrgID, metrics *OrgMetrics)
}

// NoopCache disables the cache tier.
type NoopCache struct{}

func (NoopCache) Get(context.Context, id.OrgID) (*OrgMetrics, bool) { return nil, false }

func (NoopCache) Set(context.Context, id.OrgID, *OrgMetrics) {}

const metricsKeyPrefix = "metrics:org:"

// RedisCache stores rollups as JSON with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, orgID id.OrgID) (*OrgMetrics, bool) {
	payload, err := c.client.Get(ctx, metricsKeyPrefix+orgID.String()).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "metrics cache read failed", "org_id", orgID, "error", err)
		}
		return nil, false
	}
	var metrics OrgMetrics
	if err := json.Unmarshal(payload, &metrics); err != nil {
		return nil, false
	}
	return &metrics, true
}

func (c *RedisCache) Set(ctx context.Context, orgID id.OrgID, metrics *OrgMetrics) {
	payload, err := json.Marshal(metrics)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, metricsKeyPrefix+orgID.String(), payload, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "metrics cache write failed", "org_id", orgID, "error", err)
	}
}
