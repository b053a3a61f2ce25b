//go:build integration

package reporting_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comply/internal/reporting"
	id "comply/pkg/domain"
	"comply/pkg/testutil/containers"
)

func TestRedisCache(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	t.Cleanup(func() {
		_ = rc.Client.Close()
		_ = rc.Container.Terminate(context.Background())
	})

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("round-trips the rollup", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		cache := reporting.NewRedisCache(rc.Client, time.Minute, logger)

		metrics := &reporting.OrgMetrics{
			TotalEmployees: 4,
			AverageScore:   73,
			ComplianceRate: 50,
			ScoreDistribution: []reporting.DistributionSlot{
				{Bucket: "90-100", Count: 1},
			},
			IssueBreakdown: []reporting.IssueCount{
				{Type: "mfa", Count: 2},
			},
		}
		cache.Set(ctx, id.OrgID("org-cache"), metrics)

		got, ok := cache.Get(ctx, id.OrgID("org-cache"))
		require.True(t, ok)
		assert.Equal(t, metrics, got)

		_, ok = cache.Get(ctx, id.OrgID("org-other"))
		assert.False(t, ok)
	})

	t.Run("entries lapse with the ttl", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		cache := reporting.NewRedisCache(rc.Client, 100*time.Millisecond, logger)

		cache.Set(ctx, id.OrgID("org-ttl"), &reporting.OrgMetrics{TotalEmployees: 1})
		_, ok := cache.Get(ctx, id.OrgID("org-ttl"))
		require.True(t, ok)

		assert.Eventually(t, func() bool {
			_, ok := cache.Get(ctx, id.OrgID("org-ttl"))
			return !ok
		}, 2*time.Second, 50*time.Millisecond)
	})
}
