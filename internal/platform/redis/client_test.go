package redis

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRecordStatsCountsDeltas(t *testing.T) {
	c := &Client{}
	hitsBefore := testutil.ToFloat64(redisPoolHits)
	missesBefore := testutil.ToFloat64(redisPoolMisses)

	// PoolStats snapshots are cumulative; repeated collection must only add
	// the growth since the previous call.
	c.recordStats(&redis.PoolStats{Hits: 5, Misses: 2, TotalConns: 3})
	c.recordStats(&redis.PoolStats{Hits: 7, Misses: 2, TotalConns: 4})
	c.recordStats(&redis.PoolStats{Hits: 7, Misses: 6, TotalConns: 4})

	assert.Equal(t, float64(7), testutil.ToFloat64(redisPoolHits)-hitsBefore)
	assert.Equal(t, float64(6), testutil.ToFloat64(redisPoolMisses)-missesBefore)
	assert.Equal(t, float64(4), testutil.ToFloat64(redisPoolTotalConns))
}

func TestCollectPoolStatsNilSafe(t *testing.T) {
	var c *Client
	c.CollectPoolStats()
	(&Client{}).CollectPoolStats()
}
