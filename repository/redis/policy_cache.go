package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/workreport/backend/domain"
)

// PolicyCache holds resolved SLA policies in Redis for a short TTL so list
// views and sweeps do not hammer the settings tables. Values may be served
// stale until they expire; the resolver is built to tolerate that. Every
// cache failure degrades to a miss.
type PolicyCache struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func NewPolicyCache(client *redislib.Client, ttl time.Duration, logger *zap.Logger) *PolicyCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PolicyCache{
		client: client,
		prefix: "sla:policy:",
		ttl:    ttl,
		logger: logger,
	}
}

func (c *PolicyCache) Get(ctx context.Context, projectID string) (domain.Policy, bool) {
	if c == nil || c.client == nil {
		return domain.Policy{}, false
	}
	raw, err := c.client.Get(ctx, c.key(projectID)).Result()
	if err != nil {
		if err != redislib.Nil {
			c.logger.Debug("policy cache read failed", zap.Error(err))
		}
		return domain.Policy{}, false
	}
	var policy domain.Policy
	if err := json.Unmarshal([]byte(raw), &policy); err != nil {
		return domain.Policy{}, false
	}
	return policy, true
}

func (c *PolicyCache) Set(ctx context.Context, projectID string, policy domain.Policy) {
	if c == nil || c.client == nil {
		return
	}
	payload, err := json.Marshal(policy)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(projectID), payload, c.ttl).Err(); err != nil {
		c.logger.Debug("policy cache write failed", zap.Error(err))
	}
}

// Invalidate drops every cached policy. Called when operators change the
// SLA settings so new values take effect before the TTL would expire.
func (c *PolicyCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Debug("policy cache invalidation failed", zap.Error(err))
			return
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Debug("policy cache scan failed", zap.Error(err))
	}
}

func (c *PolicyCache) key(projectID string) string {
	if projectID == "" {
		return c.prefix + "_global"
	}
	return fmt.Sprintf("%s%s", c.prefix, projectID)
}
