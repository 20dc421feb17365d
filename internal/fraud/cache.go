package fraud

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"policyd/internal/policy/models"
)

const classificationKeyPrefix = "fraud:classification:"

// RedisCache is a Redis-backed ClassificationCache. Classifications are
// per-policy facts from the upstream, so a short TTL only bounds staleness
// for retried validations, not correctness.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache constructs a classification cache with the given TTL.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, policyID uuid.UUID) (models.RiskClassification, bool, error) {
	val, err := c.client.Get(ctx, classificationKeyPrefix+policyID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	classification, ok := models.ParseRiskClassification(val)
	if !ok {
		// A corrupt entry behaves like a miss so the caller refetches.
		return "", false, nil
	}
	return classification, true, nil
}

func (c *RedisCache) Set(ctx context.Context, policyID uuid.UUID, classification models.RiskClassification) error {
	return c.client.Set(ctx, classificationKeyPrefix+policyID.String(), string(classification), c.ttl).Err()
}
