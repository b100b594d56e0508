package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const queryCountKeyPrefix = "quota:queries:"

// redisCounter counts queries in day-bucketed Redis keys.
type redisCounter struct {
	client *redis.Client
}

// NewRedisCounter creates a Counter backed by Redis.
func NewRedisCounter(client *redis.Client) Counter {
	return &redisCounter{client: client}
}

func (c *redisCounter) key(userID uuid.UUID) string {
	today := time.Now().UTC().Format("2006-01-02")
	return fmt.Sprintf("%s%s:%s", queryCountKeyPrefix, userID.String(), today)
}

func (c *redisCounter) Increment(ctx context.Context, userID uuid.UUID) (int, error) {
	key := c.key(userID)

	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("increment query count: %w", err)
	}

	// First hit of the day sets the bucket to expire once it is stale.
	if n == 1 {
		c.client.Expire(ctx, key, 48*time.Hour)
	}

	return int(n), nil
}
