package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clientflow/alertrunner/internal/config"
	"github.com/clientflow/alertrunner/internal/domain/alert"
)

const keyPrefix = "alertrunner:cooldown:"

// CooldownLock implements alert.CooldownClaimer with SET NX. A claim expires
// with the cooldown window, so a crashed dispatcher never blocks a pair for
// longer than one window.
type CooldownLock struct {
	client *redis.Client
}

// NewClient connects to Redis and verifies the connection
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// NewCooldownLock creates a claimer backed by client
func NewCooldownLock(client *redis.Client) alert.CooldownClaimer {
	return &CooldownLock{client: client}
}

func cooldownKey(ruleID, tenantID string) string {
	return keyPrefix + ruleID + ":" + tenantID
}

// Claim reserves the (rule, tenant) pair for ttl. It returns false when the
// pair is already held.
func (l *CooldownLock) Claim(ctx context.Context, ruleID, tenantID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return true, nil
	}
	ok, err := l.client.SetNX(ctx, cooldownKey(ruleID, tenantID), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim cooldown for rule %s tenant %s: %w", ruleID, tenantID, err)
	}
	return ok, nil
}

// Release drops a claim so a failed dispatch can be retried within the window
func (l *CooldownLock) Release(ctx context.Context, ruleID, tenantID string) error {
	if err := l.client.Del(ctx, cooldownKey(ruleID, tenantID)).Err(); err != nil {
		return fmt.Errorf("failed to release cooldown for rule %s tenant %s: %w", ruleID, tenantID, err)
	}
	return nil
}
