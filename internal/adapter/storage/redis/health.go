package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// HealthCheck implements ports.HealthChecker for Redis.
type HealthCheck struct {
	client goredis.UniversalClient
}

func NewHealthCheck(client goredis.UniversalClient) *HealthCheck {
	return &HealthCheck{client: client}
}

// Ping expects a literal PONG; anything else means a proxy or the wrong service answered.
func (h *HealthCheck) Ping(ctx context.Context) error {
	reply, err := h.client.Ping(ctx).Result()
	if err != nil {
		return err
	}
	if reply != "PONG" {
		return fmt.Errorf("unexpected PING reply %q", reply)
	}
	return nil
}

func (h *HealthCheck) Name() string { return "redis" }
