// Package mredis is a connection hub for the splitting-policy cache's
// shared tier, mirroring the teacher's common/mredis/redis.go.
package mredis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/poolcard/ledger-core/pkg/mlog"
)

// Connection is a hub which deals with Redis connections.
type Connection struct {
	URL       string
	Logger    mlog.Logger
	client    *redis.Client
	connected bool
}

// Connect parses URL and pings the resulting client.
func (c *Connection) Connect(ctx context.Context) error {
	c.Logger.Info("connecting to redis...")

	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	c.client = client
	c.connected = true

	c.Logger.Info("connected to redis")

	return nil
}

// Client returns the redis client, connecting lazily.
func (c *Connection) Client(ctx context.Context) (*redis.Client, error) {
	if !c.connected {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.client, nil
}
