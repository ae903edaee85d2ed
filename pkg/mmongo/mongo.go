// Package mmongo is a connection hub for the webhook raw-payload audit
// mirror, mirroring the teacher's common/mmongo/mongo.go.
package mmongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/poolcard/ledger-core/pkg/mlog"
)

// Connection is a hub which deals with MongoDB connections.
type Connection struct {
	URL       string
	Database  string
	Logger    mlog.Logger
	client    *mongo.Client
	connected bool
}

// Connect opens and pings the Mongo client.
func (c *Connection) Connect(ctx context.Context) error {
	c.Logger.Info("connecting to mongodb...")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.URL))
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo ping: %w", err)
	}

	c.client = client
	c.connected = true

	c.Logger.Info("connected to mongodb")

	return nil
}

// Collection returns a handle to the named collection in c.Database,
// connecting lazily.
func (c *Connection) Collection(ctx context.Context, name string) (*mongo.Collection, error) {
	if !c.connected {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.client.Database(c.Database).Collection(name), nil
}

// Close disconnects the client. A no-op if Connect was never called.
func (c *Connection) Close(ctx context.Context) error {
	if !c.connected || c.client == nil {
		return nil
	}

	return c.client.Disconnect(ctx)
}
