// Package mrabbitmq is a connection hub for the processed-webhook-event
// fanout exchange, mirroring the teacher's common/mrabbitmq/rabbitmq.go but
// re-pointed at the maintained rabbitmq/amqp091-go client (see DESIGN.md).
package mrabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/poolcard/ledger-core/pkg/mlog"
)

// Connection is a hub which deals with RabbitMQ connections.
type Connection struct {
	URL       string
	Logger    mlog.Logger
	conn      *amqp.Connection
	channel   *amqp.Channel
	connected bool
}

// Connect dials the broker and opens a channel.
func (c *Connection) Connect() error {
	c.Logger.Info("connecting to rabbitmq...")

	conn, err := amqp.Dial(c.URL)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}

	c.conn = conn
	c.channel = ch
	c.connected = true

	c.Logger.Info("connected to rabbitmq")

	return nil
}

// Channel returns the open channel, connecting lazily.
func (c *Connection) Channel() (*amqp.Channel, error) {
	if !c.connected {
		if err := c.Connect(); err != nil {
			return nil, err
		}
	}

	return c.channel, nil
}

// Close tears down the channel and connection.
func (c *Connection) Close() error {
	if c.channel != nil {
		_ = c.channel.Close()
	}

	if c.conn != nil {
		return c.conn.Close()
	}

	return nil
}
