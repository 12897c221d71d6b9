// Package nats implements the invalidation bus port and owns the NATS
// connection shared with the JetStream KV edge cache.
package nats

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/sitegrove/sitegrove/internal/port/messagequeue"
)

// Conn wraps a NATS connection. Core pub/sub carries invalidation events
// (fire-and-forget; a lost event self-heals at cache TTL), while JetStream
// hosts the KV bucket used as the shared edge cache.
type Conn struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a connection to NATS and initializes JetStream.
func Connect(_ context.Context, url string) (*Conn, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	slog.Info("nats connected", "url", url)
	return &Conn{nc: nc, js: js}, nil
}

// JetStream returns the JetStream context for KV bucket management.
func (c *Conn) JetStream() jetstream.JetStream {
	return c.js
}

// Publish sends a message to the given subject. No delivery guarantee.
func (c *Conn) Publish(_ context.Context, subject string, data []byte) error {
	if err := c.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers a handler for messages on the given subject
// (wildcards allowed). Returns an unsubscribe function.
func (c *Conn) Subscribe(_ context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	sub, err := c.nc.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(msg.Subject, msg.Data); err != nil {
			slog.Error("message handler failed", "subject", msg.Subject, "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	return func() { _ = sub.Unsubscribe() }, nil
}

// Close shuts down the NATS connection, flushing pending publishes.
func (c *Conn) Close() error {
	if err := c.nc.Flush(); err != nil {
		slog.Debug("nats flush on close", "error", err)
	}
	c.nc.Close()
	return nil
}
