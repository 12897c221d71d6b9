// Package messagequeue defines the port interface for the invalidation bus.
package messagequeue

import "context"

// Handler processes one message from the bus.
type Handler func(subject string, data []byte) error

// Bus is a best-effort publish/subscribe fan-out used to propagate cache
// invalidation events between processes. Delivery is not guaranteed;
// cache TTLs bound the staleness window when a message is lost.
type Bus interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Subscribe(ctx context.Context, subject string, handler Handler) (func(), error)
}
